package args

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sourceplane/wraprun/internal/jobenv"
	"github.com/sourceplane/wraprun/internal/schema"
)

func groupSet() *schema.Set {
	return schema.GroupOptions(jobenv.Instance{JobID: "42", JobName: "t", Ordinal: 0})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Params
	}{
		{
			name: "scalar flag",
			text: "-n 3 ./a.out",
			want: Params{schema.Pes: []int{3}, schema.Exe: []string{"./a.out"}},
		},
		{
			name: "comma lists split per color",
			text: "-n 1,2,3 --w-cd ./a,./b,./c ./a.out arg",
			want: Params{
				schema.Pes: []int{1, 2, 3},
				schema.CD:  []string{"./a", "./b", "./c"},
				schema.Exe: []string{"./a.out", "arg"},
			},
		},
		{
			name: "boolean flag takes no value",
			text: "-n 2 -ss ./a.out",
			want: Params{
				schema.Pes:      []int{2},
				"strict_memory": true,
				schema.Exe:      []string{"./a.out"},
			},
		},
		{
			name: "separator before executable is stripped once",
			text: "-n 2 -- ./a.out -- -n",
			want: Params{schema.Pes: []int{2}, schema.Exe: []string{"./a.out", "--", "-n"}},
		},
		{
			name: "executable keeps its own flags",
			text: "-n 2 ./a.out -d 7",
			want: Params{schema.Pes: []int{2}, schema.Exe: []string{"./a.out", "-d", "7"}},
		},
		{
			name: "scalar launcher passthroughs",
			text: "-n 2 -a xt5 -d 4 ./a.out",
			want: Params{
				schema.Pes: []int{2},
				"arch":     "xt5",
				"depth":    4,
				schema.Exe: []string{"./a.out"},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseString(groupSet(), tc.text)
			if err != nil {
				t.Fatalf("ParseString(%q): %v", tc.text, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		token string
	}{
		{name: "unknown flag", text: "-n 2 --w-bogus x ./a.out", token: "--w-bogus"},
		{name: "missing value", text: "-n", token: "-n"},
		{name: "non-numeric count", text: "-n 2,two ./a.out", token: "2,two"},
		{name: "non-numeric scalar", text: "-d four ./a.out", token: "four"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(groupSet(), tc.text)
			var argErr *ArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("got %v, want ArgumentError", err)
			}
			if argErr.Token != tc.token {
				t.Errorf("error names token %q, want %q", argErr.Token, tc.token)
			}
			if !strings.Contains(err.Error(), tc.token) {
				t.Errorf("error text %q does not name the offending token", err)
			}
		})
	}
}

func TestParseKnownSkipsUnknown(t *testing.T) {
	got := ParseKnown(schema.GlobalOptions(), []string{
		"--w-conf", "bundle.yaml", "--unknown", "--w-debug",
	})
	want := Params{schema.Conf: "bundle.yaml", schema.Debug: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitGroups(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   [][]string
	}{
		{
			name:   "no separator",
			tokens: []string{"-n", "2", "./a.out"},
			want:   [][]string{{"-n", "2", "./a.out"}},
		},
		{
			name:   "two groups",
			tokens: []string{"-n", "2", "./a", ":", "-n", "3", "./b"},
			want:   [][]string{{"-n", "2", "./a"}, {"-n", "3", "./b"}},
		},
		{
			name:   "doubled separator dropped",
			tokens: []string{"-n", "2", "./a", ":", ":", "-n", "3", "./b"},
			want:   [][]string{{"-n", "2", "./a"}, {"-n", "3", "./b"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, SplitGroups(tc.tokens)); diff != "" {
				t.Errorf("groups mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFromKeywords(t *testing.T) {
	got, err := FromKeywords(groupSet(), map[string]any{
		schema.Pes: []any{1, 2},
		schema.CD:  "./a",
		schema.Exe: "./a.out -x",
	})
	if err != nil {
		t.Fatalf("FromKeywords: %v", err)
	}
	want := Params{
		schema.Pes: []int{1, 2},
		schema.CD:  []string{"./a"},
		schema.Exe: []string{"./a.out", "-x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestFromKeywordsErrors(t *testing.T) {
	tests := []struct {
		name string
		kv   map[string]any
	}{
		{name: "unknown option", kv: map[string]any{"bogus": 1}},
		{name: "wrong element type", kv: map[string]any{schema.Pes: []any{1, "two"}}},
		{name: "wrong scalar type", kv: map[string]any{"arch": 12.5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromKeywords(groupSet(), tc.kv)
			var argErr *ArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("got %v, want ArgumentError", err)
			}
		})
	}
}
