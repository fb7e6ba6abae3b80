package schema

import (
	"fmt"
	"strconv"

	"github.com/sourceplane/wraprun/internal/jobenv"
)

// Global option names.
const (
	Conf        = "conf"
	Debug       = "debug"
	Roe         = "roe"
	NoLDPreload = "no_ld_preload"
	NoCopy      = "nocopy"
)

// Group option names referenced outside the table.
const (
	CD  = "cd"
	OE  = "oe"
	Env = "env"
	Pes = "pes"
	Exe = "exe"
)

// GlobalOptions returns the options accepted once, before the first task
// group.
func GlobalOptions() *Set {
	return NewSet(
		&Option{
			Name: Conf,
			Flag: "--w-conf",
			Kind: String,
			Help: "Wraprun configuration file",
		},
		&Option{
			Name: Debug,
			Flag: "--w-debug",
			Kind: Flag,
			Help: "Print debugging information and exit",
		},
		&Option{
			Name: Roe,
			Flag: "--w-roe",
			Kind: Flag,
			Help: "DEPRECATED: Redirect group IO to separate files",
		},
		&Option{
			Name: NoLDPreload,
			Flag: "--w-no-ld-pre",
			Kind: Flag,
			Help: "Disable setting LD_PRELOAD for advanced users",
		},
		&Option{
			Name:     NoCopy,
			Flag:     "-b",
			Kind:     Flag,
			Launcher: true,
			Default:  true,
			Help:     "Do not copy executable to compute nodes",
		},
	)
}

// GroupOptions returns the options accepted by each MPMD task group. The
// instance identity feeds the default output-file basename so that
// concurrent wraprun invocations under one job never write to the same
// files.
func GroupOptions(inst jobenv.Instance) *Set {
	oeBase := fmt.Sprintf("%s.%s_w%d", inst.JobName, inst.JobID, inst.Ordinal)
	return NewSet(
		&Option{
			Name:    CD,
			Flag:    "--w-cd",
			Kind:    StringList,
			Split:   true,
			Default: []string{"./"},
			Help:    "Task working directory",
		},
		&Option{
			Name:    OE,
			Flag:    "--w-oe",
			Kind:    StringList,
			Split:   true,
			Unique:  true,
			Default: []string{oeBase},
			Help:    "STDOUT/STDERR file basename",
		},
		&Option{
			Name:    Env,
			Flag:    "--w-env",
			Kind:    StringList,
			Split:   true,
			Default: []string{""},
			Help:    "Task environment tag",
		},
		&Option{
			Name:     Pes,
			Flag:     "-n",
			Kind:     IntList,
			Split:    true,
			Launcher: true,
			Required: true,
			Help:     "Number of processing elements (PEs). REQUIRED",
			Format: func(v any) []string {
				// aprun sees only the total; the per-color breakdown
				// lives in the rank-parameter file.
				return []string{strconv.Itoa(sumInts(v))}
			},
		},
		&Option{Name: "arch", Flag: "-a", Kind: String, Launcher: true, Help: "Host architecture"},
		&Option{Name: "cpu_list", Flag: "-cc", Kind: String, Launcher: true, Help: "CPU list"},
		&Option{Name: "cpu_placement", Flag: "-cp", Kind: String, Launcher: true, Help: "CPU placement file"},
		&Option{Name: "depth", Flag: "-d", Kind: Int, Launcher: true, Help: "Process affinity depth"},
		&Option{Name: "cpus_per_cu", Flag: "-j", Kind: Int, Launcher: true, Help: "CPUs per CU"},
		&Option{Name: "node_list", Flag: "-L", Kind: String, Launcher: true, Help: "Node list"},
		&Option{Name: "pes_per_node", Flag: "-N", Kind: Int, Launcher: true, Help: "PEs per node"},
		&Option{Name: "pes_per_numa_node", Flag: "-S", Kind: Int, Launcher: true, Help: "PEs per NUMA node"},
		&Option{Name: "numa_node_list", Flag: "-sl", Kind: String, Launcher: true, Help: "NUMA node list"},
		&Option{Name: "numa_nodes_per_node", Flag: "-sn", Kind: Int, Launcher: true, Help: "Number of NUMA nodes per node"},
		&Option{Name: "strict_memory", Flag: "-ss", Kind: Flag, Launcher: true, Help: "Use strict memory containment"},
		&Option{
			Name:     Exe,
			Kind:     Remainder,
			Launcher: true,
			Required: true,
			Help:     "Executable and argument string. REQUIRED",
		},
	)
}
