package cli

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/callscope/callscope/internal/config"
	errs "github.com/callscope/callscope/internal/errors"
	"github.com/callscope/callscope/internal/logging"
	"github.com/callscope/callscope/internal/memprof"
	"github.com/callscope/callscope/internal/profiler"
	"github.com/callscope/callscope/internal/report"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

// NewDemoCmd creates the demo command: it runs a built-in instrumented
// workload under a profiling session and renders the reports. It doubles
// as an end-to-end smoke test of the engine.
func NewDemoCmd() *cobra.Command {
	var (
		configPath     string
		samplingRate   float64
		adaptive       bool
		monitor        bool
		iterations     int
		topN           int
		sortBy         string
		flamegraphJSON string
		flamegraphHTML string
		pprofOut       string
		withMemory     bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Profile a built-in workload and print the report",
		Long: `Run a synthetic workload under a profiling session and render the
console report. Optionally export flame graph JSON/HTML or a pprof profile.

Examples:
  callscope demo
  callscope demo --sampling-rate 0.5 --iterations 50
  callscope demo --flamegraph flame.json --pprof profile.pb.gz
  callscope demo --monitor --memory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags override the config file.
			if cmd.Flags().Changed("sampling-rate") {
				cfg.Profiler.SamplingRate = &samplingRate
			}
			if cmd.Flags().Changed("adaptive") {
				cfg.Profiler.AdaptiveSampling = adaptive
			}
			if cmd.Flags().Changed("monitor") {
				cfg.Profiler.RealTimeMonitoring = monitor
			}
			if cmd.Flags().Changed("top") {
				cfg.Report.TopN = topN
			}
			if cmd.Flags().Changed("sort") {
				cfg.Report.SortBy = sortBy
			}

			logger := logging.New(logging.Config{
				Level:  cfg.Logging.Level,
				Pretty: *cfg.Logging.Pretty,
			})

			p := profiler.New(cfg.Engine(), logger)

			var mem *memprof.Profiler
			if withMemory {
				mem = memprof.New(logger)
				mem.Start()
			}

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			fmt.Fprintln(errOut, headerStyle.Render("Profiling demo workload..."))

			p.Start()
			runWorkload(p, iterations)
			p.Stop()
			if mem != nil {
				mem.Stop()
			}

			stats, err := p.Stats()
			if err != nil {
				if err == profiler.ErrNoData {
					fmt.Fprintln(out, "No profiling data available")
					return nil
				}
				return err
			}

			console := &report.ConsoleReporter{TopN: cfg.Report.TopN, SortBy: cfg.Report.SortBy}
			if err := console.Report(stats, out); err != nil {
				return err
			}

			if mem != nil {
				if err := printMemoryStats(mem, out); err != nil {
					return err
				}
			}

			flame := &report.FlameGraphReporter{}
			if flamegraphJSON != "" {
				if err := writeFile(logger, flamegraphJSON, func(f *os.File) error {
					return flame.WriteJSON(stats, f)
				}); err != nil {
					return err
				}
				fmt.Fprintf(errOut, "Flame graph saved to %s\n", flamegraphJSON)
			}
			if flamegraphHTML != "" {
				if err := writeFile(logger, flamegraphHTML, func(f *os.File) error {
					return flame.WriteHTML(stats, f)
				}); err != nil {
					return err
				}
				fmt.Fprintf(errOut, "Flame graph HTML saved to %s\n", flamegraphHTML)
			}
			if pprofOut != "" {
				pr := &report.PprofReporter{}
				if err := writeFile(logger, pprofOut, func(f *os.File) error {
					return pr.Write(stats, f)
				}); err != nil {
					return err
				}
				fmt.Fprintf(errOut, "pprof profile saved to %s\n", pprofOut)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().Float64Var(&samplingRate, "sampling-rate", config.DefaultSamplingRate, "Sampling rate in [0,1]")
	cmd.Flags().BoolVar(&adaptive, "adaptive", false, "Enable adaptive sampling")
	cmd.Flags().BoolVar(&monitor, "monitor", false, "Enable real-time monitoring output")
	cmd.Flags().IntVar(&iterations, "iterations", 20, "Workload iterations")
	cmd.Flags().IntVar(&topN, "top", config.DefaultReportTopN, "Number of functions in the report")
	cmd.Flags().StringVar(&sortBy, "sort", config.DefaultReportSort, "Sort column: total, own, calls, name")
	cmd.Flags().StringVar(&flamegraphJSON, "flamegraph", "", "Write flame graph JSON to file")
	cmd.Flags().StringVar(&flamegraphHTML, "flamegraph-html", "", "Write flame graph HTML to file")
	cmd.Flags().StringVar(&pprofOut, "pprof", "", "Write gzipped pprof profile to file")
	cmd.Flags().BoolVar(&withMemory, "memory", false, "Capture a memory snapshot window as well")

	return cmd
}

func writeFile(logger zerolog.Logger, path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer errs.DeferClose(logger, f, "Failed to close output file")
	return fn(f)
}

func printMemoryStats(mem *memprof.Profiler, w io.Writer) error {
	stats, err := mem.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Memory"))
	fmt.Fprintf(w, "  Heap growth: %+d bytes\n", stats.HeapGrowth)
	fmt.Fprintf(w, "  Allocated:   %d bytes\n", stats.AllocatedBytes)
	fmt.Fprintf(w, "  GC cycles:   %d\n", stats.GCCycles)
	if stats.End.RSS > 0 {
		fmt.Fprintf(w, "  RSS:         %d bytes\n", stats.End.RSS)
	}
	return nil
}

// runWorkload drives a small synthetic call graph through the profiler's
// event interface. The hook calls are explicit here; in a real host the
// interception layer emits them.
func runWorkload(hook profiler.Hook, iterations int) {
	if iterations <= 0 {
		iterations = 1
	}
	for i := 0; i < iterations; i++ {
		instrumented(hook, "demo.process", "demo.go:1", func() {
			instrumented(hook, "demo.parse", "demo.go:2", func() {
				buildStrings(200)
			})
			instrumented(hook, "demo.compute", "demo.go:3", func() {
				instrumented(hook, "demo.fibonacci", "demo.go:4", func() {
					fibonacci(21)
				})
				instrumented(hook, "demo.sortBatch", "demo.go:5", func() {
					sortBatch(500)
				})
			})
		})
	}
}

func instrumented(hook profiler.Hook, name, origin string, fn func()) {
	hook.OnEnter(name, origin)
	defer hook.OnExit(name)
	fn()
}

func fibonacci(n int) int {
	if n < 2 {
		return n
	}
	return fibonacci(n-1) + fibonacci(n-2)
}

func sortBatch(n int) {
	vals := make([]int, n)
	for i := range vals {
		vals[i] = rand.IntN(n * 10)
	}
	sort.Ints(vals)
}

func buildStrings(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("token ")
	}
	return sb.String()
}
