package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/psramsim/mem"
	"github.com/sarchlab/psramsim/monitoring"
	"github.com/sarchlab/psramsim/psram"
	"github.com/sarchlab/psramsim/psram/acceptancetests"
	"github.com/sarchlab/psramsim/sim"
	"github.com/sarchlab/psramsim/simulation"
)

var runFlags = struct {
	numWrites   int
	numReads    int
	seed        int64
	capacity    uint64
	traceDB     string
	traceCSV    string
	monitorPort int
	openBrowser bool
}{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a random-traffic simulation",
	Long: `Run drives the controller with random writes followed by reads ` +
		`of the written data, verifying every byte that comes back.`,
	Run: runSimulation,
}

func init() {
	runCmd.Flags().IntVarP(&runFlags.numWrites,
		"writes", "w", 1000, "number of write requests to issue")
	runCmd.Flags().IntVarP(&runFlags.numReads,
		"reads", "r", 1000, "number of read requests to issue")
	runCmd.Flags().Int64Var(&runFlags.seed,
		"seed", 0, "random seed, 0 picks one from the clock")
	runCmd.Flags().Uint64Var(&runFlags.capacity,
		"capacity", 16*mem.MB, "memory capacity in bytes")
	runCmd.Flags().StringVar(&runFlags.traceDB,
		"trace-db", "", "record the access trace into this SQLite database")
	runCmd.Flags().StringVar(&runFlags.traceCSV,
		"trace-csv", "", "record the access trace into CSV files")
	runCmd.Flags().IntVar(&runFlags.monitorPort,
		"monitor", 0, "serve the monitoring API on this port")
	runCmd.Flags().BoolVar(&runFlags.openBrowser,
		"open-browser", false, "open the monitoring page in a browser")

	rootCmd.AddCommand(runCmd)
}

// progressHook advances a progress bar as device accesses complete.
type progressHook struct {
	bar *monitoring.ProgressBar
}

func (h *progressHook) Func(ctx sim.HookCtx) {
	if ctx.Pos == psram.HookPosAccessComplete {
		h.bar.IncrementFinished(1)
	}
}

func runSimulation(_ *cobra.Command, _ []string) {
	seed := runFlags.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := buildSimulation()
	engine := s.GetEngine()
	freq := 100 * sim.MHz

	memCtrl := psram.MakeBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithCapacity(runFlags.capacity).
		Build("PSRAM")

	agent := acceptancetests.NewMemAccessAgent(engine, freq, "Agent", seed)
	agent.MaxAddress = runFlags.capacity
	agent.WriteLeft = runFlags.numWrites
	agent.ReadLeft = runFlags.numReads
	agent.MemPort = memCtrl.TopPort()

	conn := sim.NewDirectConnection("Conn")
	conn.PlugIn(agent.ToMem())
	conn.PlugIn(memCtrl.TopPort())

	s.RegisterComponent(memCtrl)
	s.RegisterComponent(agent)
	s.TraceAccesses(memCtrl)

	setupProgress(s, memCtrl)

	agent.TickLater()

	start := time.Now()
	if err := engine.Run(); err != nil {
		log.Fatal(err)
	}
	wallTime := time.Since(start)

	if !agent.Done() {
		log.Fatal("simulation ended with requests still outstanding")
	}

	report(s, memCtrl, seed, wallTime)

	s.Terminate()
}

func buildSimulation() *simulation.Simulation {
	builder := simulation.MakeBuilder()

	if runFlags.monitorPort > 0 {
		builder = builder.WithMonitorPort(runFlags.monitorPort)
		if runFlags.openBrowser {
			builder = builder.WithBrowserLaunch()
		}
	} else {
		builder = builder.WithoutMonitoring()
	}

	switch {
	case runFlags.traceDB != "" && runFlags.traceCSV != "":
		log.Fatal("only one of --trace-db and --trace-csv can be used")
	case runFlags.traceDB != "":
		builder = builder.WithTraceDBPath(runFlags.traceDB)
	case runFlags.traceCSV != "":
		builder = builder.WithTraceCSVPrefix(runFlags.traceCSV)
	}

	return builder.Build()
}

func setupProgress(s *simulation.Simulation, memCtrl *psram.Comp) {
	monitor := s.GetMonitor()
	if monitor == nil {
		return
	}

	// Every 4-byte request becomes two 16-bit device accesses.
	total := 2 * uint64(runFlags.numWrites+runFlags.numReads)
	bar := monitor.CreateProgressBar("Device accesses", total)
	memCtrl.AcceptHook(&progressHook{bar: bar})
}

func report(
	s *simulation.Simulation,
	memCtrl *psram.Comp,
	seed int64,
	wallTime time.Duration,
) {
	tracer := s.GetAccessTracer()

	fmt.Printf("seed:            %d\n", seed)
	fmt.Printf("device accesses: %d\n", tracer.TotalAccesses())
	fmt.Printf("  reads:         %d\n", tracer.ReadCount())
	fmt.Printf("  writes:        %d\n", tracer.WriteCount())
	fmt.Printf("page-hit rate:   %.2f%%\n", tracer.PageHitRate()*100)
	fmt.Printf("simulated time:  %.9f s\n",
		float64(s.GetEngine().CurrentTime()))
	fmt.Printf("wall time:       %s\n", wallTime)

	if n := memCtrl.Device().RefreshViolations(); n > 0 {
		log.Fatalf("device reported %d refresh violations", n)
	}
}
