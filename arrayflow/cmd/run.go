package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/arrayflow/actors"
	"github.com/sarchlab/arrayflow/config"
	"github.com/sarchlab/arrayflow/dataflow"
	"github.com/sarchlab/arrayflow/director"
	"github.com/sarchlab/arrayflow/hooking"
	"github.com/sarchlab/arrayflow/simulation"
	"github.com/sarchlab/arrayflow/tracing"
)

type runOptions struct {
	iterations  int
	db          string
	recordTo    string
	noRecord    bool
	monitor     bool
	monitorPort int
	openMonitor bool
	wait        bool
	logFirings  bool
	timeActors  bool
	countHooks  bool
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	runCmd := &cobra.Command{
		Use:   "run graph.json",
		Short: "Run a graph and print what its collectors received.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("iterations") {
				opts.iterations = envInt(EnvIterations, 0)
			}

			return runGraph(cmd.Context(), args[0], opts, cmd.OutOrStdout())
		},
	}

	flags := runCmd.Flags()
	flags.IntVarP(&opts.iterations, "iterations", "n", 0,
		"number of iterations, overrides the graph and "+EnvIterations)
	flags.StringVar(&opts.db, "db", envString(EnvDB, ""),
		"database name without the .sqlite3 suffix")
	flags.StringVar(&opts.recordTo, "record-to",
		envString(EnvRecordTo, ""),
		"record into a database URL, e.g. clickhouse://localhost:9000/db, "+
			"mongodb://localhost:27017/db or mysql://user@tcp(host:3306)/db")
	flags.BoolVar(&opts.noRecord, "no-record", false,
		"do not write a database")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"serve the monitoring page while running")
	flags.IntVar(&opts.monitorPort, "monitor-port",
		envInt(EnvMonitorPort, 0), "port of the monitoring page")
	flags.BoolVar(&opts.openMonitor, "open-monitor", false,
		"open the monitoring page in a browser, implies --monitor")
	flags.BoolVar(&opts.wait, "wait", false,
		"keep the monitor running after the graph finishes, until interrupted")
	flags.BoolVar(&opts.logFirings, "log", false,
		"log every firing to stderr")
	flags.BoolVar(&opts.timeActors, "time", false,
		"report the time each actor spends firing")
	flags.BoolVar(&opts.countHooks, "count", false,
		"report how often each hook position was reached on each edge and "+
			"on the director")

	return runCmd
}

func runGraph(
	ctx context.Context,
	path string,
	opts runOptions,
	out io.Writer,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, err := config.Load(path)
	if err != nil {
		return err
	}

	c, err := g.Build(config.DefaultRegistry())
	if err != nil {
		return err
	}

	iterations := g.Iterations
	if opts.iterations > 0 {
		iterations = opts.iterations
	}

	if iterations == 0 {
		iterations = 1
	}

	s := buildSimulation(c, opts)
	defer s.Terminate()

	if opts.logFirings {
		logger := log.New(os.Stderr, "", log.LstdFlags)
		s.GetDirector().AcceptHook(hooking.NewLogHook(logger,
			director.HookPosAfterFiring, director.HookPosRunError))
	}

	var timer *tracing.FiringTimeTracer
	if opts.timeActors {
		timer = tracing.NewFiringTimeTracer(tracing.WallClock{}, nil)
		s.GetDirector().AcceptHook(timer)
	}

	var counter *hooking.CountTracer
	if opts.countHooks {
		counter = hooking.NewCountTracer()
		s.GetDirector().AcceptHook(counter)
		s.GetDirector().AcceptEdgeHook(counter)
	}

	if opts.openMonitor {
		url := fmt.Sprintf("http://localhost:%d", s.MonitorPort())
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open %s: %v\n", url, err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := s.Run(ctx, iterations); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d iterations, schedule %s\n",
		g.Name, iterations, s.GetDirector().Schedule())

	for _, a := range c.Actors() {
		collector, ok := a.(*actors.Collector)
		if !ok {
			continue
		}

		for i, tokens := range collector.Iterations() {
			fmt.Fprintf(out, "%s[%d]: %v\n", collector.Name(), i, tokens)
		}
	}

	if timer != nil {
		fmt.Fprintln(out)

		if err := timer.Report(out); err != nil {
			return err
		}
	}

	if counter != nil {
		fmt.Fprintln(out)

		if err := counter.Report(out); err != nil {
			return err
		}
	}

	if opts.wait && s.GetMonitor() != nil {
		fmt.Fprintf(os.Stderr, "Monitoring on port %d, press Ctrl-C to exit\n",
			s.MonitorPort())
		<-ctx.Done()
	}

	return nil
}

func buildSimulation(
	c *dataflow.Composite,
	opts runOptions,
) *simulation.Simulation {
	b := simulation.MakeBuilder()

	switch {
	case opts.noRecord:
		b = b.WithoutRecording()
	case opts.recordTo != "":
		b = b.WithRecordingTarget(opts.recordTo)
	case opts.db != "":
		b = b.WithOutputFileName(opts.db)
	}

	if opts.monitor || opts.openMonitor {
		b = b.WithMonitorPort(opts.monitorPort)
	} else {
		b = b.WithoutMonitoring()
	}

	return b.Build(c)
}
