package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/signalslot/internal/config"
	"github.com/vango-dev/signalslot/internal/errors"
	"github.com/vango-dev/signalslot/internal/graph"
	"github.com/vango-dev/signalslot/pkg/middleware"
)

type runOptions struct {
	jsonOut     bool
	verbose     bool
	trace       bool
	metricsFile string
	maxDepth    int
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <graph-file>",
		Short: "Run a graph file",
		Long: `Load a graph file, wire its cells, apply its steps in order,
and print the final cell values and every observed change.

Examples:
  signalslot run thermostat.yaml
  signalslot run thermostat.yaml --json
  signalslot run thermostat.yaml --verbose --metrics-file metrics.prom`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGraph(ctx, args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log wiring, steps and deliveries to stderr")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Open an OpenTelemetry span per observed delivery")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus delivery metrics to this file after the run")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", graph.DefaultMaxDepth, "Fail a step that propagates through more edges than this")

	return cmd
}

type runResult struct {
	Graph      string            `json:"graph"`
	Steps      int               `json:"steps"`
	Cells      []graph.CellValue `json:"cells"`
	Deliveries []graph.Delivery  `json:"deliveries"`
	Error      string            `json:"error,omitempty"`
}

func runGraph(ctx context.Context, path string, opts runOptions, stdout, stderr io.Writer) error {
	if opts.maxDepth < 1 {
		return errors.New("S300").WithDetailf("--max-depth must be at least 1, got %d", opts.maxDepth)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, opts.verbose)
	buildOpts := []graph.Option{graph.WithMaxDepth(opts.maxDepth)}
	if logger != nil {
		buildOpts = append(buildOpts,
			graph.WithLogger(logger),
			graph.WithMiddleware(func(cell string) middleware.Middleware[float64] {
				return middleware.Logging[float64](logger, cell)
			}),
		)
	}

	var registry *prometheus.Registry
	if opts.metricsFile != "" {
		registry = prometheus.NewRegistry()
		buildOpts = append(buildOpts, graph.WithMiddleware(func(cell string) middleware.Middleware[float64] {
			return middleware.Prometheus[float64](cell,
				middleware.WithRegistry(registry),
				middleware.WithConstLabels(prometheus.Labels{"graph": cfg.Name}),
			)
		}))
	}

	if opts.trace {
		buildOpts = append(buildOpts, graph.WithMiddleware(func(cell string) middleware.Middleware[float64] {
			return middleware.OpenTelemetry[float64](cell,
				middleware.WithParentContext(ctx),
				middleware.WithAttributes(attribute.String("signal.graph", cfg.Name)),
			)
		}))
	}

	g, err := graph.Build(cfg, buildOpts...)
	if err != nil {
		return err
	}

	runErr := g.Run(ctx)

	if registry != nil {
		if err := prometheus.WriteToTextfile(opts.metricsFile, registry); err != nil {
			return errors.New("S302").WithLocation(opts.metricsFile, 0).Wrap(err)
		}
	}

	res := runResult{
		Graph:      g.Name(),
		Steps:      len(cfg.Steps),
		Cells:      g.Snapshot(),
		Deliveries: g.Deliveries(),
	}
	if runErr != nil {
		res.Error = runErr.Error()
	}

	if opts.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		return runErr
	}

	printRunResult(stdout, res, runErr == nil)
	return runErr
}

func printRunResult(w io.Writer, res runResult, ok bool) {
	if ok {
		success(w, "Ran %s (%d steps)", res.Graph, res.Steps)
	} else {
		warn(w, "Run of %s stopped early", res.Graph)
	}
	if res.Steps == 0 {
		warn(w, "Graph has no steps")
	}

	fmt.Fprintln(w)
	info(w, "Cells:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range res.Cells {
		value := "-"
		if c.Present {
			value = formatValue(c.Value)
		}
		state := ""
		if c.Blocked {
			state = "blocked"
		}
		fmt.Fprintf(tw, "    %s\t%s\t%s\n", c.Name, value, state)
	}
	tw.Flush()

	fmt.Fprintln(w)
	if len(res.Deliveries) == 0 {
		info(w, "No observed changes")
		return
	}
	info(w, "Observed changes:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, d := range res.Deliveries {
		step := "-"
		if d.Step >= 0 {
			step = strconv.Itoa(d.Step)
		}
		fmt.Fprintf(tw, "    #%d\tstep %s\t%s\t%s\n", d.Seq, step, d.Cell, formatValue(d.Value))
	}
	tw.Flush()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
