package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/signalslot/internal/errors"
	"github.com/vango-dev/signalslot/pkg/middleware"
	"github.com/vango-dev/signalslot/pkg/signal"
)

type benchConfig struct {
	Subscribers int
	Emitters    int
	Mutators    int
	Duration    time.Duration
	MetricsAddr string
	JSON        bool
	Verbose     bool
}

func (c benchConfig) validate() error {
	switch {
	case c.Subscribers < 0:
		return errors.New("S300").WithDetailf("--subscribers must not be negative, got %d", c.Subscribers)
	case c.Emitters < 1:
		return errors.New("S300").WithDetailf("--emitters must be at least 1, got %d", c.Emitters)
	case c.Mutators < 0:
		return errors.New("S300").WithDetailf("--mutators must not be negative, got %d", c.Mutators)
	case c.Duration <= 0:
		return errors.New("S300").WithDetailf("--duration must be positive, got %s", c.Duration)
	}
	return nil
}

func benchCmd() *cobra.Command {
	cfg := benchConfig{
		Subscribers: 8,
		Emitters:    4,
		Mutators:    2,
		Duration:    5 * time.Second,
	}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Stress concurrent emit against connect and disconnect",
		Long: `Run emitters against one signal while mutators keep connecting
and disconnecting transient slots.

Every long-lived subscriber must see every emit exactly once; the
report says whether that held.

Examples:
  signalslot bench
  signalslot bench --emitters=16 --mutators=8 --duration=30s
  signalslot bench --metrics-addr=:9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return bench(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVar(&cfg.Subscribers, "subscribers", cfg.Subscribers, "Long-lived slots connected for the whole run")
	cmd.Flags().IntVar(&cfg.Emitters, "emitters", cfg.Emitters, "Goroutines emitting in a loop")
	cmd.Flags().IntVar(&cfg.Mutators, "mutators", cfg.Mutators, "Goroutines connecting and disconnecting transient slots")
	cmd.Flags().DurationVarP(&cfg.Duration, "duration", "d", cfg.Duration, "How long to run")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address while running")
	cmd.Flags().BoolVar(&cfg.JSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log server lifecycle to stderr")

	return cmd
}

type benchReport struct {
	DurationMS  int64   `json:"duration_ms"`
	Subscribers int     `json:"subscribers"`
	Emitters    int     `json:"emitters"`
	Mutators    int     `json:"mutators"`
	Emits       uint64  `json:"emits"`
	EmitsPerSec float64 `json:"emits_per_sec"`
	Deliveries  uint64  `json:"deliveries"`
	Transient   uint64  `json:"transient_deliveries"`
	Connects    uint64  `json:"connects"`
	Disconnects uint64  `json:"disconnects"`
	Errors      uint64  `json:"errors"`
	Consistent  bool    `json:"consistent"`
}

type benchCounters struct {
	emits       atomic.Uint64
	deliveries  atomic.Uint64
	transient   atomic.Uint64
	connects    atomic.Uint64
	disconnects atomic.Uint64
	errors      atomic.Uint64
}

func bench(ctx context.Context, cfg benchConfig, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, cfg.Verbose)
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.MetricsAddr != "" {
		srv, addr, err := startMetricsServer(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return err
		}
		if !cfg.JSON {
			info(stdout, "Serving metrics on http://%s/metrics", addr)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	report := runBench(ctx, cfg, reg)

	if cfg.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printBenchReport(stdout, report)
	}

	if !report.Consistent {
		return errors.Newf(errors.CategoryCLI, "bench: a subscriber missed or repeated deliveries")
	}
	return nil
}

// runBench drives one signal until cfg.Duration elapses or ctx is done.
func runBench(ctx context.Context, cfg benchConfig, reg prometheus.Registerer) benchReport {
	var c benchCounters

	factory := promauto.With(reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "signalslot",
		Subsystem: "bench",
		Name:      "emits",
		Help:      "Emits completed so far.",
	}, func() float64 { return float64(c.emits.Load()) })

	sig := signal.NewSignal[uint64](signal.WithName("bench"))
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "signalslot",
		Subsystem: "bench",
		Name:      "subscribers",
		Help:      "Slots currently connected to the bench signal.",
	}, func() float64 { return float64(sig.Len()) })

	subMetrics := middleware.Prometheus[uint64]("subscriber", middleware.WithRegistry(reg))
	transientMetrics := middleware.Prometheus[uint64]("transient", middleware.WithRegistry(reg))

	counts := make([]atomic.Uint64, cfg.Subscribers)
	for i := range counts {
		n := &counts[i]
		slot := middleware.Wrap[uint64](signal.Func(func(uint64) {
			n.Add(1)
			c.deliveries.Add(1)
		}), subMetrics)
		if _, err := sig.Connect(slot); err != nil {
			c.errors.Add(1)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < cfg.Emitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var v uint64
			for runCtx.Err() == nil {
				v++
				if err := sig.Emit(v); err != nil {
					c.errors.Add(1)
					continue
				}
				c.emits.Add(1)
			}
		}()
	}

	for i := 0; i < cfg.Mutators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for runCtx.Err() == nil {
				slot := middleware.Wrap[uint64](signal.Func(func(uint64) {
					c.transient.Add(1)
				}), transientMetrics)
				if _, err := sig.Connect(slot); err != nil {
					c.errors.Add(1)
					continue
				}
				c.connects.Add(1)
				if err := sig.Disconnect(slot); err != nil {
					c.errors.Add(1)
					continue
				}
				c.disconnects.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	emits := c.emits.Load()
	consistent := c.errors.Load() == 0
	for i := range counts {
		if counts[i].Load() != emits {
			consistent = false
		}
	}

	return benchReport{
		DurationMS:  elapsed.Milliseconds(),
		Subscribers: cfg.Subscribers,
		Emitters:    cfg.Emitters,
		Mutators:    cfg.Mutators,
		Emits:       emits,
		EmitsPerSec: float64(emits) / math.Max(0.001, elapsed.Seconds()),
		Deliveries:  c.deliveries.Load(),
		Transient:   c.transient.Load(),
		Connects:    c.connects.Load(),
		Disconnects: c.disconnects.Load(),
		Errors:      c.errors.Load(),
		Consistent:  consistent,
	}
}

func printBenchReport(w io.Writer, r benchReport) {
	if r.Consistent {
		success(w, "Every subscriber saw every emit")
	} else {
		warn(w, "Subscribers disagree with the emit count")
	}
	fmt.Fprintln(w)
	info(w, "Duration:     %s", time.Duration(r.DurationMS)*time.Millisecond)
	info(w, "Workload:     %d subscribers, %d emitters, %d mutators", r.Subscribers, r.Emitters, r.Mutators)
	info(w, "Emits:        %d (%.0f/s)", r.Emits, r.EmitsPerSec)
	info(w, "Deliveries:   %d (+%d transient)", r.Deliveries, r.Transient)
	info(w, "Connects:     %d", r.Connects)
	info(w, "Disconnects:  %d", r.Disconnects)
	info(w, "Errors:       %d", r.Errors)
	fmt.Fprintln(w)
}

// newMetricsRouter serves the registry at /metrics and a liveness probe at
// /healthz.
func newMetricsRouter(reg prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

// startMetricsServer listens on addr before returning so a bad address
// fails the command up front.
func startMetricsServer(addr string, reg prometheus.Gatherer, logger *slog.Logger) (*http.Server, net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.New("S301").WithDetailf("listen on %s", addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           newMetricsRouter(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Debug("metrics server started", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv, ln.Addr(), nil
}
