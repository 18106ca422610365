package graph

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/vango-dev/signalslot/internal/config"
	"github.com/vango-dev/signalslot/internal/errors"
	"github.com/vango-dev/signalslot/pkg/middleware"
	"github.com/vango-dev/signalslot/pkg/signal"
)

func parse(t *testing.T, src string) *config.Graph {
	t.Helper()
	cfg, err := config.Parse([]byte(src), config.FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return cfg
}

func build(t *testing.T, src string, opts ...Option) *Graph {
	t.Helper()
	g, err := Build(parse(t, src), opts...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func deliveryValues(ds []Delivery) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.Value
	}
	return out
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestChainPropagation(t *testing.T) {
	g := build(t, `
name: chain
cells: [{name: a}, {name: b}, {name: c}]
edges:
  - {from: a, to: b}
  - {from: b, to: c}
observe: [c]
steps:
  - {cell: a, value: 1}
  - {cell: a, value: 1}
  - {cell: a, value: 2}
`)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := deliveryValues(g.Deliveries())
	if want := []float64{1, 2}; !equalFloats(got, want) {
		t.Errorf("expected deliveries %v, got %v", want, got)
	}

	for _, cv := range g.Snapshot() {
		if !cv.Present || cv.Value != 2 {
			t.Errorf("cell %s = %+v, want present 2", cv.Name, cv)
		}
	}
}

func TestDeliveriesCarryStepAndSeq(t *testing.T) {
	g := build(t, `
cells: [{name: a}]
observe: [a]
steps:
  - {cell: a, value: 1}
  - {cell: a, value: 3}
`)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ds := g.Deliveries()
	if len(ds) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(ds))
	}
	for i, d := range ds {
		if d.Seq != i+1 || d.Step != i || d.Cell != "a" {
			t.Errorf("delivery %d = %+v", i, d)
		}
	}
}

func TestScaledEdge(t *testing.T) {
	g := build(t, `
name: thermostat
cells:
  - {name: celsius, initial: 20}
  - {name: fahrenheit}
edges:
  - {from: celsius, to: fahrenheit, scale: 1.8, offset: 32}
observe: [fahrenheit]
steps:
  - {cell: celsius, value: 100}
`)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	f, _ := g.Cell("fahrenheit")
	if v, ok := f.Lookup(); !ok || v != 212 {
		t.Errorf("expected fahrenheit 212, got %v (present %v)", v, ok)
	}
}

func TestSnapshotReportsAbsentCells(t *testing.T) {
	g := build(t, `
cells: [{name: a, initial: 4}, {name: b}]
`)
	snap := g.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(snap))
	}
	if snap[0].Name != "a" || !snap[0].Present || snap[0].Value != 4 {
		t.Errorf("a = %+v", snap[0])
	}
	if snap[1].Name != "b" || snap[1].Present {
		t.Errorf("b should be absent, got %+v", snap[1])
	}
}

func TestBlockedStep(t *testing.T) {
	g := build(t, `
cells: [{name: a}, {name: b}]
edges: [{from: a, to: b}]
observe: [b]
steps:
  - {cell: a, value: 1}
  - {cell: a, blocked: true}
  - {cell: a, value: 2}
  - {cell: a, blocked: false}
  - {cell: a, value: 2}
  - {cell: a, value: 3}
`)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 2 was stored while blocked, so setting it again is not a change.
	got := deliveryValues(g.Deliveries())
	if want := []float64{1, 3}; !equalFloats(got, want) {
		t.Errorf("expected deliveries %v, got %v", want, got)
	}
	a, _ := g.Cell("a")
	if a.Blocked() {
		t.Error("a should be unblocked after the run")
	}
}

func TestBlockAndSetInOneStep(t *testing.T) {
	g := build(t, `
cells: [{name: a}]
observe: [a]
steps:
  - {cell: a, value: 9, blocked: true}
`)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(g.Deliveries()); n != 0 {
		t.Errorf("blocked is applied before the value, expected no deliveries, got %d", n)
	}
	snap := g.Snapshot()
	if !snap[0].Blocked || snap[0].Value != 9 {
		t.Errorf("a = %+v", snap[0])
	}
}

func TestForceStep(t *testing.T) {
	g := build(t, `
cells: [{name: a, initial: 5}]
observe: [a]
steps:
  - {cell: a, value: 5}
  - {cell: a, value: 5, force: true}
`)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := deliveryValues(g.Deliveries())
	if want := []float64{5}; !equalFloats(got, want) {
		t.Errorf("expected only the forced delivery, got %v", got)
	}
}

func TestCycleSettles(t *testing.T) {
	g := build(t, `
cells: [{name: a}, {name: b}]
edges:
  - {from: a, to: b}
  - {from: b, to: a}
observe: [a, b]
steps:
  - {cell: a, value: 7}
`)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, cv := range g.Snapshot() {
		if cv.Value != 7 {
			t.Errorf("cell %s = %v, want 7", cv.Name, cv.Value)
		}
	}
	if n := len(g.Deliveries()); n != 2 {
		t.Errorf("expected each cell to change once, got %d deliveries", n)
	}
}

func TestCycleSettlesOnNaN(t *testing.T) {
	g := build(t, `
cells: [{name: a}, {name: b}]
edges:
  - {from: a, to: b}
  - {from: b, to: a}
observe: [b]
steps:
  - {cell: a, value: .nan}
  - {cell: a, value: .nan}
`, WithMaxDepth(8))
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ds := g.Deliveries()
	if len(ds) != 1 || !math.IsNaN(ds[0].Value) {
		t.Errorf("expected one NaN delivery, got %+v", ds)
	}
}

func TestDivergingCycleFails(t *testing.T) {
	g := build(t, `
cells: [{name: a}, {name: b}]
edges:
  - {from: a, to: b, scale: 2}
  - {from: b, to: a}
steps:
  - {cell: a, value: 1}
`, WithMaxDepth(16))

	err := g.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error from a diverging cycle")
	}
	if !stderrors.Is(err, ErrTooDeep) {
		t.Errorf("expected ErrTooDeep, got %v", err)
	}
	if errors.CodeOf(err) != "S200" {
		t.Errorf("expected code S200, got %q", errors.CodeOf(err))
	}

	// The counter unwinds, so a later step on an unrelated path works.
	if err := g.Apply(config.Step{Cell: "b", Blocked: ptr(true)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := g.Apply(config.Step{Cell: "a", Value: ptr(-1.0)}); err != nil {
		t.Errorf("expected a blocked b to stop the cycle, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	g := build(t, `
cells: [{name: a}]
observe: [a]
steps:
  - {cell: a, value: 1}
  - {cell: a, value: 2}
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Run(ctx)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.CodeOf(err) != "S201" {
		t.Errorf("expected code S201, got %q", errors.CodeOf(err))
	}
	if n := len(g.Deliveries()); n != 0 {
		t.Errorf("expected no deliveries, got %d", n)
	}
}

func TestApplyUnknownCell(t *testing.T) {
	g := build(t, `cells: [{name: a}]`)
	err := g.Apply(config.Step{Cell: "zz", Value: ptr(1.0)})
	if errors.CodeOf(err) != "S111" {
		t.Errorf("expected S111, got %v", err)
	}
}

func TestApplyRecordsStepMinusOne(t *testing.T) {
	g := build(t, `
cells: [{name: a}]
observe: [a]
`)
	if err := g.Apply(config.Step{Cell: "a", Value: ptr(1.0)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	ds := g.Deliveries()
	if len(ds) != 1 || ds[0].Step != -1 {
		t.Errorf("expected one delivery with step -1, got %+v", ds)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := &config.Graph{
		Name:  "bad",
		Cells: []config.Cell{{Name: "a"}},
		Edges: []config.Edge{{From: "a", To: "missing"}},
	}
	if _, err := Build(cfg); errors.CodeOf(err) != "S111" {
		t.Errorf("expected S111, got %v", err)
	}
}

func TestWithMiddleware(t *testing.T) {
	var seen []string
	tag := func(cell string) middleware.Middleware[float64] {
		return func(next signal.Slot[float64]) signal.Slot[float64] {
			return signal.FuncErr(func(v float64) error {
				seen = append(seen, cell)
				return next.Receive(v)
			})
		}
	}

	g := build(t, `
cells: [{name: a}, {name: b}]
edges: [{from: a, to: b}]
observe: [a, b]
steps: [{cell: a, value: 1}]
`, WithMiddleware(tag), WithMiddleware(nil))

	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected middleware on both observers, got %v", seen)
	}
	if n := len(g.Deliveries()); n != 2 {
		t.Errorf("middleware should still forward, got %d deliveries", n)
	}
}

func TestMiddlewareErrorFailsStep(t *testing.T) {
	boom := stderrors.New("boom")
	failing := func(string) middleware.Middleware[float64] {
		return func(signal.Slot[float64]) signal.Slot[float64] {
			return signal.FuncErr(func(float64) error { return boom })
		}
	}

	g := build(t, `
cells: [{name: a}]
observe: [a]
steps: [{cell: a, value: 1}, {cell: a, value: 2}]
`, WithMiddleware(failing))

	err := g.Run(context.Background())
	if !stderrors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var de *signal.DeliveryError
	if !stderrors.As(err, &de) || de.Signal != "a" {
		t.Errorf("expected a DeliveryError from cell a, got %v", err)
	}
	a, _ := g.Cell("a")
	if a.Get() != 1 {
		t.Errorf("run should stop at the failing step, a = %v", a.Get())
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	g := build(t, `
name: logged
cells: [{name: a}, {name: b}]
edges: [{from: a, to: b}]
steps: [{cell: a, value: 1}]
`, WithLogger(logger))
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"edge connected", "cell set", "graph=logged"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output:\n%s", want, out)
		}
	}
}

func ptr[T any](v T) *T { return &v }
