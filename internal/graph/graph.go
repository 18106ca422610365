// Package graph wires value cells from a graph file into a running
// propagation network and drives it through the file's steps.
package graph

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/signalslot/internal/config"
	"github.com/vango-dev/signalslot/internal/errors"
	"github.com/vango-dev/signalslot/pkg/middleware"
	"github.com/vango-dev/signalslot/pkg/signal"
)

// DefaultMaxDepth bounds how many edges a single step may propagate
// through before the step fails.
const DefaultMaxDepth = 256

// ErrTooDeep is returned (wrapped) when a step propagates through more
// edges than the depth limit allows, as a diverging cycle does.
var ErrTooDeep = stderrors.New("graph: propagation too deep")

// Delivery is one change notification seen by an observed cell.
type Delivery struct {
	Seq   int     `json:"seq"`
	Step  int     `json:"step"`
	Cell  string  `json:"cell"`
	Value float64 `json:"value"`
}

// CellValue is a cell's state at Snapshot time.
type CellValue struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
	Blocked bool    `json:"blocked"`
}

// Option configures Build.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	mws      []func(cell string) middleware.Middleware[float64]
	maxDepth int
}

// WithLogger sets the logger used for step and wiring debug logs. Cells
// share it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMiddleware decorates every observer slot with the middleware fn
// returns for that cell. Repeated options are chained in order, the first
// outermost.
func WithMiddleware(fn func(cell string) middleware.Middleware[float64]) Option {
	return func(o *options) {
		if fn != nil {
			o.mws = append(o.mws, fn)
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// Graph is a built network of cells.
type Graph struct {
	name   string
	logger *slog.Logger
	steps  []config.Step

	order []string
	cells map[string]*signal.ValueSlot[float64]

	depth    atomic.Int32
	maxDepth int32

	mu         sync.Mutex
	step       int
	deliveries []Delivery
}

// Build creates one cell per declared cell, connects every edge and
// attaches a recording observer to each observed cell. cfg must already
// be valid; Build re-validates it and returns the same coded errors.
func Build(cfg *config.Graph, opts ...Option) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	g := &Graph{
		name:     cfg.Name,
		logger:   logger.With("graph", cfg.Name),
		steps:    cfg.Steps,
		cells:    make(map[string]*signal.ValueSlot[float64], len(cfg.Cells)),
		maxDepth: int32(o.maxDepth),
		step:     -1,
	}

	cellOpts := func(name string) []signal.Option {
		opts := []signal.Option{signal.WithName(name)}
		if o.logger != nil {
			opts = append(opts, signal.WithLogger(o.logger))
		}
		return opts
	}

	for _, c := range cfg.Cells {
		var cell *signal.ValueSlot[float64]
		if c.Initial != nil {
			cell = signal.NewValueSlotOf(*c.Initial, cellOpts(c.Name)...)
		} else {
			cell = signal.NewValueSlot[float64](cellOpts(c.Name)...)
		}
		g.cells[c.Name] = cell
		g.order = append(g.order, c.Name)
	}

	for _, e := range cfg.Edges {
		var target signal.Slot[float64] = g.cells[e.To]
		if !e.Identity() {
			target = signal.Map(e.Apply, target)
		}
		if _, err := g.cells[e.From].Connect(&guard{g: g, next: target}); err != nil {
			return nil, errors.New("S200").WithDetailf("connect %s -> %s", e.From, e.To).Wrap(err)
		}
		g.logger.Debug("edge connected", "from", e.From, "to", e.To)
	}

	for _, name := range cfg.Observe {
		var slot signal.Slot[float64] = &observer{g: g, cell: name}
		if len(o.mws) > 0 {
			mws := make([]middleware.Middleware[float64], 0, len(o.mws))
			for _, fn := range o.mws {
				mws = append(mws, fn(name))
			}
			slot = middleware.Wrap(slot, mws...)
		}
		if _, err := g.cells[name].Connect(slot); err != nil {
			return nil, errors.New("S200").WithDetailf("observe %s", name).Wrap(err)
		}
	}

	return g, nil
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Cell returns the named cell.
func (g *Graph) Cell(name string) (*signal.ValueSlot[float64], bool) {
	c, ok := g.cells[name]
	return c, ok
}

// Run applies every step in order. It stops before the next step once ctx
// is done, and at the first step that fails. Run and Apply must not be
// called concurrently.
func (g *Graph) Run(ctx context.Context) error {
	for i, s := range g.steps {
		if err := ctx.Err(); err != nil {
			return errors.New("S201").WithDetailf("stopped before steps[%d]", i).Wrap(err)
		}
		if err := g.apply(i, s); err != nil {
			return err
		}
	}
	return nil
}

// Apply performs a single step outside the graph's script. Deliveries it
// causes are recorded with Step -1.
func (g *Graph) Apply(s config.Step) error {
	return g.apply(-1, s)
}

func (g *Graph) apply(i int, s config.Step) error {
	cell, ok := g.cells[s.Cell]
	if !ok {
		return errors.New("S111").WithDetailf("step references unknown cell %q", s.Cell)
	}

	g.mu.Lock()
	g.step = i
	g.mu.Unlock()

	if s.Blocked != nil {
		cell.SetBlocked(*s.Blocked)
		g.logger.Debug("cell blocked", "step", i, "cell", s.Cell, "blocked", *s.Blocked)
	}
	if s.Value == nil {
		return nil
	}

	var err error
	if s.Force {
		err = cell.Emit(*s.Value)
	} else {
		err = cell.Set(*s.Value)
	}
	g.logger.Debug("cell set", "step", i, "cell", s.Cell, "value", *s.Value, "force", s.Force)
	if stderrors.Is(err, ErrTooDeep) {
		return errors.New("S200").
			WithDetailf("steps[%d] setting %q to %v propagated past %d edges", i, s.Cell, *s.Value, g.maxDepth).
			WithSuggestion("Check the graph for a cycle whose edges keep changing the value").
			Wrap(ErrTooDeep)
	}
	if err != nil {
		return errors.New("S200").
			WithDetailf("steps[%d] setting %q to %v: %v", i, s.Cell, *s.Value, err).
			Wrap(err)
	}
	return nil
}

// Snapshot returns every cell's state in declaration order.
func (g *Graph) Snapshot() []CellValue {
	out := make([]CellValue, 0, len(g.order))
	for _, name := range g.order {
		cell := g.cells[name]
		v, ok := cell.Lookup()
		out = append(out, CellValue{
			Name:    name,
			Value:   v,
			Present: ok,
			Blocked: cell.Blocked(),
		})
	}
	return out
}

// Deliveries returns a copy of the notifications recorded so far, in the
// order they arrived.
func (g *Graph) Deliveries() []Delivery {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Delivery, len(g.deliveries))
	copy(out, g.deliveries)
	return out
}

func (g *Graph) record(cell string, v float64) {
	g.mu.Lock()
	g.deliveries = append(g.deliveries, Delivery{
		Seq:   len(g.deliveries) + 1,
		Step:  g.step,
		Cell:  cell,
		Value: v,
	})
	g.mu.Unlock()
}

type observer struct {
	g    *Graph
	cell string
}

func (o *observer) Receive(v float64) error {
	o.g.record(o.cell, v)
	return nil
}

// guard counts nesting across edges and fails past maxDepth.
type guard struct {
	g    *Graph
	next signal.Slot[float64]
}

func (d *guard) Receive(v float64) error {
	if d.g.depth.Add(1) > d.g.maxDepth {
		d.g.depth.Add(-1)
		return ErrTooDeep
	}
	defer d.g.depth.Add(-1)
	return d.next.Receive(v)
}
