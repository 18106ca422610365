package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/signalslot/internal/errors"
)

// Format identifies a graph file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DefaultName is used when a graph has no name and none can be derived
// from a file path.
const DefaultName = "graph"

// Graph is the complete contents of a graph file.
type Graph struct {
	// Name identifies the graph in output and logs. Defaults to the file
	// base name without extension.
	Name string `yaml:"name" json:"name,omitempty"`

	// Cells are the value cells, in declaration order.
	Cells []Cell `yaml:"cells" json:"cells"`

	// Edges forward changes from one cell into another.
	Edges []Edge `yaml:"edges" json:"edges,omitempty"`

	// Observe lists cells whose change notifications are recorded.
	Observe []string `yaml:"observe" json:"observe,omitempty"`

	// Steps are applied in order by graph.Run.
	Steps []Step `yaml:"steps" json:"steps,omitempty"`

	path string
}

// Cell declares one value cell. A cell without Initial starts absent.
type Cell struct {
	Name    string   `yaml:"name" json:"name"`
	Initial *float64 `yaml:"initial" json:"initial,omitempty"`
}

// Edge connects From's change signal to To. The forwarded value is
// from*Scale + Offset; Scale defaults to 1.
type Edge struct {
	From   string   `yaml:"from" json:"from"`
	To     string   `yaml:"to" json:"to"`
	Scale  *float64 `yaml:"scale" json:"scale,omitempty"`
	Offset float64  `yaml:"offset" json:"offset,omitempty"`
}

// Identity reports whether the edge forwards values unchanged.
func (e Edge) Identity() bool {
	return (e.Scale == nil || *e.Scale == 1) && e.Offset == 0
}

// Apply maps a value across the edge.
func (e Edge) Apply(v float64) float64 {
	if e.Scale != nil {
		v *= *e.Scale
	}
	return v + e.Offset
}

// Step is one scripted action on a cell. Blocked, when set, is applied
// before Value. Force emits Value even when it equals the current one.
type Step struct {
	Cell    string   `yaml:"cell" json:"cell"`
	Value   *float64 `yaml:"value" json:"value,omitempty"`
	Blocked *bool    `yaml:"blocked" json:"blocked,omitempty"`
	Force   bool     `yaml:"force" json:"force,omitempty"`
}

// New returns an empty graph with defaults applied.
func New() *Graph {
	return &Graph{Name: DefaultName}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New("S103").
		WithLocation(path, 0).
		WithDetailf("extension %q is not recognized", filepath.Ext(path))
}

// Load reads, parses and validates the graph file at path.
func Load(path string) (*Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("S100").
				WithLocation(path, 0).
				WithDetail("No graph file found at " + path)
		}
		return nil, errors.New("S101").WithLocation(path, 0).Wrap(err)
	}

	g, err := parse(data, format)
	if err != nil {
		if ce, ok := err.(*errors.CodedError); ok {
			line := 0
			if ce.Location != nil {
				line = ce.Location.Line
			}
			ce.WithLocation(path, line)
		}
		return nil, err
	}
	g.path = path
	g.applyDefaults()

	if err := g.Validate(); err != nil {
		if ce, ok := err.(*errors.CodedError); ok {
			ce.WithLocation(path, 0)
		}
		return nil, err
	}
	return g, nil
}

// Parse decodes and validates graph data in the given format. Unknown
// fields are rejected.
func Parse(data []byte, format Format) (*Graph, error) {
	g, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	g.applyDefaults()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func parse(data []byte, format Format) (*Graph, error) {
	g := &Graph{}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document decodes to io.EOF; treat it as an empty graph.
		if err := dec.Decode(g); err != nil && len(bytes.TrimSpace(data)) > 0 {
			return nil, syntaxError(err, yamlLine(err))
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(g); err != nil {
			return nil, syntaxError(err, 0)
		}
	default:
		return nil, errors.New("S103").WithDetailf("format %q is not recognized", format)
	}
	return g, nil
}

func syntaxError(err error, line int) *errors.CodedError {
	ce := errors.New("S102").WithDetail(err.Error()).Wrap(err)
	if line > 0 {
		ce.WithLocation("", line)
	}
	return ce
}

// yamlLine extracts the line number from a yaml.v3 error, or 0.
func yamlLine(err error) int {
	msg := err.Error()
	if te, ok := err.(*yaml.TypeError); ok && len(te.Errors) > 0 {
		msg = te.Errors[0]
	}
	var line int
	if i := strings.Index(msg, "line "); i >= 0 {
		fmt.Sscanf(msg[i:], "line %d", &line)
	}
	return line
}

// Path returns the file the graph was loaded from, or "".
func (g *Graph) Path() string {
	return g.path
}

// applyDefaults fills in default values for empty fields.
func (g *Graph) applyDefaults() {
	if g.Name == "" {
		if g.path != "" {
			base := filepath.Base(g.path)
			g.Name = strings.TrimSuffix(base, filepath.Ext(base))
		} else {
			g.Name = DefaultName
		}
	}
}

// Validate checks that every cell name is non-empty and unique, and that
// edges, observes and steps reference declared cells.
func (g *Graph) Validate() error {
	if len(g.Cells) == 0 {
		return errors.New("S113")
	}

	known := make(map[string]struct{}, len(g.Cells))
	for i, c := range g.Cells {
		if c.Name == "" {
			return errors.New("S112").WithDetailf("cells[%d] has no name", i)
		}
		if _, dup := known[c.Name]; dup {
			return errors.New("S110").WithDetailf("cell %q is declared more than once", c.Name)
		}
		known[c.Name] = struct{}{}
	}

	ref := func(field, name string) error {
		if name == "" {
			return errors.New("S112").WithDetailf("%s has no cell name", field)
		}
		if _, ok := known[name]; !ok {
			return errors.New("S111").WithDetailf("%s references unknown cell %q", field, name)
		}
		return nil
	}

	for i, e := range g.Edges {
		if err := ref(fmt.Sprintf("edges[%d].from", i), e.From); err != nil {
			return err
		}
		if err := ref(fmt.Sprintf("edges[%d].to", i), e.To); err != nil {
			return err
		}
	}
	for i, name := range g.Observe {
		if err := ref(fmt.Sprintf("observe[%d]", i), name); err != nil {
			return err
		}
	}
	for i, s := range g.Steps {
		if err := ref(fmt.Sprintf("steps[%d].cell", i), s.Cell); err != nil {
			return err
		}
		if s.Value == nil && s.Blocked == nil {
			return errors.New("S114").WithDetailf("steps[%d] neither sets a value nor toggles blocked", i)
		}
		if s.Force && s.Value == nil {
			return errors.New("S114").WithDetailf("steps[%d] forces an emit without a value", i)
		}
	}
	return nil
}
