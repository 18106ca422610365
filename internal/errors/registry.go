package errors

import "sort"

// Template is the registered description of an error code.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// Codes:
//
//	S1xx  graph file loading and validation
//	S2xx  graph wiring and delivery
//	S3xx  command-line usage
var registry = map[string]Template{
	"S100": {
		Category:   CategoryConfig,
		Message:    "Graph file not found",
		Suggestion: "Check the path passed to signalslot run",
	},
	"S101": {
		Category: CategoryConfig,
		Message:  "Graph file could not be read",
	},
	"S102": {
		Category:   CategoryConfig,
		Message:    "Invalid graph file syntax",
		Suggestion: "Check the file for YAML or JSON syntax errors",
	},
	"S103": {
		Category:   CategoryConfig,
		Message:    "Unsupported graph file format",
		Suggestion: "Use a .yaml, .yml or .json file",
	},
	"S110": {
		Category:   CategoryConfig,
		Message:    "Duplicate cell name",
		Suggestion: "Give every cell a unique name",
	},
	"S111": {
		Category:   CategoryConfig,
		Message:    "Unknown cell reference",
		Suggestion: "Declare the cell under cells: before referencing it",
	},
	"S112": {
		Category:   CategoryConfig,
		Message:    "Empty cell name",
		Suggestion: "Every cell, edge endpoint and step needs a cell name",
	},
	"S113": {
		Category:   CategoryConfig,
		Message:    "Graph defines no cells",
		Suggestion: "Add at least one entry under cells:",
	},
	"S114": {
		Category:   CategoryConfig,
		Message:    "Invalid step",
		Suggestion: "A step sets a value, toggles blocked, or both",
	},
	"S200": {
		Category: CategoryGraph,
		Message:  "Cell update failed",
	},
	"S201": {
		Category: CategoryGraph,
		Message:  "Graph run interrupted",
	},
	"S300": {
		Category:   CategoryCLI,
		Message:    "Invalid flag value",
		Suggestion: "Run with --help to see accepted values",
	},
	"S301": {
		Category:   CategoryCLI,
		Message:    "Metrics server failed",
		Suggestion: "Check that --metrics-addr is free and well-formed",
	},
	"S302": {
		Category: CategoryCLI,
		Message:  "Metrics file could not be written",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
