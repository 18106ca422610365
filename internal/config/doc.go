// Package config loads graph files for the signalslot command.
//
// A graph file declares value cells, the edges that forward one cell's
// changes into another, which cells to observe, and a script of steps to
// apply. YAML and JSON are both accepted, chosen by file extension.
//
// # File Structure
//
//	name: thermostat
//	cells:
//	  - name: celsius
//	    initial: 20
//	  - name: fahrenheit
//	edges:
//	  - from: celsius
//	    to: fahrenheit
//	    scale: 1.8
//	    offset: 32
//	observe: [fahrenheit]
//	steps:
//	  - cell: celsius
//	    value: 25
//	  - cell: fahrenheit
//	    blocked: true
//	  - cell: celsius
//	    value: 30
//
// # Usage
//
//	g, err := config.Load("graphs/thermostat.yaml")
//	if err != nil {
//	    errors.PrintError(os.Stderr, err)
//	    os.Exit(1)
//	}
package config
