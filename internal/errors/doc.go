// Package errors provides coded, actionable errors for the signalslot tools.
//
// Each error carries a code (e.g. "S102") that maps to a short message and a
// longer explanation in the registry. Call sites attach the specifics:
//
//	err := errors.New("S111").
//	    WithLocation("graphs/temp.yaml", 0).
//	    WithDetail(`edge references unknown cell "fahrenheit"`).
//	    WithSuggestion("Declare the cell under cells: before wiring it")
//
//	fmt.Fprint(os.Stderr, err.Format())
//
// Categories group codes by the stage that produced them: config for graph
// files, graph for wiring and delivery, cli for command-line usage.
package errors
