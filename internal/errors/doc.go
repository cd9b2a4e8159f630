// Package errors provides structured, actionable error messages for the
// dashboard server and its CLI.
//
// Every registered error has a code (e.g. "E102") mapping to a category, a
// short message and a longer explanation. Callers decorate an error with a
// detail line, a suggestion and the underlying cause:
//
//	err := errors.New("E102").
//	    WithDetail("route table has 2 routes, none with path /").
//	    WithSuggestion("Register the dashboard at /")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E102: Missing root route
//	//
//	//   route table has 2 routes, none with path /
//	//
//	//   Hint: Register the dashboard at /
//
// # Error Categories
//
//   - routing: route table construction and resolution
//   - config: meteo.json problems
//   - component: lazily-loaded view failures
//   - build: build configuration (plugins, aliases, defines)
//   - cli: command line usage
package errors
