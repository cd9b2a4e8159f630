// Package router implements the dashboard's route table.
//
// A Table is an ordered, immutable list of routes. Paths are resolved with
// first-match-wins semantics over pattern segments:
//
//	/                 literal root
//	/stations/:id     :id matches exactly one segment
//	/*pathMatch       trailing catch-all, matches any remaining segments
//
// The table is validated when it is built: route names are unique, exactly
// one route is registered at "/", and exactly one catch-all route exists,
// is last, and redirects. Every path therefore resolves to some route; empty
// and malformed paths are treated as non-matching and land on the catch-all.
//
// # Usage
//
//	table, err := router.NewTable(
//	    router.Route{
//	        Path:      "/",
//	        Name:      "tableaudebord",
//	        Component: "@/views/tableaudebord.html",
//	        Meta:      router.Meta{router.MetaTitle: "Tableau de bord | NASA Météo"},
//	    },
//	    router.Route{Path: "/*pathMatch", Redirect: "/"},
//	)
//
//	res := table.Match("/foo/bar")
//	// res.Route.Redirect == "/"
//	// res.Params["pathMatch"] == "foo/bar"
package router
