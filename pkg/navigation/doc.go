// Package navigation turns a path into a committed, rendered route.
//
// A Navigator holds what every session shares: the route table and the
// component cache. Each session (a browser tab, a websocket connection, an
// HTTP request) gets its own Context, which tracks the current route and
// owns the title effect:
//
//	nav := navigation.NewNavigator(table, cache)
//	tab := nav.NewContext(navigation.TitleFunc(func(title string) {
//	    send(title)
//	}))
//	res, err := tab.Navigate(ctx, "/foo/bar")
//	// res.Route.Name == "tableaudebord", res.RedirectedFrom == "/foo/bar"
//
// Navigate resolves the path, follows redirects, waits for the route's
// component to load and then commits. Only after the commit does the Context
// apply the title (the route's title, or FallbackTitle) and run the
// after-each hooks. A navigation that fails, or that is overtaken by a newer
// navigation on the same Context while its component loads, commits nothing.
package navigation
