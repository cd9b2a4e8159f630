// Package server serves the dashboard over HTTP.
//
// Every GET that is not an asset navigates a fresh navigation.Context and
// renders the HTML shell around the route's view. Paths that only resolve
// through a redirect answer 302 with the redirect target, so the browser
// location always shows a rendering route.
//
// After the first load the client script keeps one WebSocket open at
// /_meteo/nav and navigates over it. Each connection owns one
// navigation.Context; a newer navigation supersedes any older one still
// waiting on its view. Frames are JSON:
//
//	client → server  {"type":"navigate","path":"/foo/bar"}
//	server → client  {"type":"title","title":"Tableau de bord | NASA Météo"}
//	server → client  {"type":"navigated","id":"…","path":"/","route":"tableaudebord",
//	                  "title":"…","transition":"fade","redirectedFrom":"/foo/bar","html":"…"}
//	server → client  {"type":"error","path":"/","code":"E151","message":"…"}
//
// The title frame is the document title effect; it always precedes the
// navigated frame of the same navigation.
package server
