package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Routing Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryRouting,
		Message:  "Invalid route pattern",
		Detail:   "Route patterns start with / and use :name for a parameter and a trailing *name for a catch-all.",
	},
	"E101": {
		Category: CategoryRouting,
		Message:  "Duplicate route name",
		Detail:   "Route names identify routes for lookups and component caching and must be unique.",
	},
	"E102": {
		Category: CategoryRouting,
		Message:  "Missing root route",
		Detail:   "Exactly one route must be registered at /. It is the canonical entry of the dashboard.",
	},
	"E103": {
		Category: CategoryRouting,
		Message:  "Duplicate root route",
		Detail:   "More than one route is registered at /.",
	},
	"E104": {
		Category: CategoryRouting,
		Message:  "Missing catch-all route",
		Detail:   "The last route must be a catch-all so that every path resolves.",
	},
	"E105": {
		Category: CategoryRouting,
		Message:  "Catch-all route is not last",
		Detail:   "Routes are evaluated in order. A catch-all anywhere but last hides the routes after it.",
	},
	"E106": {
		Category: CategoryRouting,
		Message:  "Multiple catch-all routes",
		Detail:   "Only one catch-all route may exist.",
	},
	"E107": {
		Category: CategoryRouting,
		Message:  "Route must have either a component or a redirect",
		Detail:   "A route renders a component or redirects to another path, never both and never neither.",
	},
	"E108": {
		Category: CategoryRouting,
		Message:  "Invalid redirect target",
		Detail:   "Redirect targets must resolve to a route that renders a component.",
	},
	"E109": {
		Category: CategoryRouting,
		Message:  "Too many redirects",
		Detail:   "Navigation followed more redirects than allowed.",
	},
	"E110": {
		Category: CategoryRouting,
		Message:  "Unknown route name",
		Detail:   "No route with this name is registered.",
	},
	"E111": {
		Category: CategoryRouting,
		Message:  "Missing route parameter",
		Detail:   "Building a URL requires a value for every parameter in the route pattern.",
	},
	"E112": {
		Category: CategoryRouting,
		Message:  "Missing route name",
		Detail:   "Routes that render a component need a name. Only redirect routes may omit it.",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "meteo.json could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "Port must be between 0 and 65535.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid views source",
		Detail:   "views.source must be \"fs\" or \"s3\".",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations use Go syntax, e.g. \"30s\" or \"1m\".",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Missing S3 bucket",
		Detail:   "views.s3.bucket is required when views.source is \"s3\".",
	},
	"E125": {
		Category: CategoryConfig,
		Message:  "Invalid rate limit",
		Detail:   "navigation.rateLimit must be zero (disabled) or positive.",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No meteo.json was found.",
	},

	// ============================================
	// Component Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryComponent,
		Message:  "View not found",
		Detail:   "The component source has no view for this reference.",
	},
	"E151": {
		Category: CategoryComponent,
		Message:  "Component load failed",
		Detail:   "Fetching a lazily-loaded view failed. The next navigation to this route retries the load.",
	},
	"E152": {
		Category: CategoryComponent,
		Message:  "Component render failed",
		Detail:   "The view was loaded but could not be rendered.",
	},
	"E153": {
		Category: CategoryComponent,
		Message:  "Invalid view template",
		Detail:   "The fetched view is not a valid HTML template.",
	},

	// ============================================
	// Build Configuration Errors (E160-E169)
	// ============================================

	"E160": {
		Category: CategoryBuild,
		Message:  "Invalid build configuration",
		Detail:   "The build configuration file could not be read or parsed.",
	},
	"E161": {
		Category: CategoryBuild,
		Message:  "Unknown alias",
		Detail:   "The reference starts with a token that is not declared in resolve.alias.",
	},
	"E162": {
		Category: CategoryBuild,
		Message:  "Invalid alias",
		Detail:   "Alias keys must be non-empty and targets must be directories.",
	},
	"E163": {
		Category: CategoryBuild,
		Message:  "Invalid define value",
		Detail:   "define values are JSON literals, the way they are substituted into client code.",
	},

	// ============================================
	// CLI Errors (E170-E179)
	// ============================================

	"E170": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
