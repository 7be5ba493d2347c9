package internal

import "github.com/flosch/pongo2/v6"

// Option is a functional option for configuring the application.
type Option func(*application)

// Callbacks are user hooks invoked at fixed points of a run. Nil fields
// are simply not called.
type Callbacks struct {
	// InitStart runs before the template environment is prepared.
	InitStart func(cfg *Config)
	// InitEnd runs after filters and tags are registered, before building.
	InitEnd func(cfg *Config)
	// SetupEnvironment runs once per content directory with its template
	// set, before any document in that directory renders.
	SetupEnvironment func(dir string, set *pongo2.TemplateSet)
	// EndRun runs after a build pass completes.
	EndRun func()
}

type application struct {
	config    *Config
	callbacks Callbacks
	filters   map[string]pongo2.FilterFunction
	tags      map[string]pongo2.TagParser
	vars      map[string]any
	root      string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithCallbacks sets the run hooks.
func WithCallbacks(cb Callbacks) Option {
	return func(a *application) {
		a.callbacks = cb
	}
}

// WithFilters registers user template filters by name.
func WithFilters(filters map[string]pongo2.FilterFunction) Option {
	return func(a *application) {
		a.filters = filters
	}
}

// WithTags registers user template tags by name.
func WithTags(tags map[string]pongo2.TagParser) Option {
	return func(a *application) {
		a.tags = tags
	}
}

// WithVars adds site-wide template variables on top of the configured ones.
func WithVars(vars map[string]any) Option {
	return func(a *application) {
		a.vars = vars
	}
}

// WithRoot overrides the template search boundary, which defaults to the
// working directory.
func WithRoot(root string) Option {
	return func(a *application) {
		a.root = root
	}
}
