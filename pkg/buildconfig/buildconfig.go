// Package buildconfig holds the dashboard's build-time settings: the plugin
// list, path aliases and global constants substituted into client code.
//
// The settings are read once at startup, from meteo.build.yaml when present:
//
//	plugins: [vue, tailwindcss]
//	define:
//	  CESIUM_BASE_URL: '"/cesium"'
//	resolve:
//	  alias:
//	    "@": ./src
//
// Relative alias targets are resolved against the directory of the file.
package buildconfig

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nasa-meteo/dashboard/internal/errors"
)

// FileName is the default build configuration file name.
const FileName = "meteo.build.yaml"

// CesiumBaseURL is the define key for the base URL the geospatial asset
// library loads its workers and assets from.
const CesiumBaseURL = "CESIUM_BASE_URL"

// SourceAlias is the alias for the project's source root.
const SourceAlias = "@"

// Config is the build configuration.
type Config struct {
	// Plugins are the build plugins, in order.
	Plugins []string `yaml:"plugins"`

	// Define maps global constant names to JSON literals.
	Define map[string]string `yaml:"define"`

	// Resolve holds module resolution settings.
	Resolve ResolveConfig `yaml:"resolve"`

	root string
}

// ResolveConfig holds module resolution settings.
type ResolveConfig struct {
	// Alias maps a short token to a directory.
	Alias map[string]string `yaml:"alias"`
}

// Default returns the configuration used when no file is present: the vue
// and tailwindcss plugins, CESIUM_BASE_URL set to "/cesium" and "@" aliased
// to <root>/src.
func Default(root string) *Config {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &Config{
		Plugins: []string{"vue", "tailwindcss"},
		Define: map[string]string{
			CesiumBaseURL: `"/cesium"`,
		},
		Resolve: ResolveConfig{
			Alias: map[string]string{
				SourceAlias: filepath.Join(abs, "src"),
			},
		},
		root: abs,
	}
}

// Load reads the build configuration from file. Keys absent from the file
// keep their Default values.
func Load(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.New("E160").WithDetailf("read %s", file).Wrap(err)
	}

	root := filepath.Dir(file)
	cfg := Default(root)

	parsed, err := decode(file, data)
	if err != nil {
		return nil, err
	}

	if parsed.Plugins != nil {
		cfg.Plugins = parsed.Plugins
	}
	for k, v := range parsed.Define {
		cfg.Define[k] = v
	}
	for k, v := range parsed.Resolve.Alias {
		if !filepath.IsAbs(v) {
			v = filepath.Join(cfg.root, v)
		}
		cfg.Resolve.Alias[k] = filepath.Clean(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads file if it exists and falls back to Default rooted
// at the file's directory otherwise.
func LoadOrDefault(file string) (*Config, error) {
	if _, err := os.Stat(file); stderrors.Is(err, os.ErrNotExist) {
		return Default(filepath.Dir(file)), nil
	}
	return Load(file)
}

// Validate checks aliases and define values.
func (c *Config) Validate() error {
	for k, v := range c.Resolve.Alias {
		if k == "" || strings.Contains(k, "/") {
			return errors.New("E162").WithDetailf("alias key %q", k)
		}
		if v == "" {
			return errors.New("E162").WithDetailf("alias %q has no target", k)
		}
	}
	for k, v := range c.Define {
		if !json.Valid([]byte(v)) {
			return errors.New("E163").WithDetailf("%s = %s", k, v).
				WithSuggestion(`Quote string values twice, e.g. '"/cesium"'`)
		}
	}
	return nil
}

// Root returns the project root the configuration was resolved against.
func (c *Config) Root() string {
	return c.root
}

// SplitRef splits a module reference into its alias token and the path
// after it: "@/views/x.html" → ("@", "views/x.html").
func (c *Config) SplitRef(ref string) (alias, rest string, err error) {
	token, rest, ok := strings.Cut(ref, "/")
	if !ok {
		return "", "", errors.New("E161").WithDetailf("reference %q has no alias prefix", ref)
	}
	if _, known := c.Resolve.Alias[token]; !known {
		return "", "", errors.New("E161").WithDetailf("%q in %q is not declared", token, ref)
	}
	rest = path.Clean(strings.TrimLeft(rest, "/"))
	if rest == "." || rest == ".." || strings.HasPrefix(rest, "../") {
		return "", "", errors.New("E161").WithDetailf("reference %q leaves the alias root", ref)
	}
	return token, rest, nil
}

// ResolveAlias substitutes the alias of ref with its directory and returns
// the filesystem path.
func (c *Config) ResolveAlias(ref string) (string, error) {
	token, rest, err := c.SplitRef(ref)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.Resolve.Alias[token], filepath.FromSlash(rest)), nil
}

// AliasDir returns the directory of alias token.
func (c *Config) AliasDir(token string) (string, bool) {
	dir, ok := c.Resolve.Alias[token]
	return dir, ok
}

// Defines decodes every define value.
func (c *Config) Defines() map[string]any {
	out := make(map[string]any, len(c.Define))
	for k, v := range c.Define {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			out[k] = decoded
		}
	}
	return out
}

// DefineString returns the define value of key when it is a JSON string.
func (c *Config) DefineString(key string) (string, bool) {
	s, ok := c.Defines()[key].(string)
	return s, ok
}

// HasPlugin reports whether plugin is enabled.
func (c *Config) HasPlugin(plugin string) bool {
	for _, p := range c.Plugins {
		if p == plugin {
			return true
		}
	}
	return false
}

// DefineKeys returns the define names in sorted order.
func (c *Config) DefineKeys() []string {
	keys := make([]string, 0, len(c.Define))
	for k := range c.Define {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AliasKeys returns the alias tokens in sorted order.
func (c *Config) AliasKeys() []string {
	keys := make([]string, 0, len(c.Resolve.Alias))
	for k := range c.Resolve.Alias {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// decode parses the build file key by key so that a type error carries the
// position of the offending value.
func decode(file string, data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("E160").WithDetailf("parse %s", file).Wrap(err)
	}

	parsed := &Config{}
	if len(doc.Content) == 0 {
		return parsed, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("E160").
			WithDetailf("parse %s: top level is not a mapping", file).
			WithLocation(file, root.Line, root.Column)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		var target any
		switch key.Value {
		case "plugins":
			target = &parsed.Plugins
		case "define":
			target = &parsed.Define
		case "resolve":
			target = &parsed.Resolve
		default:
			continue
		}
		if err := value.Decode(target); err != nil {
			return nil, errors.New("E160").
				WithDetailf("parse %s: %s", file, key.Value).
				WithLocation(file, value.Line, value.Column).
				Wrap(err)
		}
	}
	return parsed, nil
}
