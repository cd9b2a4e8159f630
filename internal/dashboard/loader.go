package dashboard

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"os"
	"path"

	"github.com/nasa-meteo/dashboard/internal/config"
	"github.com/nasa-meteo/dashboard/pkg/buildconfig"
	"github.com/nasa-meteo/dashboard/pkg/component"
)

//go:embed src
var embedded embed.FS

// EmbeddedViews returns the built-in source tree, rooted like the "@" alias.
func EmbeddedViews() fs.FS {
	sub, err := fs.Sub(embedded, "src")
	if err != nil {
		panic(err)
	}
	return sub
}

// AliasSource dispatches view references to one Source per alias token.
// Keys are full references such as "@/views/tableaudebord.html".
type AliasSource struct {
	build   *buildconfig.Config
	sources map[string]component.Source
}

// NewAliasSource creates an AliasSource resolving references with build.
func NewAliasSource(build *buildconfig.Config) *AliasSource {
	return &AliasSource{build: build, sources: make(map[string]component.Source)}
}

// Mount serves references starting with token from src.
func (a *AliasSource) Mount(token string, src component.Source) *AliasSource {
	a.sources[token] = src
	return a
}

// Fetch implements component.Source.
func (a *AliasSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	token, rest, err := a.build.SplitRef(ref)
	if err != nil {
		return nil, err
	}
	src, ok := a.sources[token]
	if !ok {
		dir, _ := a.build.AliasDir(token)
		src = component.NewFSSource(os.DirFS(dir))
	}
	return src.Fetch(ctx, rest)
}

// SourceFor returns the view source selected by cfg. Aliases other than "@"
// always read from their directory on disk.
//
// For the "fs" source, "@" reads from views.dir when set, otherwise from the
// alias directory when it exists, otherwise from the embedded views.
func SourceFor(cfg *config.Config, build *buildconfig.Config, logger *slog.Logger) (*AliasSource, error) {
	if logger == nil {
		logger = slog.Default().With("component", "dashboard")
	}
	src := NewAliasSource(build)

	switch cfg.Views.Source {
	case config.SourceS3:
		client := component.NewS3Client(component.S3Options{
			Region:    cfg.Views.S3.Region,
			Endpoint:  cfg.Views.S3.Endpoint,
			PathStyle: cfg.Views.S3.PathStyle,
		})
		logger.Info("views from s3", "bucket", cfg.Views.S3.Bucket, "prefix", cfg.Views.S3.Prefix)
		return src.Mount(buildconfig.SourceAlias, component.NewS3Source(client, cfg.Views.S3.Bucket, cfg.Views.S3.Prefix)), nil
	}

	if dir := cfg.ViewsPath(); dir != "" {
		logger.Info("views from directory", "dir", dir)
		return src.Mount(buildconfig.SourceAlias, component.NewFSSource(os.DirFS(dir))), nil
	}
	if dir, ok := build.AliasDir(buildconfig.SourceAlias); ok && isDir(dir) {
		logger.Info("views from alias directory", "alias", buildconfig.SourceAlias, "dir", dir)
		return src.Mount(buildconfig.SourceAlias, component.NewFSSource(os.DirFS(dir))), nil
	}
	logger.Info("views from embedded files")
	return src.Mount(buildconfig.SourceAlias, component.NewFSSource(EmbeddedViews())), nil
}

// NewLoader returns a component loader for the dashboard views. Views get an
// "asset" template function joining CESIUM_BASE_URL with a relative path.
func NewLoader(src component.Source, build *buildconfig.Config) *component.ViewLoader {
	base, _ := build.DefineString(buildconfig.CesiumBaseURL)
	return &component.ViewLoader{
		Source: src,
		Funcs: map[string]any{
			"asset": func(name string) string {
				return path.Join("/", base, name)
			},
		},
	}
}

func isDir(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
