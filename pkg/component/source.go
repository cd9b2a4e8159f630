package component

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path"

	"github.com/nasa-meteo/dashboard/internal/errors"
)

// Source provides raw view bytes by key.
type Source interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// FSSource reads views from a filesystem, typically os.DirFS or an
// embedded filesystem.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource creates a Source reading from fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Fetch implements Source. Keys are slash-separated paths relative to the
// filesystem root.
func (s *FSSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := path.Clean(key)
	if !fs.ValidPath(name) {
		return nil, errors.New("E150").WithDetailf("invalid key %q", key)
	}

	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("E150").WithDetailf("key %q", key).Wrap(err)
		}
		return nil, err
	}
	return data, nil
}
