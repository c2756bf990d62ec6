package archive

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/interchange"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

// FS keeps snapshots as files below a root directory.
type FS struct {
	root string
}

// NewFS returns a filesystem archive rooted at dir, creating it if needed.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, svcerrors.IOFailure(err, "create archive directory %s", dir)
	}
	return &FS{root: dir}, nil
}

func (a *FS) Driver() Driver { return DriverFS }

func (a *FS) Put(_ context.Context, key string, l layout.Layout) error {
	name, err := objectName(key)
	if err != nil {
		return err
	}
	full := filepath.Join(a.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return svcerrors.IOFailure(err, "create archive directory for %s", key)
	}
	return interchange.SaveFile(full, l)
}

func (a *FS) Get(_ context.Context, key string) (layout.Layout, error) {
	name, err := objectName(key)
	if err != nil {
		return layout.Layout{}, err
	}
	return interchange.LoadFile(filepath.Join(a.root, filepath.FromSlash(name)))
}

func (a *FS) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(a.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, snapshotExt) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return err
		}
		key := normalizeKey(filepath.ToSlash(rel))
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, svcerrors.IOFailure(err, "list archive %s", a.root)
	}
	sort.Strings(keys)
	return keys, nil
}
