// Package archive stores layout snapshots under string keys. Drivers exist
// for a local directory, an S3-compatible bucket and process memory.
package archive

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

// Driver identifies an archive backend.
type Driver string

const (
	DriverFS     Driver = "fs"
	DriverS3     Driver = "s3"
	DriverMemory Driver = "memory"
)

// Archive persists snapshots outside the running service.
type Archive interface {
	Driver() Driver
	Put(ctx context.Context, key string, l layout.Layout) error
	Get(ctx context.Context, key string) (layout.Layout, error)
	// List returns keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Open resolves target to an archive and the key it names.
//
//	s3://bucket/prefix/key.json  -> S3 driver, key "prefix/key.json"
//	/var/snapshots/store-1.json  -> filesystem driver rooted at /var/snapshots, key "store-1"
func Open(ctx context.Context, target string) (Archive, string, error) {
	if strings.HasPrefix(target, "s3://") {
		u, err := url.Parse(target)
		if err != nil {
			return nil, "", svcerrors.WrapMalformed(err, "invalid archive url %q", target)
		}
		if u.Host == "" {
			return nil, "", svcerrors.MalformedInput("archive url %q has no bucket", target)
		}
		a, err := NewS3(ctx, S3Config{Bucket: u.Host}.withEnv())
		if err != nil {
			return nil, "", err
		}
		return a, normalizeKey(strings.TrimPrefix(u.Path, "/")), nil
	}
	if target == "" {
		return nil, "", svcerrors.MalformedInput("archive target is empty")
	}

	dir, file := path.Split(target)
	if dir == "" {
		dir = "."
	}
	a, err := NewFS(dir)
	if err != nil {
		return nil, "", err
	}
	return a, normalizeKey(file), nil
}

// normalizeKey strips the snapshot suffix so keys are stable whatever form
// the caller used.
func normalizeKey(key string) string {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	return strings.TrimSuffix(key, snapshotExt)
}

const snapshotExt = ".json"

func objectName(key string) (string, error) {
	key = normalizeKey(key)
	if key == "" || key == "." {
		return "", svcerrors.MalformedInput("archive key is empty")
	}
	return key + snapshotExt, nil
}

// KeyForStore is the default key used when exporting a store's layout.
func KeyForStore(storeID int) string {
	return fmt.Sprintf("store-%d", storeID)
}
