// Package interchange reads and writes layout snapshot files.
//
// A snapshot is the JSON form of a layout, {"store_id": ..., "columns": [...]},
// indented with four spaces. It is what the client exports and imports and
// what the archive drivers store.
package interchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

const indent = "    "

// Encode writes l as an indented snapshot followed by a newline.
func Encode(w io.Writer, l layout.Layout) error {
	if l.Columns == nil {
		l.Columns = [][]layout.Module{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	if err := enc.Encode(l); err != nil {
		return svcerrors.IOFailure(err, "encode snapshot for store %d", l.StoreID)
	}
	return nil
}

// Marshal returns the encoded snapshot.
func Marshal(l layout.Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads one snapshot from r.
func Decode(r io.Reader) (layout.Layout, error) {
	var l layout.Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		if _, ok := svcerrors.As(err); ok {
			return layout.Layout{}, err
		}
		return layout.Layout{}, svcerrors.WrapMalformed(err, "decode snapshot")
	}
	return l, nil
}

// SaveFile writes l to path. The snapshot is written to a temporary file in
// the same directory and renamed into place, so a failed export never leaves
// a truncated file behind.
func SaveFile(path string, l layout.Layout) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return svcerrors.IOFailure(err, "create temporary snapshot")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return svcerrors.IOFailure(err, "write snapshot %s", path)
	}
	if err := tmp.Close(); err != nil {
		return svcerrors.IOFailure(err, "write snapshot %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return svcerrors.IOFailure(err, "replace snapshot")
	}
	return nil
}

// LoadFile reads a snapshot from path.
func LoadFile(path string) (layout.Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return layout.Layout{}, svcerrors.IOFailure(err, "open snapshot")
	}
	defer f.Close()

	l, err := Decode(f)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// InferStore derives the store record a snapshot implies when its store is
// not registered: one column per outer entry, as many rows as the longest
// column.
func InferStore(l layout.Layout) store.Store {
	return store.Store{
		ID:               l.StoreID,
		Name:             fmt.Sprintf("Store %d", l.StoreID),
		NumColumns:       len(l.Columns),
		ModulesPerColumn: l.MaxColumnLength(),
	}
}
