package archive

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/interchange"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

// Memory keeps encoded snapshots in a map. Used in tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (a *Memory) Driver() Driver { return DriverMemory }

func (a *Memory) Put(_ context.Context, key string, l layout.Layout) error {
	name, err := objectName(key)
	if err != nil {
		return err
	}
	data, err := interchange.Marshal(l)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.objects[name] = data
	a.mu.Unlock()
	return nil
}

func (a *Memory) Get(_ context.Context, key string) (layout.Layout, error) {
	name, err := objectName(key)
	if err != nil {
		return layout.Layout{}, err
	}
	a.mu.RLock()
	data, ok := a.objects[name]
	a.mu.RUnlock()
	if !ok {
		return layout.Layout{}, svcerrors.IOFailure(nil, "snapshot %s not found", key)
	}
	return interchange.Decode(bytes.NewReader(data))
}

func (a *Memory) List(_ context.Context, prefix string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var keys []string
	for name := range a.objects {
		key := normalizeKey(name)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
