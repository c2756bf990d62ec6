package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	app "github.com/R3E-Network/layout_service/internal/app"
)

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	application, err := app.New(app.Stores{}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { _ = application.Stop(context.Background()) })
	return NewHandler(application, opts...)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		reader = bytes.NewReader(marshal(b))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func marshal(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", resp.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}

func expectErrorCode(t *testing.T, resp *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, resp, status)
	body := decode[map[string]string](t, resp)
	if body["code"] != code {
		t.Fatalf("expected error code %s, got %v", code, body)
	}
	if body["error"] == "" {
		t.Fatalf("expected error message, got %v", body)
	}
}

type moduleJSON struct {
	ModuleID   int    `json:"module_id"`
	Column     int    `json:"column"`
	Row        int    `json:"row"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Name       string `json:"name"`
	CategoryID *int   `json:"category_id"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Rotation   int    `json:"rotation"`
}

type layoutJSON struct {
	StoreID int            `json:"store_id"`
	Columns [][]moduleJSON `json:"columns"`
}

func TestHandlerLifecycle(t *testing.T) {
	h := newTestHandler(t)

	resp := do(t, h, http.MethodPost, "/store/", map[string]any{"id": 1, "name": "Downtown", "num_columns": 2, "modules_per_column": 5})
	expectStatus(t, resp, http.StatusCreated)
	created := decode[map[string]json.RawMessage](t, resp)
	if _, ok := created["message"]; !ok {
		t.Fatalf("expected message in %s", resp.Body.String())
	}

	expectErrorCode(t, do(t, h, http.MethodPost, "/store/", map[string]any{"id": 1, "name": "Again", "num_columns": 1, "modules_per_column": 1}),
		http.StatusBadRequest, "duplicate_id")

	expectStatus(t, do(t, h, http.MethodPost, "/category/", map[string]any{"id": 10, "name": "Produce"}), http.StatusCreated)
	expectStatus(t, do(t, h, http.MethodPost, "/category/", map[string]any{"id": 20, "name": "Dairy"}), http.StatusCreated)
	expectErrorCode(t, do(t, h, http.MethodPost, "/category/", map[string]any{"id": 10, "name": "Produce"}),
		http.StatusBadRequest, "duplicate_id")

	resp = do(t, h, http.MethodGet, "/store-layout/1", nil)
	expectStatus(t, resp, http.StatusOK)
	l := decode[layoutJSON](t, resp)
	if l.StoreID != 1 || len(l.Columns) != 2 || len(l.Columns[0]) != 5 {
		t.Fatalf("unexpected initial layout %+v", l)
	}
	if l.Columns[1][2].ModuleID != 7 || l.Columns[1][2].X != 70 || l.Columns[1][2].Y != 80 {
		t.Fatalf("unexpected module %+v", l.Columns[1][2])
	}

	produce, dairy := 10, 20
	for i := 0; i < 3; i++ {
		l.Columns[0][i].CategoryID = &produce
	}
	l.Columns[1][0].CategoryID = &dairy
	l.Columns[1][1].CategoryID = &dairy
	resp = do(t, h, http.MethodPut, "/store-layout/1", l)
	expectStatus(t, resp, http.StatusOK)
	replaced := decode[struct {
		Message     string     `json:"message"`
		StoreLayout layoutJSON `json:"store_layout"`
	}](t, resp)
	if replaced.Message == "" || len(replaced.StoreLayout.Columns) != 2 {
		t.Fatalf("unexpected replace response %s", resp.Body.String())
	}

	resp = do(t, h, http.MethodGet, "/store-layout/1/share", nil)
	expectStatus(t, resp, http.StatusOK)
	share := decode[map[string]float64](t, resp)
	if len(share) != 2 || math.Abs(share["10"]-30) > 1e-9 || math.Abs(share["20"]-20) > 1e-9 {
		t.Fatalf("unexpected share %v", share)
	}

	resp = do(t, h, http.MethodGet, "/audit?limit=2", nil)
	expectStatus(t, resp, http.StatusOK)
	entries := decode[[]AuditEntry](t, resp)
	if len(entries) != 2 || entries[1].Action != "layout.replace" || entries[0].Action != "category.create" {
		t.Fatalf("unexpected audit entries %+v", entries)
	}
	if entries[1].ID == "" || entries[1].StoreID == nil || *entries[1].StoreID != 1 {
		t.Fatalf("audit entry missing refs: %+v", entries[1])
	}
}

func TestHandlerUnknownStore(t *testing.T) {
	h := newTestHandler(t)

	expectErrorCode(t, do(t, h, http.MethodGet, "/store-layout/99", nil), http.StatusNotFound, "not_found")
	expectErrorCode(t, do(t, h, http.MethodPut, "/store-layout/99", map[string]any{"store_id": 99, "columns": []any{}}), http.StatusNotFound, "not_found")
	expectErrorCode(t, do(t, h, http.MethodGet, "/store-layout/99/share", nil), http.StatusNotFound, "not_found")
	expectErrorCode(t, do(t, h, http.MethodGet, "/store/99", nil), http.StatusNotFound, "not_found")
	expectErrorCode(t, do(t, h, http.MethodPost, "/store-layout/99/modules", nil), http.StatusNotFound, "not_found")
}

func TestHandlerMalformedInput(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct {
		name, method, path string
		body               any
	}{
		{"string id", http.MethodPost, "/store/", `{"id": "one", "name": "x", "num_columns": 1, "modules_per_column": 1}`},
		{"missing field", http.MethodPost, "/store/", map[string]any{"id": 1, "name": "x"}},
		{"zero columns", http.MethodPost, "/store/", map[string]any{"id": 1, "name": "x", "num_columns": 0, "modules_per_column": 1}},
		{"unknown field", http.MethodPost, "/category/", map[string]any{"id": 1, "name": "x", "colour": "red"}},
		{"empty body", http.MethodPost, "/category/", nil},
		{"bad path id", http.MethodGet, "/store-layout/abc", nil},
		{"layout without columns", http.MethodPut, "/store-layout/1", map[string]any{"store_id": 1}},
		{"module without name", http.MethodPost, "/store-layout/import", `{"store_id": 3, "columns": [[{"module_id": 0, "column": 0, "row": 0, "x": 0, "y": 0}]]}`},
		{"import without columns", http.MethodPost, "/store-layout/import", map[string]any{"store_id": 3, "columns": []any{}}},
		{"snap without y", http.MethodPost, "/grid/snap", map[string]any{"x": 1}},
		{"snap zero unit", http.MethodPost, "/grid/snap", map[string]any{"x": 1, "y": 1, "grid_unit": 0}},
		{"audit limit", http.MethodGet, "/audit?limit=x", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectErrorCode(t, do(t, h, tc.method, tc.path, tc.body), http.StatusBadRequest, "malformed_input")
		})
	}
}

func TestHandlerDivisionByZeroIsServerError(t *testing.T) {
	h := newTestHandler(t)

	// An imported snapshot whose columns are all empty infers a zero-row store.
	resp := do(t, h, http.MethodPost, "/store-layout/import", map[string]any{"store_id": 4, "columns": [][]any{{}}})
	expectStatus(t, resp, http.StatusOK)

	expectErrorCode(t, do(t, h, http.MethodGet, "/store-layout/4/share", nil), http.StatusInternalServerError, "division_by_zero")
}

func TestHandlerModuleOperations(t *testing.T) {
	h := newTestHandler(t)
	expectStatus(t, do(t, h, http.MethodPost, "/store/", map[string]any{"id": 2, "name": "Mall", "num_columns": 2, "modules_per_column": 2}), http.StatusCreated)
	expectStatus(t, do(t, h, http.MethodPost, "/category/", map[string]any{"id": 0, "name": "Seasonal"}), http.StatusCreated)

	resp := do(t, h, http.MethodPost, "/store-layout/2/modules", nil)
	expectStatus(t, resp, http.StatusCreated)
	added := decode[struct {
		Module moduleJSON `json:"module"`
	}](t, resp)
	if added.Module.ModuleID != 4 || added.Module.Row != 2 || added.Module.Y != 120 || added.Module.Height != 40 {
		t.Fatalf("unexpected added module %+v", added.Module)
	}

	resp = do(t, h, http.MethodPatch, "/store-layout/2/modules/4", map[string]any{"name": "Promo", "category_id": 0, "x": 33, "y": 129, "snap": true})
	expectStatus(t, resp, http.StatusOK)
	updated := decode[struct {
		Module moduleJSON `json:"module"`
	}](t, resp)
	if updated.Module.Name != "Promo" || updated.Module.CategoryID == nil || *updated.Module.CategoryID != 0 {
		t.Fatalf("unexpected update %+v", updated.Module)
	}
	if updated.Module.X != 40 || updated.Module.Y != 120 {
		t.Fatalf("expected snapped position, got %d,%d", updated.Module.X, updated.Module.Y)
	}

	// Category 0 counts as assigned: 1 of 4 declared slots.
	share := decode[map[string]float64](t, do(t, h, http.MethodGet, "/store-layout/2/share", nil))
	if share["0"] != 25 {
		t.Fatalf("expected category 0 at 25%%, got %v", share)
	}

	expectErrorCode(t, do(t, h, http.MethodPatch, "/store-layout/2/modules/4", map[string]any{"category_id": 77}), http.StatusNotFound, "not_found")
	expectErrorCode(t, do(t, h, http.MethodPatch, "/store-layout/2/modules/4", map[string]any{"width": 500}), http.StatusBadRequest, "malformed_input")
	expectErrorCode(t, do(t, h, http.MethodPatch, "/store-layout/2/modules/4", map[string]any{}), http.StatusBadRequest, "malformed_input")
	expectErrorCode(t, do(t, h, http.MethodPatch, "/store-layout/2/modules/404", map[string]any{"name": "x"}), http.StatusNotFound, "not_found")

	resp = do(t, h, http.MethodDelete, "/store-layout/2/modules/4", nil)
	expectStatus(t, resp, http.StatusOK)
	removed := decode[struct {
		StoreLayout layoutJSON `json:"store_layout"`
	}](t, resp)
	if len(removed.StoreLayout.Columns[0]) != 2 {
		t.Fatalf("expected module removed, got %+v", removed.StoreLayout)
	}

	before := do(t, h, http.MethodGet, "/store-layout/2", nil).Body.String()
	expectStatus(t, do(t, h, http.MethodDelete, "/store-layout/2/modules/404", nil), http.StatusOK)
	if after := do(t, h, http.MethodGet, "/store-layout/2", nil).Body.String(); after != before {
		t.Fatalf("removing an unknown module changed the layout:\n%s\n%s", before, after)
	}
}

func TestHandlerImport(t *testing.T) {
	h := newTestHandler(t)
	snapshot := map[string]any{"store_id": 8, "columns": [][]map[string]any{
		{{"module_id": 0, "column": 0, "row": 0, "x": 0, "y": 0, "name": "Module 0"}},
		{{"module_id": 1, "column": 1, "row": 0, "x": 70, "y": 0, "name": "Module 1"}, {"module_id": 2, "column": 1, "row": 1, "x": 70, "y": 40, "name": "Module 2"}},
	}}

	resp := do(t, h, http.MethodPost, "/store-layout/import", snapshot)
	expectStatus(t, resp, http.StatusOK)
	res := decode[struct {
		Created bool `json:"created"`
		Store   struct {
			Name             string `json:"name"`
			NumColumns       int    `json:"num_columns"`
			ModulesPerColumn int    `json:"modules_per_column"`
		} `json:"store"`
		StoreLayout layoutJSON `json:"store_layout"`
	}](t, resp)
	if !res.Created || res.Store.Name != "Store 8" || res.Store.NumColumns != 2 || res.Store.ModulesPerColumn != 2 {
		t.Fatalf("unexpected import result %s", resp.Body.String())
	}
	if res.StoreLayout.Columns[0][0].Width != 60 || res.StoreLayout.Columns[0][0].Height != 30 {
		t.Fatalf("expected module defaults applied, got %+v", res.StoreLayout.Columns[0][0])
	}

	resp = do(t, h, http.MethodPost, "/store-layout/import", snapshot)
	expectStatus(t, resp, http.StatusOK)
	if decode[map[string]any](t, resp)["created"] != false {
		t.Fatalf("second import should replace, got %s", resp.Body.String())
	}

	expectStatus(t, do(t, h, http.MethodGet, "/store/8", nil), http.StatusOK)
}

func TestHandlerSnapAndMisc(t *testing.T) {
	h := newTestHandler(t)

	resp := do(t, h, http.MethodPost, "/grid/snap", map[string]any{"x": 29, "y": 31})
	expectStatus(t, resp, http.StatusOK)
	pos := decode[map[string]int](t, resp)
	if pos["x"] != 20 || pos["y"] != 40 {
		t.Fatalf("unexpected snap %v", pos)
	}

	resp = do(t, h, http.MethodPost, "/grid/snap", map[string]any{"x": 7, "y": 13, "grid_unit": 5})
	pos = decode[map[string]int](t, resp)
	if pos["x"] != 5 || pos["y"] != 15 {
		t.Fatalf("unexpected snap with unit %v", pos)
	}

	expectStatus(t, do(t, h, http.MethodGet, "/healthz", nil), http.StatusOK)
	resp = do(t, h, http.MethodGet, "/metrics", nil)
	expectStatus(t, resp, http.StatusOK)
	if !strings.Contains(resp.Body.String(), "layout_service_http_requests_total") {
		t.Fatalf("expected http metrics in exposition")
	}

	expectStatus(t, do(t, h, http.MethodDelete, "/store/", nil), http.StatusMethodNotAllowed)
	expectErrorCode(t, do(t, h, http.MethodGet, "/nowhere", nil), http.StatusNotFound, "not_found")

	expectStatus(t, do(t, h, http.MethodPost, "/category/", map[string]any{"id": 2, "name": "B"}), http.StatusCreated)
	expectStatus(t, do(t, h, http.MethodPost, "/category/", map[string]any{"id": 1, "name": "A"}), http.StatusCreated)
	cats := decode[[]map[string]any](t, do(t, h, http.MethodGet, "/category/", nil))
	if len(cats) != 2 || cats[0]["id"] != float64(1) {
		t.Fatalf("expected categories sorted by id, got %v", cats)
	}
}

func TestHandlerConcurrentAddModule(t *testing.T) {
	h := newTestHandler(t)
	expectStatus(t, do(t, h, http.MethodPost, "/store/", map[string]any{"id": 5, "name": "Busy", "num_columns": 1, "modules_per_column": 1}), http.StatusCreated)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/store-layout/5/modules", nil)
			h.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	l := decode[layoutJSON](t, do(t, h, http.MethodGet, "/store-layout/5", nil))
	if got := len(l.Columns[0]); got != 21 {
		t.Fatalf("expected 21 modules, got %d", got)
	}
}

func TestAuditFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileAuditSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	h := newTestHandler(t, WithAudit(2, sink))

	for i := 1; i <= 3; i++ {
		expectStatus(t, do(t, h, http.MethodPost, "/category/", map[string]any{"id": i, "name": fmt.Sprintf("C%d", i)}), http.StatusCreated)
	}
	if err := sink.Stop(context.Background()); err != nil {
		t.Fatalf("close sink: %v", err)
	}

	entries := decode[[]AuditEntry](t, do(t, h, http.MethodGet, "/audit", nil))
	if len(entries) != 2 || *entries[0].CategoryID != 2 {
		t.Fatalf("expected ring of the last two entries, got %+v", entries)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 audit lines, got %d", len(lines))
	}

	if sink, err := NewFileAuditSink(""); err != nil || sink != nil {
		t.Fatalf("expected nil sink for empty path")
	}
}
