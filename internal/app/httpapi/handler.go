package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	app "github.com/R3E-Network/layout_service/internal/app"
	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	"github.com/R3E-Network/layout_service/internal/app/metrics"
	"github.com/R3E-Network/layout_service/internal/app/services/layouts"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
	"github.com/R3E-Network/layout_service/internal/middleware"
	"github.com/R3E-Network/layout_service/pkg/logger"
	"github.com/gorilla/mux"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
	log   *logger.Logger
}

// Option customises the handler.
type Option func(*handler)

// WithAudit sets the size of the in-memory audit ring and an optional sink.
func WithAudit(size int, sink AuditSink) Option {
	return func(h *handler) {
		h.audit = newAuditLog(size, sink)
	}
}

// WithLogger sets the handler logger.
func WithLogger(log *logger.Logger) Option {
	return func(h *handler) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHandler returns a router exposing the layout service REST API.
func NewHandler(application *app.Application, opts ...Option) http.Handler {
	h := &handler{app: application}
	for _, opt := range opts {
		opt(h)
	}
	if h.audit == nil {
		h.audit = newAuditLog(defaultAuditSize, nil)
	}
	if h.log == nil {
		h.log = logger.NewDefault("httpapi")
	}

	r := mux.NewRouter()
	r.Use(metrics.Middleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found", Code: string(svcerrors.KindNotFound)})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Code: "method_not_allowed"})
	})

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/audit", h.auditEntries).Methods(http.MethodGet)

	r.HandleFunc("/store/", h.createStore).Methods(http.MethodPost)
	r.HandleFunc("/store/", h.listStores).Methods(http.MethodGet)
	r.HandleFunc("/store/{store_id}", h.getStore).Methods(http.MethodGet)

	r.HandleFunc("/category/", h.createCategory).Methods(http.MethodPost)
	r.HandleFunc("/category/", h.listCategories).Methods(http.MethodGet)

	// Registered before the {store_id} routes so "import" is not read as an id.
	r.HandleFunc("/store-layout/import", h.importLayout).Methods(http.MethodPost)
	r.HandleFunc("/store-layout/{store_id}", h.getLayout).Methods(http.MethodGet)
	r.HandleFunc("/store-layout/{store_id}", h.replaceLayout).Methods(http.MethodPut)
	r.HandleFunc("/store-layout/{store_id}/share", h.share).Methods(http.MethodGet)
	r.HandleFunc("/store-layout/{store_id}/modules", h.addModule).Methods(http.MethodPost)
	r.HandleFunc("/store-layout/{store_id}/modules/{module_id}", h.removeModule).Methods(http.MethodDelete)
	r.HandleFunc("/store-layout/{store_id}/modules/{module_id}", h.updateModule).Methods(http.MethodPatch)

	r.HandleFunc("/grid/snap", h.snap).Methods(http.MethodPost)
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) createStore(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID               *int    `json:"id"`
		Name             *string `json:"name"`
		NumColumns       *int    `json:"num_columns"`
		ModulesPerColumn *int    `json:"modules_per_column"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := requireFields(map[string]bool{
		"id":                 payload.ID != nil,
		"name":               payload.Name != nil,
		"num_columns":        payload.NumColumns != nil,
		"modules_per_column": payload.ModulesPerColumn != nil,
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	st, _, err := h.app.Stores.Create(r.Context(), store.Store{
		ID:               *payload.ID,
		Name:             *payload.Name,
		NumColumns:       *payload.NumColumns,
		ModulesPerColumn: *payload.ModulesPerColumn,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, "store.create", http.StatusCreated, auditRefs{storeID: &st.ID})
	writeJSON(w, http.StatusCreated, map[string]any{"message": "store created", "store": st})
}

func (h *handler) listStores(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Stores.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) getStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathInt(r, "store_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	st, err := h.app.Stores.Get(r.Context(), storeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID   *int    `json:"id"`
		Name *string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := requireFields(map[string]bool{"id": payload.ID != nil, "name": payload.Name != nil}); err != nil {
		h.fail(w, r, err)
		return
	}

	cat, err := h.app.Categories.Create(r.Context(), *payload.ID, *payload.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, "category.create", http.StatusCreated, auditRefs{categoryID: &cat.ID})
	writeJSON(w, http.StatusCreated, cat)
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Categories.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) getLayout(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathInt(r, "store_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	l, err := h.app.Layouts.Get(r.Context(), storeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *handler) replaceLayout(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathInt(r, "store_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload layout.Layout
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	stored, err := h.app.Layouts.Replace(r.Context(), storeID, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, "layout.replace", http.StatusOK, auditRefs{storeID: &storeID})
	writeJSON(w, http.StatusOK, map[string]any{"message": "layout updated", "store_layout": stored})
}

func (h *handler) share(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathInt(r, "store_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.app.Layouts.Share(r.Context(), storeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) addModule(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathInt(r, "store_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	mod, err := h.app.Layouts.AddModule(r.Context(), storeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, "module.add", http.StatusCreated, auditRefs{storeID: &storeID, moduleID: &mod.ModuleID})
	writeJSON(w, http.StatusCreated, map[string]any{"message": "module added", "module": mod})
}

func (h *handler) removeModule(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathInt(r, "store_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	moduleID, err := pathInt(r, "module_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	l, err := h.app.Layouts.RemoveModule(r.Context(), storeID, moduleID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, "module.remove", http.StatusOK, auditRefs{storeID: &storeID, moduleID: &moduleID})
	writeJSON(w, http.StatusOK, map[string]any{"message": "module removed", "store_layout": l})
}

func (h *handler) updateModule(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathInt(r, "store_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	moduleID, err := pathInt(r, "module_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload layouts.ModuleUpdate
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	if payload.Empty() {
		h.fail(w, r, svcerrors.MalformedInput("update changes nothing"))
		return
	}

	mod, err := h.app.Layouts.UpdateModule(r.Context(), storeID, moduleID, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, "module.update", http.StatusOK, auditRefs{storeID: &storeID, moduleID: &moduleID, categoryID: mod.CategoryID})
	writeJSON(w, http.StatusOK, map[string]any{"message": "module updated", "module": mod})
}

func (h *handler) importLayout(w http.ResponseWriter, r *http.Request) {
	var payload layout.Layout
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.app.Layouts.Import(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, "layout.import", http.StatusOK, auditRefs{storeID: &res.Store.ID})
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "layout imported",
		"store":        res.Store,
		"store_layout": res.Layout,
		"created":      res.Created,
	})
}

func (h *handler) snap(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		X        *int `json:"x"`
		Y        *int `json:"y"`
		GridUnit *int `json:"grid_unit"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := requireFields(map[string]bool{"x": payload.X != nil, "y": payload.Y != nil}); err != nil {
		h.fail(w, r, err)
		return
	}
	unit := layout.GridUnit
	if payload.GridUnit != nil {
		if *payload.GridUnit <= 0 {
			h.fail(w, r, svcerrors.MalformedInput("grid_unit must be positive"))
			return
		}
		unit = *payload.GridUnit
	}
	writeJSON(w, http.StatusOK, layouts.SnapToGridUnit(layout.Position{X: *payload.X, Y: *payload.Y}, unit))
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(w, r, svcerrors.MalformedInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

type auditRefs struct {
	storeID    *int
	categoryID *int
	moduleID   *int
}

func (h *handler) record(r *http.Request, action string, status int, refs auditRefs) {
	h.audit.add(AuditEntry{
		Action:     action,
		StoreID:    copyInt(refs.storeID),
		CategoryID: copyInt(refs.categoryID),
		ModuleID:   copyInt(refs.moduleID),
		Status:     status,
		RemoteAddr: r.RemoteAddr,
		TraceID:    middleware.TraceID(r.Context()),
	})
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, svcerrors.MalformedInput("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func requireFields(present map[string]bool) error {
	var missing []string
	for name, ok := range present {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return svcerrors.MalformedInput("missing required field(s): %s", strings.Join(missing, ", "))
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if _, ok := svcerrors.As(err); ok {
			return err
		}
		if errors.Is(err, io.EOF) {
			return svcerrors.MalformedInput("request body is required")
		}
		return svcerrors.WrapMalformed(err, "invalid request body")
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// fail writes err as an error response. Server-side failures are logged;
// client errors are already covered by the request log line.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if svcerrors.HTTPStatusOf(err) >= http.StatusInternalServerError {
		h.log.WithError(err).
			WithField("path", r.URL.Path).
			WithField("trace_id", middleware.TraceID(r.Context())).
			Error("request failed")
	}
	writeError(w, err)
}

func writeError(w http.ResponseWriter, err error) {
	status := svcerrors.HTTPStatusOf(err)
	code := string(svcerrors.KindOf(err))
	if code == "" {
		code = "internal"
	}
	msg := err.Error()
	if svcErr, ok := svcerrors.As(err); ok && svcErr.Message != "" {
		msg = svcErr.Message
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

