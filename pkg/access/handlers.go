package access

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/akivmoovex/fuelx-crm-sub001/pkg/httputil"
)

// Handlers provides HTTP handlers for access decisions and catalog
// administration.
type Handlers struct {
	engine *Engine
}

// NewHandlers creates new access handlers around an engine.
func NewHandlers(engine *Engine) *Handlers {
	return &Handlers{engine: engine}
}

// RegisterRoutes registers all access routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	// Decision surface
	router.HandleFunc("/access/check", h.CheckPermission).Methods("POST")
	router.HandleFunc("/access/users/{id}/menu", h.GetVisibleMenu).Methods("GET")

	// Catalog administration
	router.HandleFunc("/access/roles/{role}/permissions", h.GrantPermission).Methods("PUT")
	router.HandleFunc("/access/roles/{role}/permissions", h.GetEffectivePermissions).Methods("GET")
	router.HandleFunc("/access/permissions", h.ListPermissions).Methods("GET")
	router.HandleFunc("/access/permissions/rename", h.RenamePermissions).Methods("POST")
}

// CheckRequest is the body for POST /access/check.
type CheckRequest struct {
	UserID   int64  `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// CheckResponse reports the outcome of a permission check.
type CheckResponse struct {
	Allowed bool `json:"allowed"`
}

// CheckPermission handles POST /access/check.
func (h *Handlers) CheckPermission(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID <= 0 || req.Resource == "" || req.Action == "" {
		httputil.WriteBadRequest(w, "user_id, resource and action are required")
		return
	}

	allowed := h.engine.CanPerform(r.Context(), req.UserID, req.Resource, req.Action)
	httputil.WriteSuccess(w, CheckResponse{Allowed: allowed})
}

// GetVisibleMenu handles GET /access/users/{id}/menu. An empty menu is a
// valid result and returns 200 with an empty list.
func (h *Handlers) GetVisibleMenu(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	entries := h.engine.VisibleMenu(r.Context(), userID)
	httputil.WriteSuccess(w, map[string]interface{}{"menu": entries})
}

// GrantRequest is the body for PUT /access/roles/{role}/permissions.
type GrantRequest struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Granted  bool   `json:"granted"`
}

// GrantPermission handles PUT /access/roles/{role}/permissions.
func (h *Handlers) GrantPermission(w http.ResponseWriter, r *http.Request) {
	roleStr, err := httputil.ParsePathString(r, "role")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	role, err := ParseRole(roleStr)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var req GrantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.engine.Grant(r.Context(), role, req.Resource, req.Action, req.Granted); err != nil {
		writeAccessError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// GetEffectivePermissions handles GET /access/roles/{role}/permissions.
func (h *Handlers) GetEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	roleStr, err := httputil.ParsePathString(r, "role")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	role, err := ParseRole(roleStr)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	permissions, err := h.engine.EffectivePermissions(r.Context(), role)
	if err != nil {
		writeAccessError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"role":        role,
		"permissions": permissions,
	})
}

// ListPermissions handles GET /access/permissions.
func (h *Handlers) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.engine.Catalog().ListPermissions(r.Context())
	if err != nil {
		writeAccessError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"permissions": permissions})
}

// RenameRequest is the body for POST /access/permissions/rename.
type RenameRequest struct {
	Old []PermissionKey `json:"old"`
	New []PermissionDef `json:"new"`
}

// RenamePermissions handles POST /access/permissions/rename.
func (h *Handlers) RenamePermissions(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.engine.RenamePermissions(r.Context(), req.Old, req.New); err != nil {
		writeAccessError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// writeAccessError maps domain errors to HTTP status codes.
func writeAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidIdentifier), errors.Is(err, ErrUnknownRole):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.Is(err, ErrConflict):
		httputil.WriteConflict(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}
