package directory

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/akivmoovex/fuelx-crm-sub001/pkg/audit"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/httputil"
)

// Handlers provides administrative HTTP handlers for the directory.
type Handlers struct {
	store   *Store
	auditor audit.Logger
}

// NewHandlers creates directory handlers. A nil auditor disables the audit
// trail for tenant administration.
func NewHandlers(store *Store, auditor audit.Logger) *Handlers {
	if auditor == nil {
		auditor = audit.NewNopLogger()
	}
	return &Handlers{store: store, auditor: auditor}
}

// RegisterRoutes registers all directory routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/directory/tenants", h.CreateTenant).Methods("POST")
	router.HandleFunc("/directory/tenants", h.ListTenants).Methods("GET")
	router.HandleFunc("/directory/tenants/{id}", h.GetTenant).Methods("GET")
	router.HandleFunc("/directory/tenants/{id}", h.DeleteTenant).Methods("DELETE")

	router.HandleFunc("/directory/tenants/{id}/business-units", h.CreateBusinessUnit).Methods("POST")
	router.HandleFunc("/directory/tenants/{id}/business-units", h.ListBusinessUnits).Methods("GET")

	router.HandleFunc("/directory/users", h.CreateUser).Methods("POST")
	router.HandleFunc("/directory/users/{id}", h.GetUser).Methods("GET")
	router.HandleFunc("/directory/users/{id}", h.DeleteUser).Methods("DELETE")

	router.HandleFunc("/directory/menu-items", h.CreateMenuItem).Methods("POST")
	router.HandleFunc("/directory/menu-items", h.ListMenuItems).Methods("GET")
	router.HandleFunc("/directory/menu-items/{id}", h.UpdateMenuItem).Methods("PUT")
	router.HandleFunc("/directory/menu-items/{id}", h.DeleteMenuItem).Methods("DELETE")
	router.HandleFunc("/directory/menu-items/{id}/roles", h.UpsertRoleMenuItem).Methods("PUT")
}

// CreateTenantRequest is the body for POST /directory/tenants.
type CreateTenantRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	tenant, err := h.store.CreateTenant(r.Context(), req.Name, TenantKind(req.Kind))
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	_ = h.auditor.Log(r.Context(), &audit.Event{
		EventType: audit.EventTypeTenantCreate,
		Status:    audit.EventStatusSuccess,
		TenantID:  &tenant.ID,
		Message:   "tenant created",
		Metadata:  map[string]interface{}{"name": tenant.Name, "kind": string(tenant.Kind)},
	})
	httputil.WriteCreated(w, tenant)
}

func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.ListTenants(r.Context())
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"tenants": tenants})
}

func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	tenant, err := h.store.GetTenant(r.Context(), id)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteSuccess(w, tenant)
}

func (h *Handlers) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.DeleteTenant(r.Context(), id); err != nil {
		writeDirectoryError(w, err)
		return
	}
	_ = h.auditor.Log(r.Context(), &audit.Event{
		EventType: audit.EventTypeTenantDelete,
		Status:    audit.EventStatusSuccess,
		TenantID:  &id,
		Message:   "tenant deleted with all scoped records",
	})
	httputil.WriteNoContent(w)
}

// CreateBusinessUnitRequest is the body for POST /directory/tenants/{id}/business-units.
type CreateBusinessUnitRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) CreateBusinessUnit(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var req CreateBusinessUnitRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	unit, err := h.store.CreateBusinessUnit(r.Context(), tenantID, req.Name)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteCreated(w, unit)
}

func (h *Handlers) ListBusinessUnits(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	units, err := h.store.ListBusinessUnits(r.Context(), tenantID)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"business_units": units})
}

// CreateUserRequest is the body for POST /directory/users.
type CreateUserRequest struct {
	DisplayName    string `json:"display_name"`
	Role           string `json:"role"`
	BusinessUnitID *int64 `json:"business_unit_id"`
	TenantID       *int64 `json:"tenant_id"`
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Role == "" {
		httputil.WriteBadRequest(w, "role is required")
		return
	}

	user, err := h.store.CreateUser(r.Context(), &User{
		DisplayName:    req.DisplayName,
		Role:           req.Role,
		BusinessUnitID: req.BusinessUnitID,
		TenantID:       req.TenantID,
	})
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteCreated(w, user)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// MenuItemRequest is the body for creating or updating a menu item.
type MenuItemRequest struct {
	TenantID  *int64 `json:"tenant_id"`
	Path      string `json:"path"`
	Label     string `json:"label"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}

func (h *Handlers) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req MenuItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), &MenuItem{
		TenantID:  req.TenantID,
		Path:      req.Path,
		Label:     req.Label,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteCreated(w, item)
}

func (h *Handlers) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	var tenantID *int64
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		id := int64(httputil.QueryInt(r, "tenant_id", 0))
		if id <= 0 {
			httputil.WriteBadRequest(w, "invalid tenant_id")
			return
		}
		tenantID = &id
	}

	items, err := h.store.ListMenuItems(r.Context(), tenantID)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"menu_items": items})
}

func (h *Handlers) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var req MenuItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	item := &MenuItem{
		ID:        id,
		Path:      req.Path,
		Label:     req.Label,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	}
	if err := h.store.UpdateMenuItem(r.Context(), item); err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteSuccess(w, item)
}

func (h *Handlers) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// RoleMenuItemRequest is the body for PUT /directory/menu-items/{id}/roles.
type RoleMenuItemRequest struct {
	Role      string `json:"role"`
	IsVisible bool   `json:"is_visible"`
	IsEnabled bool   `json:"is_enabled"`
}

func (h *Handlers) UpsertRoleMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var req RoleMenuItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Role == "" {
		httputil.WriteBadRequest(w, "role is required")
		return
	}

	err = h.store.UpsertRoleMenuItem(r.Context(), &RoleMenuItem{
		MenuItemID: id,
		Role:       req.Role,
		IsVisible:  req.IsVisible,
		IsEnabled:  req.IsEnabled,
	})
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func writeDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.Is(err, ErrConflict):
		httputil.WriteConflict(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}
