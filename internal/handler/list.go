package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/listpal/listpal/internal/auth"
	"github.com/listpal/listpal/internal/email"
	"github.com/listpal/listpal/internal/list"
	"github.com/listpal/listpal/internal/model"
	"github.com/listpal/listpal/internal/store"
)

type ListHandler struct {
	svc    *list.Service
	gate   *auth.Gate
	users  *store.UserStore
	email  *email.Client
	logger *slog.Logger
}

func NewListHandler(svc *list.Service, gate *auth.Gate, users *store.UserStore, emailClient *email.Client, logger *slog.Logger) *ListHandler {
	return &ListHandler{svc: svc, gate: gate, users: users, email: emailClient, logger: logger}
}

// authorize runs the gate predicate selected by the scope the request itself
// declares. PUBLIC requests need no predicate; the id pair is the capability.
func (h *ListHandler) authorize(r *http.Request, scope model.Scope, containerID, listID string) error {
	sub, ok := auth.FromContext(r.Context())
	if !ok {
		return auth.ErrForbidden
	}
	switch scope {
	case model.ScopeRestricted:
		return h.gate.AuthorizeRestricted(sub, listID)
	case model.ScopePublic:
		return nil
	default:
		return h.gate.AuthorizePrivate(sub, containerID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to the wire status.
func (h *ListHandler) writeError(w http.ResponseWriter, err error) {
	var derr *list.Error
	if errors.As(err, &derr) {
		switch derr.Kind {
		case list.KindValidation, list.KindNotFound:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": derr.Message})
		case list.KindAuth, list.KindScopeMismatch:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": derr.Message})
		default:
			h.logger.Error("store failure", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}
	if errors.Is(err, auth.ErrForbidden) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "forbidden"})
		return
	}
	h.logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

type createListRequest struct {
	ContainerID string      `json:"container_id"`
	Name        string      `json:"name"`
	Scope       model.Scope `json:"scope"`
}

func (h *ListHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	// Lists are always created inside the caller's own container.
	if err := h.authorize(r, model.ScopePrivate, req.ContainerID, ""); err != nil {
		h.writeError(w, err)
		return
	}
	ref, err := h.svc.CreateList(req.ContainerID, req.Name, req.Scope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (h *ListHandler) GetLists(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container_id")
	if err := h.authorize(r, model.ScopePrivate, containerID, ""); err != nil {
		h.writeError(w, err)
		return
	}
	container, err := h.svc.FetchAllLists(containerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, container)
}

type listRequest struct {
	ContainerID string      `json:"container_id"`
	ListID      string      `json:"list_id"`
	Scope       model.Scope `json:"scope"`
}

func (h *ListHandler) GetList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, req.Scope, req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}
	l, err := h.svc.FetchList(req.ContainerID, req.ListID, req.Scope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type itemRequest struct {
	ContainerID string      `json:"container_id"`
	ListID      string      `json:"list_id"`
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Quantity    int         `json:"quantity"`
	Priority    int         `json:"priority"`
	Scope       model.Scope `json:"scope"`
	PreviousID  string      `json:"previous_id"`
}

func (h *ListHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, req.Scope, req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}
	item := model.Item{
		ListID:   req.ListID,
		Name:     req.Name,
		Category: req.Category,
		Quantity: req.Quantity,
		Priority: req.Priority,
		AddedBy:  auth.Username(r.Context()),
	}
	created, err := h.svc.AddItem(req.ContainerID, item, req.Scope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *ListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.PreviousID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "previous_id is required"})
		return
	}
	if err := h.authorize(r, req.Scope, req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}
	item := model.Item{
		ListID:   req.ListID,
		Name:     req.Name,
		Category: req.Category,
		Quantity: req.Quantity,
		Priority: req.Priority,
		AddedBy:  auth.Username(r.Context()),
	}
	updated, err := h.svc.UpdateItem(req.ContainerID, item, req.PreviousID, req.Scope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type deleteItemRequest struct {
	ContainerID string      `json:"container_id"`
	ListID      string      `json:"list_id"`
	ItemID      string      `json:"item_id"`
	Scope       model.Scope `json:"scope"`
}

func (h *ListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	var req deleteItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, req.Scope, req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.DeleteItem(req.ContainerID, req.ListID, req.ItemID, req.Scope); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "item deleted"})
}

type checkItemsRequest struct {
	ContainerID string      `json:"container_id"`
	ListID      string      `json:"list_id"`
	ItemIDs     []string    `json:"item_ids"`
	Scope       model.Scope `json:"scope"`
}

func (h *ListHandler) CheckItems(w http.ResponseWriter, r *http.Request) {
	var req checkItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, req.Scope, req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.CheckItems(req.ContainerID, req.ListID, req.ItemIDs, req.Scope); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "corresponding items checked"})
}

type updateListRequest struct {
	ContainerID string      `json:"container_id"`
	ListID      string      `json:"list_id"`
	Name        string      `json:"name"`
	Scope       model.Scope `json:"scope"`
}

func (h *ListHandler) UpdateList(w http.ResponseWriter, r *http.Request) {
	var req updateListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	// Only the owner may rename or change scope.
	if err := h.authorize(r, model.ScopePrivate, req.ContainerID, ""); err != nil {
		h.writeError(w, err)
		return
	}
	l, err := h.svc.UpdateList(req.ContainerID, req.ListID, req.Name, req.Scope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type peopleRequest struct {
	ContainerID string   `json:"container_id"`
	ListID      string   `json:"list_id"`
	People      []string `json:"people"`
}

func (h *ListHandler) AddPeople(w http.ResponseWriter, r *http.Request) {
	var req peopleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, model.ScopeRestricted, req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.AddPeople(req.ContainerID, req.ListID, req.People); err != nil {
		h.writeError(w, err)
		return
	}

	inviter := auth.Username(r.Context())
	for _, person := range req.People {
		if err := h.users.RecordContact(inviter, person); err != nil {
			h.logger.Warn("record contact", "error", err)
		}
	}
	h.notifyShared(inviter, req.People, req.ListID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// notifyShared emails each grantee, best effort.
func (h *ListHandler) notifyShared(inviter string, people []string, listID string) {
	if h.email == nil || !h.email.Configured() {
		return
	}
	for _, person := range people {
		u, err := h.users.GetByUsername(person)
		if err != nil || u == nil || u.Email == "" {
			continue
		}
		if err := h.email.SendListShared(u.Email, inviter); err != nil {
			h.logger.Warn("send share notification", "to", person, "error", err)
		}
	}
}

func (h *ListHandler) RemovePeople(w http.ResponseWriter, r *http.Request) {
	var req peopleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, model.ScopeRestricted, req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.RemovePeople(req.ContainerID, req.ListID, req.People); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *ListHandler) GetPeople(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, model.ScopeRestricted, req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}
	people, err := h.svc.GetPeople(req.ContainerID, req.ListID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

// destructiveGateScope picks the predicate for delete and reset. A PUBLIC id
// pair grants reads and item edits, never destruction; outside RESTRICTED the
// caller must own the container.
func destructiveGateScope(scope model.Scope) model.Scope {
	if scope == model.ScopeRestricted {
		return model.ScopeRestricted
	}
	return model.ScopePrivate
}

func (h *ListHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, destructiveGateScope(req.Scope), req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}

	var err error
	if req.Scope == model.ScopeRestricted {
		err = h.svc.DeleteRestrictedList(req.ContainerID, req.ListID)
	} else {
		err = h.svc.DeleteList(req.ContainerID, req.ListID, req.Scope)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "list deleted successfully"})
}

func (h *ListHandler) ResetList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, destructiveGateScope(req.Scope), req.ContainerID, req.ListID); err != nil {
		h.writeError(w, err)
		return
	}
	l, err := h.svc.ResetList(req.ContainerID, req.ListID, req.Scope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type reorderRequest struct {
	ListIDs []string `json:"list_ids"`
}

func (h *ListHandler) ReorderLists(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container_id")
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.authorize(r, model.ScopePrivate, containerID, ""); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.ReorderRefs(containerID, req.ListIDs); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "order updated"})
}

// GetPublicList dereferences a PUBLIC list by its (container id, list id)
// pair. No subject is required; the pair itself is the capability.
func (h *ListHandler) GetPublicList(w http.ResponseWriter, r *http.Request) {
	containerID := r.URL.Query().Get("container_id")
	listID := r.URL.Query().Get("list_id")
	l, err := h.svc.FetchList(containerID, listID, model.ScopePublic)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
