package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/listpal/listpal/internal/auth"
	"github.com/listpal/listpal/internal/model"
	"github.com/listpal/listpal/internal/store"
)

type UserHandler struct {
	users      *store.UserStore
	containers *store.ContainerStore
	provider   *auth.Provider
	logger     *slog.Logger
}

func NewUserHandler(users *store.UserStore, containers *store.ContainerStore, provider *auth.Provider, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, containers: containers, provider: provider, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type registerResponse struct {
	User       *model.User       `json:"user"`
	Containers map[string]string `json:"containers"`
	Token      string            `json:"token"`
}

// Register creates the user row and one container per list kind, and issues
// the first bearer token. Credential checking lives outside this service.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username is required"})
		return
	}

	existing, err := h.users.GetByUsername(req.Username)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username already taken"})
		return
	}

	u, err := h.users.Create(req.Username, req.Name, req.Email, req.Phone)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	containers := make(map[string]string)
	for _, kind := range model.Kinds() {
		c, err := h.containers.Create(req.Username, kind)
		if err != nil {
			h.logger.Error("create container", "kind", kind, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		containers[string(kind)] = c.ID
	}

	token, err := h.provider.Issue(req.Username)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{User: u, Containers: containers, Token: token})
}

type lookupRequest struct {
	Criteria   string `json:"criteria"`
	Identifier string `json:"identifier"`
}

// Lookup finds a user by username or phone, for the share-with-people flow.
func (h *UserHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	var u *model.User
	var err error
	switch strings.ToUpper(req.Criteria) {
	case "USERNAME":
		u, err = h.users.GetByUsername(req.Identifier)
	case "PHONE":
		u, err = h.users.GetByPhone(req.Identifier)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported lookup criteria"})
		return
	}
	if err != nil {
		h.logger.Error("lookup user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if u == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no user found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": u.Username, "name": u.Name})
}

// SuggestedPeople returns the caller's recent contacts, most recent first.
func (h *UserHandler) SuggestedPeople(w http.ResponseWriter, r *http.Request) {
	username := auth.Username(r.Context())
	people, err := h.users.SuggestedPeople(username)
	if err != nil {
		h.logger.Error("suggested people", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if people == nil {
		people = []string{}
	}
	writeJSON(w, http.StatusOK, people)
}
