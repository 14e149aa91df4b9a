package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/repo"
)

// UsersHandler handles profile and user administration endpoints.
type UsersHandler struct {
	Users *repo.UserRepo
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, CurrentUser(r.Context()))
}

// UpdateMe handles PUT /users/me. The body is a merge-patch: absent
// fields are left untouched.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	current := CurrentUser(r.Context())

	var patch repo.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if patch.Email != nil {
		if err := validateEmail(*patch.Email); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if patch.Username != nil {
		if err := validateUsername(*patch.Username); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if patch.Email != nil && *patch.Email != current.Email {
		existing, err := h.Users.GetByEmail(r.Context(), *patch.Email)
		if err != nil {
			slog.Error("checking email", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if existing != nil {
			jsonError(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	if patch.Username != nil && *patch.Username != current.Username {
		existing, err := h.Users.GetByUsername(r.Context(), *patch.Username)
		if err != nil {
			slog.Error("checking username", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if existing != nil {
			jsonError(w, http.StatusBadRequest, "Username already registered")
			return
		}
	}

	user, err := h.Users.Update(r.Context(), current, patch)
	if err != nil {
		if db.IsUniqueViolation(err) {
			jsonError(w, http.StatusConflict, "Email or username already registered")
			return
		}
		slog.Error("updating user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// List handles GET /users/ (superuser only).
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)

	users, err := h.Users.GetMany(r.Context(), p.Skip, p.Limit, p.OrderBy, p.OrderDirection)
	if err != nil {
		slog.Error("listing users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Get handles GET /users/{id} (superuser only).
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.Users.Get(r.Context(), id)
	if err != nil {
		slog.Error("getting user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "User not found")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{id} (superuser only). Deleting the
// calling account is rejected; deleting an account cascades to its
// products.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	current := CurrentUser(r.Context())
	if current.ID == id {
		jsonError(w, http.StatusBadRequest, "Cannot delete yourself")
		return
	}

	deleted, err := h.Users.Remove(r.Context(), id)
	if err != nil {
		slog.Error("deleting user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if deleted == nil {
		jsonError(w, http.StatusNotFound, "User not found")
		return
	}

	slog.Info("user deleted", "user", current.Username, "deleted_user", deleted.Username)
	w.WriteHeader(http.StatusNoContent)
}
