package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skobelev/storefront/internal/domain/user"
)

type roleResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Permissions []user.Permission `json:"permissions"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toRoleResponse(r *user.Role) roleResponse {
	perms := r.Permissions
	if perms == nil {
		perms = []user.Permission{}
	}
	return roleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]roleResponse, len(roles))
	for i := range roles {
		out[i] = toRoleResponse(&roles[i])
	}
	respondData(w, http.StatusOK, out)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.roles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toRoleResponse(role))
}

type roleRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Permissions []user.Permission `json:"permissions"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := &user.Role{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	}
	if err := role.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.roles.Create(r.Context(), role); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.roles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	role.Name = req.Name
	role.Description = req.Description
	role.Permissions = req.Permissions
	if err := role.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.roles.Update(r.Context(), role); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toRoleResponse(role))
}

// deleteRole refuses while users still hold the role.
func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	n, err := h.roles.UserCount(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if n > 0 {
		respondError(w, http.StatusConflict, "role is assigned to users and cannot be deleted")
		return
	}

	if err := h.roles.Delete(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "role deleted")
}
