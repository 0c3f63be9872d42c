package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skobelev/storefront/internal/auth"
	"github.com/skobelev/storefront/internal/domain/user"
)

type userResponse struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Roles       []roleResponse    `json:"roles"`
	Permissions []user.Permission `json:"permissions"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toUserResponse(u *user.User) userResponse {
	roles := make([]roleResponse, len(u.Roles))
	perms := make([]user.Permission, 0, 8)
	seen := make(map[user.Permission]bool)
	for i := range u.Roles {
		roles[i] = toRoleResponse(&u.Roles[i])
		for _, p := range u.Roles[i].Permissions {
			if !seen[p] {
				seen[p] = true
				perms = append(perms, p)
			}
		}
	}
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Roles:       roles,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	respondData(w, http.StatusOK, out)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toUserResponse(u))
}

type createUserRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Phone     string   `json:"phone"`
	RoleIDs   []string `json:"role_ids"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	u := &user.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	}
	if err := u.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.users.Create(r.Context(), u); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if len(req.RoleIDs) > 0 {
		if err := h.users.SetRoles(r.Context(), u.ID, req.RoleIDs); err != nil {
			respondDomainError(w, r, err)
			return
		}
	}

	created, err := h.users.GetByID(r.Context(), u.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, toUserResponse(created))
}

type updateUserRequest struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	RoleIDs   *[]string `json:"role_ids"`
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if req.Email != "" {
		u.Email = req.Email
	}
	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.Phone = req.Phone
	if req.Password != "" {
		if len(req.Password) < 8 {
			respondError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		u.PasswordHash = hash
	}
	if err := u.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.users.Update(r.Context(), u); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if req.RoleIDs != nil {
		if err := h.users.SetRoles(r.Context(), u.ID, *req.RoleIDs); err != nil {
			respondDomainError(w, r, err)
			return
		}
	}

	updated, err := h.users.GetByID(r.Context(), u.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toUserResponse(updated))
}

// deleteUser refuses while the user still owns orders, products, reviews or
// addresses.
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	counts, err := h.users.Counts(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !counts.Zero() {
		respondError(w, http.StatusConflict, "user has orders, products, reviews or addresses and cannot be deleted")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "user deleted")
}
