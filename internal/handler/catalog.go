package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skobelev/storefront/internal/domain/catalog"
	"github.com/skobelev/storefront/internal/domain/user"
)

// mountCatalog wires the colors, sizes and categories routes. The three
// attribute types share the same CRUD shape.
func (h *Handler) mountCatalog(r chi.Router) {
	read := h.requirePermission(user.PermCatalogRead)
	write := h.requirePermission(user.PermCatalogWrite)

	r.Route("/colors", func(r chi.Router) {
		r.With(read).Get("/", h.listColors)
		r.With(read).Get("/{id}", h.getColor)
		r.With(write).Post("/", h.createColor)
		r.With(write).Put("/{id}", h.updateColor)
		r.With(write).Delete("/{id}", h.deleteColor)
	})
	r.Route("/sizes", func(r chi.Router) {
		r.With(read).Get("/", h.listSizes)
		r.With(read).Get("/{id}", h.getSize)
		r.With(write).Post("/", h.createSize)
		r.With(write).Put("/{id}", h.updateSize)
		r.With(write).Delete("/{id}", h.deleteSize)
	})
	r.Route("/categories", func(r chi.Router) {
		r.With(read).Get("/", h.listCategories)
		r.With(read).Get("/{id}", h.getCategory)
		r.With(write).Post("/", h.createCategory)
		r.With(write).Put("/{id}", h.updateCategory)
		r.With(write).Delete("/{id}", h.deleteCategory)
	})
}

type attributeRequest struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sort_order"`
}

type attributeResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Value     string    `json:"value,omitempty"`
	Slug      string    `json:"slug,omitempty"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) listColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.colors.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]attributeResponse, len(colors))
	for i, c := range colors {
		out[i] = attributeResponse{ID: c.ID, Name: c.Name, Value: c.Value, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt}
	}
	respondData(w, http.StatusOK, out)
}

func (h *Handler) getColor(w http.ResponseWriter, r *http.Request) {
	c, err := h.colors.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, attributeResponse{ID: c.ID, Name: c.Name, Value: c.Value, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt})
}

func (h *Handler) createColor(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := &catalog.Color{Name: req.Name, Value: req.Value, SortOrder: req.SortOrder}
	if err := c.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.colors.Create(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, attributeResponse{ID: c.ID, Name: c.Name, Value: c.Value, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt})
}

func (h *Handler) updateColor(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.colors.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	c.Name = req.Name
	c.Value = req.Value
	c.SortOrder = req.SortOrder
	if err := c.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.colors.Update(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, attributeResponse{ID: c.ID, Name: c.Name, Value: c.Value, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt})
}

func (h *Handler) deleteColor(w http.ResponseWriter, r *http.Request) {
	if err := h.colors.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "color deleted")
}

func (h *Handler) listSizes(w http.ResponseWriter, r *http.Request) {
	sizes, err := h.sizes.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]attributeResponse, len(sizes))
	for i, s := range sizes {
		out[i] = attributeResponse{ID: s.ID, Name: s.Name, Value: s.Value, SortOrder: s.SortOrder, CreatedAt: s.CreatedAt}
	}
	respondData(w, http.StatusOK, out)
}

func (h *Handler) getSize(w http.ResponseWriter, r *http.Request) {
	s, err := h.sizes.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, attributeResponse{ID: s.ID, Name: s.Name, Value: s.Value, SortOrder: s.SortOrder, CreatedAt: s.CreatedAt})
}

func (h *Handler) createSize(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := &catalog.Size{Name: req.Name, Value: req.Value, SortOrder: req.SortOrder}
	if err := s.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.sizes.Create(r.Context(), s); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, attributeResponse{ID: s.ID, Name: s.Name, Value: s.Value, SortOrder: s.SortOrder, CreatedAt: s.CreatedAt})
}

func (h *Handler) updateSize(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.sizes.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	s.Name = req.Name
	s.Value = req.Value
	s.SortOrder = req.SortOrder
	if err := s.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.sizes.Update(r.Context(), s); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, attributeResponse{ID: s.ID, Name: s.Name, Value: s.Value, SortOrder: s.SortOrder, CreatedAt: s.CreatedAt})
}

func (h *Handler) deleteSize(w http.ResponseWriter, r *http.Request) {
	if err := h.sizes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "size deleted")
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]attributeResponse, len(categories))
	for i, c := range categories {
		out[i] = attributeResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt}
	}
	respondData(w, http.StatusOK, out)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, attributeResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := &catalog.Category{Name: req.Name, Slug: req.Slug, SortOrder: req.SortOrder}
	if err := c.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.categories.Create(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, attributeResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt})
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.categories.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	c.Name = req.Name
	c.Slug = req.Slug
	c.SortOrder = req.SortOrder
	if err := c.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.categories.Update(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, attributeResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "category deleted")
}
