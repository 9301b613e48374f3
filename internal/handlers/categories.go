package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkpost/internal/httputil"
	"inkpost/internal/middleware"
	"inkpost/internal/service"
)

// Categories serves the category endpoints.
type Categories struct {
	categories *service.Categories
}

// NewCategories creates a new Categories handler group.
func NewCategories(categories *service.Categories) *Categories {
	return &Categories{categories: categories}
}

func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.List(r.Context())
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.OK(w, http.StatusOK, httputil.Fields{"count": len(cats), "data": cats})
}

func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	cat, err := h.categories.Get(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.Data(w, http.StatusOK, cat)
}

func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if err := httputil.Decode(w, r, &in); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	cat, err := h.categories.Create(r.Context(), middleware.UserFromCtx(r.Context()), in)
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.Data(w, http.StatusCreated, cat)
}

func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateCategoryInput
	if err := httputil.Decode(w, r, &in); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	cat, err := h.categories.Update(r.Context(), middleware.UserFromCtx(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.Data(w, http.StatusOK, cat)
}

func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.categories.Delete(r.Context(), middleware.UserFromCtx(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.OK(w, http.StatusOK, httputil.Fields{"message": "Category deleted successfully"})
}
