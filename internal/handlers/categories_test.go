package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"inkpost/internal/models"
	"inkpost/internal/policy"
)

func TestCategoryCRUD(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, models.RoleAdmin)

	rec := httptest.NewRecorder()
	env.Categories.Create(rec, request(http.MethodPost, "/api/categories", `{"name":"Web Development","description":"All things web"}`, admin))
	expectStatus(t, rec, http.StatusCreated)
	cat := decodeData[models.Category](t, decode(t, rec).Data)
	if cat.Slug != "web-development" || cat.Color != models.DefaultCategoryColor {
		t.Errorf("created: %+v", cat)
	}

	rec = httptest.NewRecorder()
	env.Categories.Get(rec, request(http.MethodGet, "/api/categories/web-development", "", nil, "idOrSlug", "web-development"))
	expectStatus(t, rec, http.StatusOK)

	id := cat.ID.String()
	rec = httptest.NewRecorder()
	env.Categories.Update(rec, request(http.MethodPut, "/api/categories/"+id, `{"name":"Frontend","color":"#10B981"}`, admin, "id", id))
	expectStatus(t, rec, http.StatusOK)
	updated := decodeData[models.Category](t, decode(t, rec).Data)
	if updated.Slug != "frontend" || updated.Color != "#10B981" {
		t.Errorf("updated: %+v", updated)
	}

	rec = httptest.NewRecorder()
	env.Categories.List(rec, request(http.MethodGet, "/api/categories", "", nil))
	expectStatus(t, rec, http.StatusOK)
	body := decode(t, rec)
	if body.Count != 1 || len(decodeData[[]models.Category](t, body.Data)) != 1 {
		t.Errorf("list: count %d, data %s", body.Count, body.Data)
	}

	rec = httptest.NewRecorder()
	env.Categories.Delete(rec, request(http.MethodDelete, "/api/categories/"+id, "", admin, "id", id))
	expectStatus(t, rec, http.StatusOK)
	if got := decode(t, rec).Message; got != "Category deleted successfully" {
		t.Errorf("message: got %q", got)
	}

	rec = httptest.NewRecorder()
	env.Categories.Get(rec, request(http.MethodGet, "/api/categories/"+id, "", nil, "idOrSlug", id))
	expectStatus(t, rec, http.StatusNotFound)
}

func TestCategoryWritesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	regular := env.user(t, models.RoleUser)

	rec := httptest.NewRecorder()
	env.Categories.Create(rec, request(http.MethodPost, "/api/categories", `{"name":"Sneaky"}`, regular))
	expectStatus(t, rec, http.StatusForbidden)
	if got := decode(t, rec).Error; got != policy.MsgAdminRequired {
		t.Errorf("error: got %q", got)
	}

	rec = httptest.NewRecorder()
	env.Categories.Create(rec, request(http.MethodPost, "/api/categories", `{"name":"Sneaky"}`, nil))
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestCategoryCreateRejects(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, models.RoleAdmin)
	env.category(t, "Tech", "tech")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate name", `{"name":"Tech"}`, http.StatusConflict},
		{"short name", `{"name":"T"}`, http.StatusBadRequest},
		{"bad color", `{"name":"Design","color":"blue"}`, http.StatusBadRequest},
		{"client slug", `{"name":"Design","slug":"design"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.Categories.Create(rec, request(http.MethodPost, "/api/categories", tt.body, admin))
			expectStatus(t, rec, tt.want)
		})
	}
}
