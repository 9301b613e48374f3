package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"inkpost/internal/httputil"
	"inkpost/internal/middleware"
	"inkpost/internal/service"
)

// Posts serves the post and comment endpoints.
type Posts struct {
	posts *service.Posts
}

// NewPosts creates a new Posts handler group.
func NewPosts(posts *service.Posts) *Posts {
	return &Posts{posts: posts}
}

// List returns a page of published posts. Unparseable page and limit
// values fall back to the defaults.
func (h *Posts) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.posts.List(r.Context(), service.ListPostsInput{
		Page:     queryInt(q.Get("page")),
		Limit:    queryInt(q.Get("limit")),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	httputil.OK(w, http.StatusOK, httputil.Fields{
		"data":       page.Posts,
		"pagination": page.Pagination,
	})
}

// Get returns one post by ID or slug and counts the view.
func (h *Posts) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.Data(w, http.StatusOK, post)
}

// Create publishes a post authored by the caller.
func (h *Posts) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreatePostInput
	if err := httputil.Decode(w, r, &in); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	post, err := h.posts.Create(r.Context(), middleware.UserFromCtx(r.Context()), in)
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.Data(w, http.StatusCreated, post)
}

// Update applies a partial update to a post.
func (h *Posts) Update(w http.ResponseWriter, r *http.Request) {
	var in service.UpdatePostInput
	if err := httputil.Decode(w, r, &in); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	post, err := h.posts.Update(r.Context(), middleware.UserFromCtx(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.Data(w, http.StatusOK, post)
}

// Delete removes a post.
func (h *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.posts.Delete(r.Context(), middleware.UserFromCtx(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.OK(w, http.StatusOK, httputil.Fields{"message": "Post deleted successfully"})
}

type commentRequest struct {
	Content string `json:"content"`
}

// AddComment appends a comment and returns the post's comments.
func (h *Posts) AddComment(w http.ResponseWriter, r *http.Request) {
	var in commentRequest
	if err := httputil.Decode(w, r, &in); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	comments, err := h.posts.AddComment(r.Context(), middleware.UserFromCtx(r.Context()), chi.URLParam(r, "id"), in.Content)
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.Data(w, http.StatusOK, comments)
}

// queryInt parses a query value, returning 0 when it is absent or invalid.
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
