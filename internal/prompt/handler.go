package prompt

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/promptopia/backend/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// PromptStore defines the interface for prompt persistence.
type PromptStore interface {
	Create(ctx context.Context, creatorID, prompt, tag string, isPublic bool) (*models.Prompt, error)
	GetByID(ctx context.Context, id string) (*models.Prompt, error)
	ListPublic(ctx context.Context) ([]models.Prompt, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.Prompt, error)
	Update(ctx context.Context, id, prompt, tag string) (*models.Prompt, error)
	Delete(ctx context.Context, id string) error
}

// UserStore is the slice of the user store the prompt handlers need:
// creator profiles for list views and the bookmark operations.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ToggleBookmark(ctx context.Context, userID, promptID string) (bool, error)
	IsBookmarked(ctx context.Context, userID, promptID string) (bool, error)
	GetBookmarks(ctx context.Context, userID string) ([]string, error)
}

// Handler holds prompt HTTP handlers.
type Handler struct {
	prompts PromptStore
	users   UserStore
}

func NewHandler(prompts PromptStore, users UserStore) *Handler {
	return &Handler{prompts: prompts, users: users}
}

// Create stores a new prompt owned by the current user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(string)

	var req models.PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt text is required"})
		return
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	p, err := h.prompts.Create(r.Context(), userID, req.Prompt, req.Tag, isPublic)
	if err != nil {
		log.Printf("create prompt error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create prompt"})
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// List returns all public prompts, newest first, with creator profiles.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.prompts.ListPublic(r.Context())
	if err != nil {
		log.Printf("list prompts error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch prompts"})
		return
	}
	writeJSON(w, http.StatusOK, h.decorate(r.Context(), prompts))
}

// Get returns a single prompt with its creator profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.prompts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Printf("get prompt error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch prompt"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prompt not found"})
		return
	}
	h.attachCreator(r.Context(), p)
	writeJSON(w, http.StatusOK, p)
}

// Update edits a prompt's text and tag. Only the owner may edit.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(string)
	id := chi.URLParam(r, "id")

	var req models.PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt text is required"})
		return
	}

	existing, err := h.prompts.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get prompt error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch prompt"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prompt not found"})
		return
	}
	if existing.CreatorID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	p, err := h.prompts.Update(r.Context(), id, req.Prompt, req.Tag)
	if err != nil {
		log.Printf("update prompt error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update prompt"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prompt not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete removes a prompt. Only the owner may delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(string)
	id := chi.URLParam(r, "id")

	existing, err := h.prompts.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get prompt error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch prompt"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prompt not found"})
		return
	}
	if existing.CreatorID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	if err := h.prompts.Delete(r.Context(), id); err != nil {
		log.Printf("delete prompt error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete prompt"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "prompt deleted successfully"})
}

// ToggleBookmark flips the prompt's presence in the current user's
// bookmarks. Callers cannot specify a desired end state, only flip.
func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(string)
	promptID := chi.URLParam(r, "id")

	p, err := h.prompts.GetByID(r.Context(), promptID)
	if err != nil {
		log.Printf("get prompt error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prompt not found"})
		return
	}

	bookmarked, err := h.users.ToggleBookmark(r.Context(), userID, promptID)
	if err != nil {
		log.Printf("toggle bookmark error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	message := "Prompt removed from bookmarks"
	if bookmarked {
		message = "Prompt saved to bookmarks"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"bookmarked": bookmarked,
		"message":    message,
	})
}

// CheckBookmark reports whether the current user bookmarked the prompt.
// Anonymous callers get {bookmarked:false}, never an error.
func (h *Handler) CheckBookmark(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": false})
		return
	}

	bookmarked, err := h.users.IsBookmarked(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		log.Printf("check bookmark error: %v", err)
		writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
}

// Saved returns the user's bookmarked prompts in bookmark order. Stale
// references to deleted prompts are filtered out, not cleaned up.
func (h *Handler) Saved(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(string)

	ids, err := h.users.GetBookmarks(r.Context(), userID)
	if err != nil {
		log.Printf("get bookmarks error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	saved := []models.Prompt{}
	for _, id := range ids {
		p, err := h.prompts.GetByID(r.Context(), id)
		if err != nil {
			log.Printf("get bookmarked prompt error: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		if p == nil {
			continue
		}
		saved = append(saved, *p)
	}
	writeJSON(w, http.StatusOK, h.decorate(r.Context(), saved))
}

// UserPosts lists the prompts created by the given user.
func (h *Handler) UserPosts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.prompts.ListByCreator(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Printf("list user posts error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch user posts"})
		return
	}
	writeJSON(w, http.StatusOK, h.decorate(r.Context(), prompts))
}

// decorate fills in creator profiles for list views, fetching each
// creator at most once.
func (h *Handler) decorate(ctx context.Context, prompts []models.Prompt) []models.Prompt {
	if prompts == nil {
		return []models.Prompt{}
	}
	profiles := make(map[string]*models.Profile)
	for i := range prompts {
		id := prompts[i].CreatorID
		profile, seen := profiles[id]
		if !seen {
			if u, err := h.users.GetUserByID(ctx, id); err == nil && u != nil {
				p := u.PublicProfile()
				profile = &p
			}
			profiles[id] = profile
		}
		prompts[i].Creator = profile
	}
	return prompts
}

func (h *Handler) attachCreator(ctx context.Context, p *models.Prompt) {
	if u, err := h.users.GetUserByID(ctx, p.CreatorID); err == nil && u != nil {
		profile := u.PublicProfile()
		p.Creator = &profile
	}
}
