package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/promptopia/backend/internal/models"
	"github.com/ayush/promptopia/backend/internal/store"
)

const bcryptCost = 12

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateImage(ctx context.Context, id, image string) (*models.User, error)
	CountBookmarks(ctx context.Context, id string) (int64, error)
}

// PromptCounter is the slice of the prompt store the dashboard needs.
type PromptCounter interface {
	CountByCreator(ctx context.Context, creatorID string) (int64, error)
	CountPublic(ctx context.Context) (int64, error)
}

// AvatarUploader stores decoded data-URI avatars and returns their URL.
// ObjectKey maps a previously returned URL back to its object key so a
// replaced avatar can be removed; it reports false for external URLs.
type AvatarUploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	ObjectKey(url string) (string, bool)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users   UserStore
	prompts PromptCounter
	avatars AvatarUploader // nil when MinIO is not configured
	tokens  TokenStrategy
	secure  bool
}

func NewHandler(users UserStore, prompts PromptCounter, avatars AvatarUploader, tokens TokenStrategy, secure bool) *Handler {
	return &Handler{users: users, prompts: prompts, avatars: avatars, tokens: tokens, secure: secure}
}

// Signup creates a new credential-based user.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"name, email, and password are required"}`, http.StatusBadRequest)
		return
	}

	username := NormalizeUsername(req.Username)
	if username != "" && !ValidUsername(username) {
		http.Error(w, `{"error":"username must be 8-20 alphanumeric characters, dots or underscores"}`, http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	user, err := h.users.CreateUser(r.Context(), &models.User{
		Name:     req.Name,
		Username: username,
		Email:    req.Email,
		Password: string(hashed),
		Image:    DefaultAvatarURL(req.Name, req.Email),
	})
	if err == store.ErrDuplicateEmail {
		http.Error(w, `{"error":"user already exists"}`, http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("signup error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "user created successfully",
		"user":    user.PublicProfile(),
	})
}

// Signin verifies credentials and issues session evidence. The error
// message is identical for unknown email, federated-only account, and
// wrong password so accounts cannot be enumerated.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req models.SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"email and password are required"}`, http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("signin lookup error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if user == nil || user.Password == "" {
		http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	token, err := h.tokens.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		log.Printf("token issue error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	SetSessionCookie(w, token, h.secure)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message": "logged in successfully",
		"user":    user.PublicProfile(),
	})
}

// Logout expires the session cookie. Stateless tokens cannot be revoked.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, h.secure)
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"logged out"}`))
}

// Me returns the authenticated user with profile fields read fresh from
// the store, never from session claims.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		log.Printf("me lookup error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"user": user.PublicProfile()})
}

// UpdateProfileImage replaces the user's avatar. Data URIs are decoded and
// stored as objects when object storage is configured; URLs are stored
// verbatim.
func (h *Handler) UpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)

	var req models.ImageUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Image == "" {
		http.Error(w, `{"error":"no image provided"}`, http.StatusBadRequest)
		return
	}
	if !ValidImage(req.Image) {
		http.Error(w, `{"error":"invalid image format"}`, http.StatusBadRequest)
		return
	}

	var previous string
	if h.avatars != nil {
		if current, err := h.users.GetUserByID(r.Context(), userID); err == nil && current != nil {
			previous = current.Image
		}
	}

	image := req.Image
	if h.avatars != nil && strings.HasPrefix(image, "data:image") {
		contentType, data, err := decodeDataURI(image)
		if err != nil {
			http.Error(w, `{"error":"invalid image format"}`, http.StatusBadRequest)
			return
		}
		url, err := h.avatars.Upload(r.Context(), "avatars/"+userID+"-"+uuid.New().String(), data, contentType)
		if err != nil {
			log.Printf("avatar upload error: %v", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		image = url
	}

	user, err := h.users.UpdateImage(r.Context(), userID, image)
	if err != nil {
		log.Printf("image update error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}

	// Best effort: drop the replaced object so the bucket doesn't
	// accumulate orphaned avatars. Failure here never fails the request.
	if h.avatars != nil && previous != "" && previous != image {
		if key, ok := h.avatars.ObjectKey(previous); ok {
			if err := h.avatars.Remove(r.Context(), key); err != nil {
				log.Printf("avatar cleanup error: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"user":    user.PublicProfile(),
	})
}

// DashboardStats summarizes the user's prompt and bookmark activity.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)

	total, err := h.prompts.CountByCreator(r.Context(), userID)
	if err != nil {
		log.Printf("stats error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	shared, err := h.prompts.CountPublic(r.Context())
	if err != nil {
		log.Printf("stats error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	saved, err := h.users.CountBookmarks(r.Context(), userID)
	if err != nil {
		log.Printf("stats error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.DashboardStats{
		TotalPrompts:  total,
		SharedPrompts: shared,
		SavedPrompts:  saved,
	})
}

// decodeDataURI splits a data:image/...;base64,... URI into content type
// and raw bytes.
func decodeDataURI(uri string) (string, []byte, error) {
	meta, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return "", nil, errors.New("malformed data uri")
	}
	contentType := strings.TrimPrefix(meta, "data:")
	contentType = strings.TrimSuffix(contentType, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return contentType, data, nil
}
