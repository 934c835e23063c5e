package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/promptopia/backend/internal/models"
	"github.com/ayush/promptopia/backend/internal/store"
)

// fakeUserStore is an in-memory UserStore keyed by email, mirroring the
// unique email index of the real collection.
type fakeUserStore struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	createErr error
	creates   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*models.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return nil, store.ErrDuplicateEmail
	}
	u.ID = primitive.NewObjectID()
	clone := *u
	f.byEmail[u.Email] = &clone
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID.Hex() == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) UpdateImage(ctx context.Context, id, image string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID.Hex() == id {
			u.Image = image
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) CountBookmarks(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID.Hex() == id {
			return int64(len(u.Bookmarks)), nil
		}
	}
	return 0, nil
}

// setName mutates the stored record directly, simulating an out-of-band
// profile edit.
func (f *fakeUserStore) setName(email, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[email].Name = name
}

type fakePromptCounter struct {
	byCreator map[string]int64
	public    int64
}

func (f *fakePromptCounter) CountByCreator(_ context.Context, id string) (int64, error) {
	return f.byCreator[id], nil
}

func (f *fakePromptCounter) CountPublic(_ context.Context) (int64, error) {
	return f.public, nil
}

type fakeAvatarUploader struct {
	lastKey  string
	lastType string
	lastData []byte
	removed  []string
}

func (f *fakeAvatarUploader) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	f.lastKey, f.lastData, f.lastType = key, data, contentType
	return "http://minio.local/" + key, nil
}

func (f *fakeAvatarUploader) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeAvatarUploader) ObjectKey(url string) (string, bool) {
	key := strings.TrimPrefix(url, "http://minio.local/")
	if key == url || key == "" {
		return "", false
	}
	return key, true
}

func newTestHandler(users UserStore) *Handler {
	tokens, _ := NewStrategy(StrategyJWT, "test-secret")
	return NewHandler(users, &fakePromptCounter{}, nil, tokens, false)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), "user_id", userID))
}

func TestSignup_MissingFields(t *testing.T) {
	t.Parallel()

	h := newTestHandler(newFakeUserStore())
	bodies := []models.SignupRequest{
		{Email: "a@x.com", Password: "Secret123!"},              // no name
		{Name: "Ada", Password: "Secret123!"},                   // no email
		{Name: "Ada", Email: "a@x.com"},                         // no password
	}
	for _, body := range bodies {
		w := postJSON(t, h.Signup, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "required")
	}
}

func TestSignup_InvalidUsername(t *testing.T) {
	t.Parallel()

	h := newTestHandler(newFakeUserStore())
	w := postJSON(t, h.Signup, models.SignupRequest{
		Name: "Ada", Email: "a@x.com", Username: "ab", Password: "Secret123!",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username")
}

func TestSignup_Success(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	h := newTestHandler(users)

	w := postJSON(t, h.Signup, models.SignupRequest{
		Name: "Ada Lovelace", Email: "ada@x.com", Username: "Valid_User1", Password: "Secret123!",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		User models.Profile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.User.ID)
	assert.Equal(t, "valid_user1", resp.User.Username)
	assert.Contains(t, resp.User.Image, "ui-avatars.com")
	assert.NotContains(t, w.Body.String(), "password")

	// The stored hash is never the raw password.
	stored, _ := users.GetUserByEmail(context.Background(), "ada@x.com")
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.Password)
	assert.NotEqual(t, "Secret123!", stored.Password)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	h := newTestHandler(users)

	w := postJSON(t, h.Signup, models.SignupRequest{Name: "Ada", Email: "dup@x.com", Password: "Secret123!"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, h.Signup, models.SignupRequest{Name: "Imposter", Email: "dup@x.com", Password: "Other456!"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "error")

	// First record is unmodified.
	stored, _ := users.GetUserByEmail(context.Background(), "dup@x.com")
	require.NotNil(t, stored)
	assert.Equal(t, "Ada", stored.Name)
}

func TestSignin_RoundTrip(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	h := newTestHandler(users)

	w := postJSON(t, h.Signup, models.SignupRequest{Name: "Ada", Email: "a@x.com", Password: "Secret123!"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, h.Signin, models.SigninRequest{Email: "a@x.com", Password: "Secret123!"})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestSignin_UniformFailureMessage(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	h := newTestHandler(users)

	w := postJSON(t, h.Signup, models.SignupRequest{Name: "Ada", Email: "a@x.com", Password: "Secret123!"})
	require.Equal(t, http.StatusCreated, w.Code)

	// A federated-only account has no password hash.
	_, err := users.CreateUser(context.Background(), &models.User{Name: "Fed", Email: "fed@x.com"})
	require.NoError(t, err)

	attempts := []models.SigninRequest{
		{Email: "a@x.com", Password: "WrongPass1!"}, // wrong password
		{Email: "ghost@x.com", Password: "Secret123!"}, // unknown email
		{Email: "fed@x.com", Password: "Secret123!"},   // federated-only account
	}
	var bodies []string
	for _, attempt := range attempts {
		w := postJSON(t, h.Signin, attempt)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		bodies = append(bodies, strings.TrimSpace(w.Body.String()))
	}
	// No account enumeration: every failure reads the same.
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, bodies[1], bodies[2])
	assert.Contains(t, bodies[0], "Invalid credentials")
}

func TestMe_RefreshesProfileFields(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	h := newTestHandler(users)

	u, err := users.CreateUser(context.Background(), &models.User{Name: "Before", Email: "a@x.com"})
	require.NoError(t, err)

	fetch := func() models.Profile {
		req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), u.ID.Hex())
		w := httptest.NewRecorder()
		h.Me(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			User models.Profile `json:"user"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.User
	}

	first := fetch()
	users.setName("a@x.com", "After")
	second := fetch()

	// Same identity both times, latest display fields win.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Before", first.Name)
	assert.Equal(t, "After", second.Name)
}

func TestMe_UnknownUser(t *testing.T) {
	t.Parallel()

	h := newTestHandler(newFakeUserStore())
	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), primitive.NewObjectID().Hex())
	w := httptest.NewRecorder()
	h.Me(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfileImage(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	h := newTestHandler(users)
	u, err := users.CreateUser(context.Background(), &models.User{Name: "Ada", Email: "a@x.com"})
	require.NoError(t, err)

	post := func(h *Handler, image string) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(models.ImageUpdateRequest{Image: image})
		req := asUser(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw)), u.ID.Hex())
		w := httptest.NewRecorder()
		h.UpdateProfileImage(w, req)
		return w
	}

	w := post(h, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(h, "not-an-image")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(h, "https://cdn.example.com/ada.png")
	require.Equal(t, http.StatusOK, w.Code)
	stored, _ := users.GetUserByID(context.Background(), u.ID.Hex())
	assert.Equal(t, "https://cdn.example.com/ada.png", stored.Image)

	// Without object storage configured, data URIs are stored verbatim.
	dataURI := "data:image/png;base64,aGVsbG8="
	w = post(h, dataURI)
	require.Equal(t, http.StatusOK, w.Code)
	stored, _ = users.GetUserByID(context.Background(), u.ID.Hex())
	assert.Equal(t, dataURI, stored.Image)

	// With object storage, the decoded bytes are uploaded and the stored
	// value becomes the object URL.
	uploader := &fakeAvatarUploader{}
	tokens, _ := NewStrategy(StrategyJWT, "test-secret")
	withMinio := NewHandler(users, &fakePromptCounter{}, uploader, tokens, false)
	w = post(withMinio, dataURI)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("hello"), uploader.lastData)
	assert.Equal(t, "image/png", uploader.lastType)
	stored, _ = users.GetUserByID(context.Background(), u.ID.Hex())
	assert.True(t, strings.HasPrefix(stored.Image, "http://minio.local/avatars/"), stored.Image)
}

func TestUpdateProfileImage_RemovesReplacedObject(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	u, err := users.CreateUser(context.Background(), &models.User{
		Name: "Ada", Email: "a@x.com",
		Image: "https://cdn.example.com/ada.png",
	})
	require.NoError(t, err)

	uploader := &fakeAvatarUploader{}
	tokens, _ := NewStrategy(StrategyJWT, "test-secret")
	h := NewHandler(users, &fakePromptCounter{}, uploader, tokens, false)

	post := func(image string) {
		raw, _ := json.Marshal(models.ImageUpdateRequest{Image: image})
		req := asUser(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw)), u.ID.Hex())
		w := httptest.NewRecorder()
		h.UpdateProfileImage(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	// First upload replaces an external URL; nothing to remove.
	post("data:image/png;base64,aGVsbG8=")
	firstKey := uploader.lastKey
	assert.Empty(t, uploader.removed)

	// Second upload removes the now-orphaned first object.
	post("data:image/png;base64,d29ybGQ=")
	assert.Equal(t, []string{firstKey}, uploader.removed)
	assert.NotEqual(t, firstKey, uploader.lastKey)

	// Switching to an external URL removes the stored object too.
	secondKey := uploader.lastKey
	post("https://cdn.example.com/new.png")
	assert.Equal(t, []string{firstKey, secondKey}, uploader.removed)
}

func TestUpdateProfileImage_UnknownUser(t *testing.T) {
	t.Parallel()

	h := newTestHandler(newFakeUserStore())
	raw, _ := json.Marshal(models.ImageUpdateRequest{Image: "https://cdn.example.com/a.png"})
	req := asUser(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw)), primitive.NewObjectID().Hex())
	w := httptest.NewRecorder()
	h.UpdateProfileImage(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardStats(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	u, err := users.CreateUser(context.Background(), &models.User{
		Name: "Ada", Email: "a@x.com",
		Bookmarks: []string{"3f1c0b2e-0000-0000-0000-000000000001", "3f1c0b2e-0000-0000-0000-000000000002"},
	})
	require.NoError(t, err)

	counter := &fakePromptCounter{byCreator: map[string]int64{u.ID.Hex(): 3}, public: 7}
	tokens, _ := NewStrategy(StrategyJWT, "test-secret")
	h := NewHandler(users, counter, nil, tokens, false)

	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), u.ID.Hex())
	w := httptest.NewRecorder()
	h.DashboardStats(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.DashboardStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, models.DashboardStats{TotalPrompts: 3, SharedPrompts: 7, SavedPrompts: 2}, stats)
}
