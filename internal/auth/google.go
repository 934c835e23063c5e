package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/ayush/promptopia/backend/internal/models"
	"github.com/ayush/promptopia/backend/internal/store"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// GoogleProfile is the subset of the provider userinfo the resolver needs.
type GoogleProfile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// StateStore issues and consumes single-use OAuth state nonces.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) (bool, error)
}

// GoogleHandler implements the federated login redirect and callback.
type GoogleHandler struct {
	oauth   *oauth2.Config
	states  StateStore
	users   UserStore
	tokens  TokenStrategy
	baseURL string
	secure  bool
}

func NewGoogleHandler(clientID, clientSecret, redirectURL, baseURL string, states StateStore, users UserStore, tokens TokenStrategy, secure bool) *GoogleHandler {
	return &GoogleHandler{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleEndpoint,
		},
		states:  states,
		users:   users,
		tokens:  tokens,
		baseURL: baseURL,
		secure:  secure,
	}
}

// Login starts the handshake by redirecting to the provider consent page.
func (h *GoogleHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue(r.Context())
	if err != nil {
		log.Printf("oauth state issue error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback completes the handshake: verify state, exchange the code, fetch
// the provider profile, reconcile it with the user store, and issue a
// session. Any failure denies the login and bounces back to the login
// page; the cause is only logged.
func (h *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ok, err := h.states.Consume(r.Context(), r.URL.Query().Get("state"))
	if err != nil || !ok {
		log.Printf("oauth state rejected: %v", err)
		h.deny(w, r)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Printf("oauth exchange error: %v", err)
		h.deny(w, r)
		return
	}

	profile, err := h.fetchProfile(r.Context(), token)
	if err != nil {
		log.Printf("oauth userinfo error: %v", err)
		h.deny(w, r)
		return
	}

	user, err := ResolveFederated(r.Context(), h.users, profile)
	if err != nil {
		log.Printf("google sign-in error: %v", err)
		h.deny(w, r)
		return
	}

	session, err := h.tokens.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		log.Printf("token issue error: %v", err)
		h.deny(w, r)
		return
	}
	SetSessionCookie(w, session, h.secure)
	http.Redirect(w, r, h.baseURL+"/dashboard", http.StatusTemporaryRedirect)
}

func (h *GoogleHandler) deny(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.baseURL+"/login?error=OAuthSignin", http.StatusTemporaryRedirect)
}

func (h *GoogleHandler) fetchProfile(ctx context.Context, token *oauth2.Token) (GoogleProfile, error) {
	resp, err := h.oauth.Client(ctx, token).Get(googleUserinfoURL)
	if err != nil {
		return GoogleProfile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return GoogleProfile{}, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, body)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return GoogleProfile{}, err
	}
	if profile.Email == "" {
		return GoogleProfile{}, fmt.Errorf("userinfo missing email")
	}
	return profile, nil
}

// ResolveFederated maps a provider profile onto a user record. An existing
// record wins over provider metadata; a first sight creates the record with
// derived fields and no password. Resolving the same profile twice never
// creates a second record for the email.
func ResolveFederated(ctx context.Context, users UserStore, profile GoogleProfile) (*models.User, error) {
	user, err := users.GetUserByEmail(ctx, profile.Email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	name := profile.Name
	if name == "" {
		name, _, _ = strings.Cut(profile.Email, "@")
	}

	// Username is optional; a derived name that fails the format rules
	// (short display names mostly) is dropped rather than stored.
	username := DeriveUsername(profile.Name)
	if !ValidUsername(username) {
		username = ""
	}

	user, err = users.CreateUser(ctx, &models.User{
		Email:    profile.Email,
		Name:     name,
		Username: username,
		Image:    profile.Picture,
	})
	if err == store.ErrDuplicateEmail {
		// Lost a creation race with a concurrent first login; the
		// existing record wins.
		return users.GetUserByEmail(ctx, profile.Email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
