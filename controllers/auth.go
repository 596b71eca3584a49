package controllers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"gitea.com/go-chi/session"

	"github.com/blogem/people-directory/authenticator"
	"github.com/blogem/people-directory/httpx"
	"github.com/blogem/people-directory/middleware"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/services"
	"github.com/blogem/people-directory/userctx"
)

// AuthController handles sign-in, sign-out and single sign-on
type AuthController struct {
	services *services.Services
	sso      authenticator.Provider
	logger   *slog.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(services *services.Services, sso authenticator.Provider, logger *slog.Logger) *AuthController {
	return &AuthController{services: services, sso: sso, logger: logger}
}

type meResponse struct {
	User string      `json:"user"`
	Role models.Role `json:"role"`
}

// Login handles POST /api/login
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil || body.Username == "" || body.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "missing credentials", nil)
		return
	}

	user, err := ac.services.Users.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			ac.logger.Warn("failed login", "username", body.Username)
		}
		writeServiceError(w, err)
		return
	}

	startSession(r, user.Username)
	httpx.WriteJSON(w, http.StatusOK, meResponse{User: user.Username, Role: user.Role})
}

// Logout handles POST /api/logout
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := session.GetSession(r); sess != nil {
		sess.Delete(middleware.SessionUsernameKey)
		sess.Delete(middleware.SessionLoginAtKey)
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

// Me handles GET /api/me
func (ac *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	actor := userctx.GetActor(r.Context())
	httpx.WriteJSON(w, http.StatusOK, meResponse{User: actor.Username, Role: actor.Role})
}

// SSOLogin handles GET /auth/sso/login
func (ac *AuthController) SSOLogin(w http.ResponseWriter, r *http.Request) {
	if ac.sso == nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "single sign-on is not configured", nil)
		return
	}

	// Generate random state
	state, err := generateRandomState()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}

	// Save the state in the session to validate in callback
	sess := session.GetSession(r)
	sess.Set(middleware.SessionStateKey, state)

	http.Redirect(w, r, ac.sso.GetAuthURL(state), http.StatusTemporaryRedirect)
}

// SSOCallback handles GET /auth/sso/callback. The login claim must name a
// provisioned account; its stored role applies.
func (ac *AuthController) SSOCallback(w http.ResponseWriter, r *http.Request) {
	if ac.sso == nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "single sign-on is not configured", nil)
		return
	}

	sess := session.GetSession(r)

	// Verify state
	storedState, _ := sess.Get(middleware.SessionStateKey).(string)
	if storedState == "" || r.URL.Query().Get("state") != storedState {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_state", "invalid state parameter", nil)
		return
	}
	sess.Delete(middleware.SessionStateKey)

	// Exchange the code for a token
	token, err := ac.sso.ExchangeCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		ac.logger.Warn("sso code exchange failed", "error", err)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "failed to exchange authorization code", nil)
		return
	}

	claims, err := ac.sso.GetClaims(r.Context(), token)
	if err != nil {
		ac.logger.Warn("sso token verification failed", "error", err)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "failed to verify ID token", nil)
		return
	}

	login := claims.Login()
	user, err := ac.services.Users.Get(r.Context(), login)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			ac.logger.Warn("sso login for unknown user", "login", login)
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "no account for "+login, nil)
			return
		}
		writeServiceError(w, err)
		return
	}

	startSession(r, user.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func startSession(r *http.Request, username string) {
	sess := session.GetSession(r)
	sess.Set(middleware.SessionUsernameKey, username)
	sess.Set(middleware.SessionLoginAtKey, time.Now().Unix())
}

// generateRandomState generates a random state value for CSRF protection
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
