package middleware

import (
	"net/http"
	"time"

	"gitea.com/go-chi/session"

	"github.com/blogem/people-directory/httpx"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/services"
	"github.com/blogem/people-directory/userctx"
)

// Session keys
const (
	SessionUsernameKey = "username"
	SessionLoginAtKey  = "login_at"
	SessionStateKey    = "oidc_state"
)

// LoadActor resolves the signed-in user from the session and stores it in
// the request context. The role is read from the users table on every
// request, so role changes apply immediately. Unknown users are signed out.
func LoadActor(users services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.GetSession(r)
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			username, _ := sess.Get(SessionUsernameKey).(string)
			if username == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.Get(r.Context(), username)
			if err != nil {
				sess.Delete(SessionUsernameKey)
				sess.Delete(SessionLoginAtKey)
				next.ServeHTTP(w, r)
				return
			}

			ctx := userctx.SetActor(r.Context(), models.Actor{Username: user.Username, Role: user.Role})
			if loginAt, ok := sess.Get(SessionLoginAtKey).(int64); ok {
				ctx = userctx.SetSessionStart(ctx, time.Unix(loginAt, 0).UTC())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers below role. Anonymous callers count as viewers,
// so a viewer requirement admits everyone; otherwise they get 401.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := userctx.GetActor(r.Context())
			if actor.Role.AtLeast(role) {
				next.ServeHTTP(w, r)
				return
			}
			if actor.Username == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "login required", nil)
				return
			}
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "forbidden", nil)
		})
	}
}
