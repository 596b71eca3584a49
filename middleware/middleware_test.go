package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/userctx"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func withActor(actor models.Actor) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/row", nil)
	return req.WithContext(userctx.SetActor(req.Context(), actor))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name  string
		need  models.Role
		actor models.Actor
		want  int
	}{
		{"anonymous may view", models.RoleViewer, models.Anonymous, http.StatusOK},
		{"anonymous may not edit", models.RoleEditor, models.Anonymous, http.StatusUnauthorized},
		{"viewer may not edit", models.RoleEditor, models.Actor{Username: "vi", Role: models.RoleViewer}, http.StatusForbidden},
		{"editor may edit", models.RoleEditor, models.Actor{Username: "ed", Role: models.RoleEditor}, http.StatusOK},
		{"editor is not admin", models.RoleAdmin, models.Actor{Username: "ed", Role: models.RoleEditor}, http.StatusForbidden},
		{"admin may edit", models.RoleEditor, models.Actor{Username: "root", Role: models.RoleAdmin}, http.StatusOK},
		{"unknown role is rejected", models.RoleViewer, models.Actor{Username: "x", Role: "owner"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(RequireRole(tt.need)(okHandler), withActor(tt.actor))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = userctx.GetRequestID(r.Context())
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, seen)

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	rec = serve(h, req)
	assert.Equal(t, inbound, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\r\n")
	rec = serve(h, req)
	assert.NotEqual(t, "not a uuid\r\n", rec.Header().Get(RequestIDHeader))
}

func TestDebugGuard(t *testing.T) {
	req := func(token string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/_debug/db", nil)
		if token != "" {
			r.Header.Set("X-Debug-Token", token)
		}
		return r
	}

	assert.Equal(t, http.StatusOK, serve(DebugGuard(false, "")(okHandler), req("")).Code)
	assert.Equal(t, http.StatusForbidden, serve(DebugGuard(true, "secret")(okHandler), req("")).Code)
	assert.Equal(t, http.StatusForbidden, serve(DebugGuard(true, "secret")(okHandler), req("wrong")).Code)
	assert.Equal(t, http.StatusOK, serve(DebugGuard(true, "secret")(okHandler), req("secret")).Code)
	assert.Equal(t, http.StatusForbidden, serve(DebugGuard(true, "")(okHandler), req("")).Code)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2)(okHandler)
	req := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/search", nil)
		r.RemoteAddr = ip + ":1234"
		return r
	}

	assert.Equal(t, http.StatusOK, serve(h, req("10.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, req("10.0.0.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, req("10.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, req("10.0.0.2")).Code)

	unlimited := RateLimit(0)(okHandler)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(unlimited, req("10.0.0.1")).Code)
	}
}
