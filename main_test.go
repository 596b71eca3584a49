package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/blogem/people-directory/config"
	"github.com/blogem/people-directory/controllers"
	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/logger"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/repositories"
	"github.com/blogem/people-directory/services"
)

type APITestSuite struct {
	suite.Suite
	server *httptest.Server
	srvs   *services.Services
	uiDir  string
}

func (s *APITestSuite) SetupTest() {
	dir := s.T().TempDir()
	dbPath := filepath.Join(dir, "app.db")
	db, err := database.Connect(database.DriverCGO, dbPath)
	s.Require().NoError(err)
	s.T().Cleanup(func() { db.Close() })

	s.uiDir = filepath.Join(dir, "ui")
	s.Require().NoError(os.MkdirAll(s.uiDir, 0o755))
	s.Require().NoError(os.WriteFile(filepath.Join(s.uiDir, "index.html"), []byte("<html>directory</html>"), 0o644))

	log := logger.Discard()
	s.srvs = services.NewServices(repositories.NewRepositories(db), log)
	_, err = s.srvs.Users.EnsureDefaultAdmin(s.T().Context(), "admin-pw")
	s.Require().NoError(err)
	_, err = s.srvs.Users.Save(s.T().Context(), &models.UserForm{Username: "ed", Password: "ed-pw", Role: models.RoleEditor})
	s.Require().NoError(err)
	_, err = s.srvs.Users.Save(s.T().Context(), &models.UserForm{Username: "vi", Password: "vi-pw", Role: models.RoleViewer})
	s.Require().NoError(err)

	cfg := config.Config{
		Env:             "test",
		SessionLifetime: time.Hour,
		UIDir:           s.uiDir,
		DebugToken:      "dbg",
	}
	ctrl := controllers.NewControllers(s.srvs, nil, db, dbPath, log)
	r, err := setupRouter(cfg, ctrl, s.srvs, log)
	s.Require().NoError(err)

	s.server = httptest.NewServer(r)
	s.T().Cleanup(s.server.Close)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

// client returns an HTTP client with its own cookie jar, signed in when username is set
func (s *APITestSuite) client(username, password string) *http.Client {
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	c := &http.Client{Jar: jar}
	if username != "" {
		resp := s.do(c, http.MethodPost, "/api/login", map[string]string{"username": username, "password": password})
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	return c
}

func (s *APITestSuite) do(c *http.Client, method, path string, body any) *http.Response {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.server.URL+path, rdr)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	s.Require().NoError(err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *APITestSuite) TestHealth() {
	resp := s.do(http.DefaultClient, http.MethodGet, "/api/health", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("X-Request-Id"))
	s.Equal(map[string]bool{"ok": true}, decode[map[string]bool](s.T(), resp))
}

func (s *APITestSuite) TestAnonymousReadsButCannotWrite() {
	anon := s.client("", "")

	resp := s.do(anon, http.MethodGet, "/api/me", nil)
	me := decode[map[string]string](s.T(), resp)
	s.Equal("viewer", me["role"])
	s.Equal("", me["user"])

	resp = s.do(anon, http.MethodGet, "/api/row/7", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(map[string]any{"rowNumber": float64(7)}, decode[map[string]any](s.T(), resp))

	resp = s.do(anon, http.MethodPost, "/api/row", map[string]any{"Name": "x"})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	errBody := decode[map[string]string](s.T(), resp)
	s.Equal("unauthorized", errBody["code"])

	viewer := s.client("vi", "vi-pw")
	resp = s.do(viewer, http.MethodPost, "/api/row", map[string]any{"Name": "x"})
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestLoginFailures() {
	anon := s.client("", "")

	resp := s.do(anon, http.MethodPost, "/api/login", map[string]string{"username": "ed"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(anon, http.MethodPost, "/api/login", map[string]string{"username": "ed", "password": "nope"})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestEditorWorkflow() {
	ed := s.client("ed", "ed-pw")

	resp := s.do(ed, http.MethodPost, "/api/row", map[string]any{"Name": "Alice"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	created := decode[map[string]any](s.T(), resp)
	s.Equal(float64(1), created["rowNumber"])

	resp = s.do(ed, http.MethodPost, "/api/row/1", map[string]any{"Called": true, "PP": "5"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	updated := decode[map[string]any](s.T(), resp)
	s.Equal("1", updated["Called"])
	s.NotContains(updated, "PP")

	resp = s.do(ed, http.MethodPost, "/api/row/1", map[string]any{"rowNumber": 3})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("no_fields", decode[map[string]string](s.T(), resp)["code"])

	resp = s.do(ed, http.MethodPost, "/api/row/1/comment", map[string]string{"comment": " "})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(ed, http.MethodPost, "/api/row/1/comment", map[string]string{"comment": "called back"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	commented := decode[map[string]any](s.T(), resp)
	s.Contains(commented["Comments"], "ed: called back")

	resp = s.do(ed, http.MethodGet, "/api/search?q=ali&limit=5", nil)
	page := decode[struct {
		Total int              `json:"total"`
		Items []map[string]any `json:"items"`
	}](s.T(), resp)
	s.Equal(1, page.Total)

	resp = s.do(ed, http.MethodPost, "/api/row", map[string]any{"Name": "Alina"})
	resp.Body.Close()
	for query, want := range map[string]int{"limit=0": 1, "limit=-3": 1, "limit=abc": 2, "": 2} {
		resp = s.do(ed, http.MethodGet, "/api/search?q=ali&"+query, nil)
		page := decode[struct {
			Items []map[string]any `json:"items"`
		}](s.T(), resp)
		s.Len(page.Items, want, query)
	}

	resp = s.do(ed, http.MethodGet, "/api/columns", nil)
	cols := decode[map[string][]string](s.T(), resp)
	s.Contains(cols["columns"], "Called")
	s.Contains(cols["columns"], "Comments")

	resp = s.do(ed, http.MethodGet, "/api/reports?session=current", nil)
	report := decode[map[string]any](s.T(), resp)
	s.Equal(float64(1), report["total"])

	resp = s.do(ed, http.MethodGet, "/api/admin/users", nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(ed, http.MethodPost, "/api/logout", nil)
	resp.Body.Close()
	resp = s.do(ed, http.MethodPost, "/api/row", map[string]any{"Name": "Bob"})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestAdminRevert() {
	admin := s.client("admin", "admin-pw")

	resp := s.do(admin, http.MethodPost, "/api/row", map[string]any{"Name": "Alice"})
	resp.Body.Close()
	resp = s.do(admin, http.MethodPost, "/api/row/1", map[string]any{"Called": "yes", "PP": "7"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("7", decode[map[string]any](s.T(), resp)["PP"])

	now := time.Now().UTC()
	body := map[string]string{
		"from": now.Add(-time.Hour).Format(time.RFC3339),
		"to":   now.Add(time.Hour).Format(time.RFC3339),
	}
	resp = s.do(admin, http.MethodPost, "/api/admin/revert", body)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(map[string]int{"reverted": 1}, decode[map[string]int](s.T(), resp))

	resp = s.do(admin, http.MethodGet, "/api/row/1", nil)
	row := decode[map[string]any](s.T(), resp)
	s.Nil(row["Called"])
	s.Nil(row["PP"])

	resp = s.do(admin, http.MethodPost, "/api/admin/revert", map[string]string{"from": "2024-02-01", "to": "2024-01-01"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(admin, http.MethodPost, "/api/admin/revert", map[string]string{"from": "2024-02-01"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestAdminUsersAndLocalities() {
	admin := s.client("admin", "admin-pw")

	resp := s.do(admin, http.MethodPost, "/api/admin/user", map[string]string{"username": "newbie", "role": "editor"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(admin, http.MethodPost, "/api/admin/user", map[string]string{"username": "vi", "oldUsername": "ed", "role": "editor"})
	s.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(admin, http.MethodDelete, "/api/admin/user/admin", nil)
	s.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(admin, http.MethodDelete, "/api/admin/user/nobody", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(admin, http.MethodGet, "/api/admin/users", nil)
	users := decode[map[string][]map[string]string](s.T(), resp)
	s.Len(users["users"], 3)
	for _, u := range users["users"] {
		s.NotContains(u, "PasswordHash")
	}

	resp = s.do(admin, http.MethodPost, "/api/admin/locality", map[string]any{"name": "Port Town", "pp": 12.0, "uc": "34.5"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	loc := decode[models.Locality](s.T(), resp)
	s.Equal("12", loc.PP)
	s.Equal("34", loc.UC)

	resp = s.do(http.DefaultClient, http.MethodGet, "/api/localities?q=port", nil)
	items := decode[map[string][]models.Locality](s.T(), resp)
	s.Len(items["items"], 1)

	resp = s.do(admin, http.MethodDelete, "/api/admin/locality/Port%20Town", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(float64(1), decode[map[string]any](s.T(), resp)["deleted"])
}

func (s *APITestSuite) TestAdminImport() {
	admin := s.client("admin", "admin-pw")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "lawyers.csv")
	s.Require().NoError(err)
	_, err = part.Write([]byte("LawyerName,PP,UC,LocalityName\nAnn,1,2,North\nBen,3,4,South\nCid,1,2,North\n"))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/admin/import", &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := admin.Do(req)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	result := decode[map[string]any](s.T(), resp)
	s.Equal(true, result["ok"])
	s.Equal(float64(3), result["count"])

	resp = s.do(admin, http.MethodPost, "/api/admin/import", nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestDebugAndUI() {
	resp := s.do(http.DefaultClient, http.MethodGet, "/api/_debug/tables", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	tables := decode[map[string][]database.TableStat](s.T(), resp)
	s.NotEmpty(tables["tables"])

	resp = s.do(http.DefaultClient, http.MethodGet, "/reports/anything", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Require().NoError(err)
	s.True(strings.Contains(string(b), "directory"))

	resp = s.do(http.DefaultClient, http.MethodGet, "/api/nope", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDebugGuardInProduction(t *testing.T) {
	db, err := database.Connect(database.DriverCGO, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	log := logger.Discard()
	srvs := services.NewServices(repositories.NewRepositories(db), log)
	cfg := config.Config{Env: "production", SessionLifetime: time.Hour, DebugToken: "dbg"}
	r, err := setupRouter(cfg, controllers.NewControllers(srvs, nil, db, "", log), srvs, log)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/_debug/db", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/_debug/db", nil)
	req.Header.Set("X-Debug-Token", "dbg")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
