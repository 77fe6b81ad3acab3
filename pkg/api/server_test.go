package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspect-console/aspect/pkg/auth"
	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/config"
	"github.com/aspect-console/aspect/pkg/observability"
	"github.com/aspect-console/aspect/pkg/storage"
)

const (
	testIssuer   = "https://issuer.example.com/"
	testAudience = "https://api.example.com"
	testSecret   = "test-secret"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		Auth: config.AuthConfig{
			IssuerBaseURL:    testIssuer,
			Audience:         testAudience,
			SigningAlgorithm: "HS256",
			HS256Secret:      testSecret,
		},
		Endpoints: config.EndpointConfig{
			Navigation:      "/navigation",
			UserPermissions: "/userpermissions",
			Users:           "/users",
			Roles:           "/roles",
			Permissions:     "/permissions",
			Modules:         "/modules",
			Categories:      "/categories",
			Pages:           "/pages",
			GenericAPI:      "/api",
		},
		CORS: config.CORSConfig{Origin: "http://console.example.com"},
	}
}

func setupServer(t *testing.T) (*Server, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	require.NoError(t, storage.Migrate(context.Background(), db, logger))

	cfg := testConfig()
	verifier, err := auth.NewVerifier(context.Background(), cfg.Auth)
	require.NoError(t, err)

	return NewServer(cfg, db, verifier, logger, nil), db
}

// grantUser registers email with a single role holding the named
// permissions and returns the created user.
func grantUser(t *testing.T, db *sql.DB, email string, permissionNames ...string) *storage.User {
	t.Helper()
	ctx := context.Background()

	permissionStore := storage.NewPermissionStore(db, nil)
	permissions := []storage.Permission{}
	for _, name := range permissionNames {
		p, err := permissionStore.Create(ctx, &storage.Permission{Name: name})
		require.NoError(t, err)
		permissions = append(permissions, *p)
	}

	role, err := storage.NewRoleStore(db, nil).Create(ctx, &storage.Role{
		Name:        "granted-" + email,
		Permissions: permissions,
	})
	require.NoError(t, err)

	user, err := storage.NewUserStore(db, nil).Create(ctx, &storage.User{
		Name:  email,
		Email: email,
		Roles: []storage.Role{*role},
	})
	require.NoError(t, err)
	return user
}

func bearerToken(t *testing.T, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   testAudience,
		"sub":   "auth0|" + email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": email,
	})
	raw, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Authentication(t *testing.T) {
	s, db := setupServer(t)
	router := s.Router()

	t.Run("missing token is 401", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/roles", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unregistered email is 403", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/roles", bearerToken(t, "nobody@example.com"), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "User not registered")
	})

	t.Run("registered but ungranted route is 403", func(t *testing.T) {
		grantUser(t, db, "reader@example.com", "roles:read")
		token := bearerToken(t, "reader@example.com")

		rec := doRequest(t, router, http.MethodGet, "/roles", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, router, http.MethodPost, "/roles", token,
			map[string]string{"name": "x", "permission": "y"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing required permission")
	})

	t.Run("admin blanket satisfies resource gates", func(t *testing.T) {
		grantUser(t, db, "admin@example.com", "admin:read", "admin:write")
		token := bearerToken(t, "admin@example.com")

		rec := doRequest(t, router, http.MethodGet, "/users", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_CORS(t *testing.T) {
	s, db := setupServer(t)
	router := s.Router()

	t.Run("preflight is answered before auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/roles", nil)
		req.Header.Set("Origin", "http://console.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://console.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("mismatched origin gets no allow headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/roles", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("actual responses carry the origin header", func(t *testing.T) {
		grantUser(t, db, "cors@example.com", "roles:read")

		req := httptest.NewRequest(http.MethodGet, "/roles", nil)
		req.Header.Set("Origin", "http://console.example.com")
		req.Header.Set("Authorization", "Bearer "+bearerToken(t, "cors@example.com"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://console.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestServer_RoleCRUD(t *testing.T) {
	s, db := setupServer(t)
	router := s.Router()

	grantUser(t, db, "admin@example.com", "admin:read", "admin:write")
	token := bearerToken(t, "admin@example.com")

	permission, err := storage.NewPermissionStore(db, nil).Create(context.Background(),
		&storage.Permission{Name: "users:read", Permission: "admin:write"})
	require.NoError(t, err)

	t.Run("create then fetch round trip", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/roles", token, map[string]interface{}{
			"name":        "operators",
			"permission":  "admin:write",
			"permissions": []storage.Permission{*permission},
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var created storage.Role
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotZero(t, created.RoleID)
		require.Len(t, created.Permissions, 1)

		rec = doRequest(t, router, http.MethodGet, fmt.Sprintf("/roles/%d", created.RoleID), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var fetched storage.Role
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
		assert.Equal(t, created.RoleID, fetched.RoleID)
		assert.Equal(t, "operators", fetched.Name)
	})

	t.Run("invalid payload is 400 with field errors and no insert", func(t *testing.T) {
		before := doRequest(t, router, http.MethodGet, "/roles", token, nil)
		var rolesBefore []storage.Role
		require.NoError(t, json.Unmarshal(before.Body.Bytes(), &rolesBefore))

		rec := doRequest(t, router, http.MethodPost, "/roles", token,
			map[string]string{"name": "", "permission": ""})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Name is required")
		assert.Contains(t, rec.Body.String(), "Permission is required")

		after := doRequest(t, router, http.MethodGet, "/roles", token, nil)
		var rolesAfter []storage.Role
		require.NoError(t, json.Unmarshal(after.Body.Bytes(), &rolesAfter))
		assert.Len(t, rolesAfter, len(rolesBefore))
	})

	t.Run("deleting a role detaches it from users", func(t *testing.T) {
		holder := grantUser(t, db, "holder@example.com", "holder:read")
		require.Len(t, holder.Roles, 1)
		roleID := holder.Roles[0].RoleID

		rec := doRequest(t, router, http.MethodDelete, fmt.Sprintf("/roles/%d", roleID), token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doRequest(t, router, http.MethodGet, fmt.Sprintf("/users/%d", holder.UserID), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var fetched storage.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
		assert.Empty(t, fetched.Roles)
	})

	t.Run("unknown role is 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/roles/9999", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Role not found")
	})
}

func TestServer_Navigation(t *testing.T) {
	s, db := setupServer(t)
	router := s.Router()
	ctx := context.Background()

	pages := storage.NewPageStore(db, nil)
	visible, err := pages.Create(ctx, &catalog.Page{
		Name: "Roles", Path: "roles", Component: "GenericModelTable", Permission: "roles:read",
	})
	require.NoError(t, err)
	hidden, err := pages.Create(ctx, &catalog.Page{
		Name: "Secrets", Path: "secrets", Component: "GenericModelTable", Permission: "secrets:read",
	})
	require.NoError(t, err)

	category, err := storage.NewCategoryStore(db, nil).Create(ctx, &catalog.Category{
		Name: "Access", Pages: []catalog.Page{*visible, *hidden},
	})
	require.NoError(t, err)

	_, err = storage.NewModuleStore(db, nil).Create(ctx, &catalog.Module{
		Name: "Admin", Categories: []catalog.Category{*category},
	})
	require.NoError(t, err)

	grantUser(t, db, "reader@example.com", "roles:read")
	token := bearerToken(t, "reader@example.com")

	t.Run("navigation is filtered to the caller's permissions", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/navigation", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var modules []catalog.Module
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &modules))
		require.Len(t, modules, 1)
		require.Len(t, modules[0].Categories, 1)
		require.Len(t, modules[0].Categories[0].Pages, 1)
		assert.Equal(t, "Roles", modules[0].Categories[0].Pages[0].Name)
	})

	t.Run("userpermissions returns the snapshot names", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/userpermissions", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var names []string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
		assert.Equal(t, []string{"roles:read"}, names)
	})
}

func TestServer_GenericAPI(t *testing.T) {
	s, db := setupServer(t)
	router := s.Router()

	grantUser(t, db, "admin@example.com", "admin:read", "admin:write")
	token := bearerToken(t, "admin@example.com")

	t.Run("unknown model is 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/Widget", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("record round trip through the model table", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/Permission", token, map[string]string{
			"name":       "widgets:read",
			"permission": "admin:write",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var created map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		require.NotNil(t, created["permissionId"])

		rec = doRequest(t, router, http.MethodGet, "/api/Permission", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var records []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		require.NotEmpty(t, records)
	})

	t.Run("invalid record is 400 without insert", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/Permission", token,
			map[string]string{"name": ""})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Name is required")
	})
}
