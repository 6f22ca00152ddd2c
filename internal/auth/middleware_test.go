package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(m *JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(m), func(c *gin.Context) {
		a := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"user_id": a.UserID, "role": a.Role})
	})
	r.GET("/managers", AuthRequired(m), RequireRole(RoleManager, RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	r := newTestEngine(m)

	token, err := m.GenerateAccessToken("user-1", RolePlayer)
	require.NoError(t, err)

	w := do(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-1","role":"player"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	other := NewJWTManager("other-secret", time.Minute)
	foreign, err := other.GenerateAccessToken("user-1", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", foreign).Code)
}

func TestRequireRole(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	r := newTestEngine(m)

	player, _ := m.GenerateAccessToken("p", RolePlayer)
	manager, _ := m.GenerateAccessToken("m", RoleManager)
	admin, _ := m.GenerateAccessToken("a", RoleAdmin)

	assert.Equal(t, http.StatusForbidden, do(r, "/managers", player).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/managers", manager).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/managers", admin).Code)
}

func TestParseRejectsUnknownRole(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	token, err := m.GenerateAccessToken("u", Role("superuser"))
	require.NoError(t, err)

	_, err = m.ParseAndValidate(token)
	assert.Error(t, err)
}
