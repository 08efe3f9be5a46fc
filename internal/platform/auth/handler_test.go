package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginRouter(t *testing.T) *gin.Engine {
	t.Helper()
	svc, _ := serviceWithAccount(t, RoleStudent, false)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, svc)
	return r
}

func sessionCookie(res *http.Response) *http.Cookie {
	for _, ck := range res.Cookies() {
		if ck.Name == SessionCookie {
			return ck
		}
	}
	return nil
}

func TestLoginHandlerSetsSessionCookie(t *testing.T) {
	r := loginRouter(t)

	w := httptest.NewRecorder()
	body := `{"email":"kenji@dojo.example","password":"correct horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)
	assert.Contains(t, w.Body.String(), `"role":"student"`)

	ck := sessionCookie(w.Result())
	require.NotNil(t, ck)
	assert.NotEmpty(t, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.Greater(t, ck.MaxAge, 0)
}

// Wrong password and unknown email produce the same response body.
func TestLoginHandlerGenericFailure(t *testing.T) {
	r := loginRouter(t)

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	wrongPass := post(`{"email":"kenji@dojo.example","password":"nope"}`)
	noAccount := post(`{"email":"ghost@dojo.example","password":"correct horse"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, noAccount.Code)
	assert.Equal(t, wrongPass.Body.String(), noAccount.Body.String())
}

func TestLogoutClearsCookie(t *testing.T) {
	r := loginRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "whatever"})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	ck := sessionCookie(w.Result())
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
	assert.Less(t, ck.MaxAge, 0)
}
