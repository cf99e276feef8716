package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubIdentity struct {
	principal *models.Principal
	err       error
	calls     int
}

func (s *stubIdentity) SignUp(context.Context, services.SignUpInput) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubIdentity) SignIn(context.Context, services.SignInInput) (*services.Session, error) {
	return nil, errors.New("not implemented")
}

func (s *stubIdentity) VerifyToken(_ context.Context, token string) (*models.Principal, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if token != "good" {
		return nil, services.ErrInvalidToken
	}
	return s.principal, nil
}

func newAuthRouter(identity services.IdentityProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(identity), func(c *gin.Context) {
		p := GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "name": p.Name})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		err        error
		wantStatus int
		wantCalls  int
	}{
		{"no header", "", nil, http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized, 0},
		{"empty bearer", "Bearer ", nil, http.StatusUnauthorized, 0},
		{"rejected token", "Bearer bad", nil, http.StatusUnauthorized, 1},
		{"provider failure", "Bearer good", errors.New("upstream down"), http.StatusInternalServerError, 1},
		{"valid token", "Bearer good", nil, http.StatusOK, 1},
		{"lowercase scheme", "bearer good", nil, http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := &stubIdentity{
				principal: &models.Principal{UserID: "user-1", Name: "Ana"},
				err:       tt.err,
			}
			router := newAuthRouter(identity)

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalls, identity.calls)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"user_id":"user-1","name":"Ana"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

func TestAuthMiddlewareQueryTokenOnlyForWebsocket(t *testing.T) {
	identity := &stubIdentity{principal: &models.Principal{UserID: "user-1"}}
	router := newAuthRouter(identity)

	req := httptest.NewRequest(http.MethodGet, "/me?access_token=good", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me?access_token=good", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
