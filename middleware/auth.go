package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/gin-gonic/gin"
)

const (
	contextUserID    = "user_id"
	contextPrincipal = "principal"
)

// bearerToken reads "Authorization: Bearer <token>". Browsers cannot set
// headers on a websocket upgrade, so the access_token query parameter is
// accepted there.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}

	if c.IsWebsocket() {
		return c.Query("access_token")
	}
	return ""
}

// AuthMiddleware resolves the bearer token into a principal. Requests that
// fail here never reach a handler.
func AuthMiddleware(provider services.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		principal, err := provider.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			utils.SafeError("[Auth] token verification failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(contextUserID, principal.UserID)
		c.Set(contextPrincipal, *principal)
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(contextUserID)
}

func GetPrincipal(c *gin.Context) models.Principal {
	value, ok := c.Get(contextPrincipal)
	if !ok {
		return models.Principal{}
	}
	principal, _ := value.(models.Principal)
	return principal
}
