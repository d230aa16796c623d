package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/pkg/response"
)

// ContextPrincipal is the key for the loaded *models.User in gin context.
const ContextPrincipal = "principal"

// UserSource loads a user by id (implemented by auth.Repository).
type UserSource interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Principal returns a middleware that loads the full user record for the
// authenticated claims. Tenant, team and organization fields are read from the
// database on every request so that reassignment takes effect immediately.
// Must run after JWT.
func Principal(users UserSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		idVal, ok := c.Get(ContextUserID)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		id, _ := idVal.(int64)
		user, err := users.GetByID(c.Request.Context(), id)
		if err != nil {
			response.Internal(c, "failed to load user")
			c.Abort()
			return
		}
		if user == nil || !user.Active() {
			response.Unauthorized(c, "account not available")
			c.Abort()
			return
		}
		c.Set(ContextPrincipal, user)
		c.Next()
	}
}

// PrincipalFrom returns the loaded principal, or nil for anonymous requests.
func PrincipalFrom(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextPrincipal); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
