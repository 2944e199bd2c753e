package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hlyanhtet/buildbooks_backend/utils"
)

type authString string

// AuthMiddleware validates the bearer token and loads the caller's
// identity (company, user, role) into the request context. Requests
// without an Authorization header pass through untouched; route handlers
// that need identity fail on the missing context values.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := context.WithValue(c.Request.Context(), authString("auth"), customClaim)
		ctx = utils.SetTokenInContext(ctx, auth)
		ctx = utils.SetCompanyIdInContext(ctx, customClaim.CompanyId)
		ctx = utils.SetUserIdInContext(ctx, customClaim.ID)
		ctx = utils.SetUsernameInContext(ctx, customClaim.Username)
		ctx = utils.SetUserNameInContext(ctx, customClaim.Username)
		ctx = utils.SetUserRoleInContext(ctx, customClaim.Role)
		// keep a correlation id assigned earlier in the chain
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); !ok || cid == "" {
			ctx = utils.SetCorrelationIdInContext(ctx, uuid.NewString())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}
