package middleware

import (
	"collab-canvas/internal/auth"
	"collab-canvas/internal/errors"
	"strings"

	"github.com/gin-gonic/gin"
)

const IdentityKey = "identity"

type Auth struct {
	InternalSecret string
}

// AuthMiddleWare resolves the editor identity from a bearer token. The
// websocket gateway can't set headers, so a token query param is
// accepted as a fallback.
func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		var token string
		tokenQuery := ctx.Query("token")

		if authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else if tokenQuery != "" {
			token = tokenQuery
		} else {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		parsedToken, err := auth.VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		identity, err := auth.IdentityFromToken(parsedToken)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		ctx.Set(IdentityKey, identity)
		ctx.Next()
	}
}

func (m *Auth) InternalAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := strings.TrimPrefix(
			ctx.GetHeader("Authorization"),
			"Bearer ",
		)

		if token != m.InternalSecret {
			ctx.Error(errors.Unauthorized("Unauthorized internal call!", nil))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

// CurrentIdentity reads the identity the auth middleware stored on the
// context. The zero Identity means the route skipped authentication.
func CurrentIdentity(ctx *gin.Context) auth.Identity {
	value, exists := ctx.Get(IdentityKey)
	if !exists {
		return auth.Identity{}
	}
	identity, ok := value.(auth.Identity)
	if !ok {
		return auth.Identity{}
	}
	return identity
}
