package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// MiddleWare rejects requests without a valid bearer token and stores the
// verified claims for the handlers behind it.
func MiddleWare(tokens *TokenService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		scheme, tokenString, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenString) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Not authenticated",
			})
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Invalid or expired token",
			})
			return
		}

		ctx.Set(currentUserKey, claims)
		ctx.Next()
	}
}

// CurrentUser returns the claims stored by MiddleWare.
func CurrentUser(ctx *gin.Context) (*Claims, bool) {
	v, ok := ctx.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
