package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimsContextKey = "auth_claims"

// SessionClaims is the identity the core trusts as given: account id,
// email, and role issued by the auth subsystem.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AccountID returns the subject claim.
func (claims *SessionClaims) AccountID() string {
	return claims.Subject
}

func sessionMiddleware(signingKey []byte, issuer string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := bearerToken(ctx.Request)
		if raw == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthenticated", "missing session token"))
			return
		}
		claims := &SessionClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return signingKey, nil
		}, jwt.WithIssuer(issuer))
		if err != nil || !token.Valid || claims.Subject == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthenticated", "invalid session token"))
			return
		}
		ctx.Set(claimsContextKey, claims)
		ctx.Next()
	}
}

func bearerToken(request *http.Request) string {
	header := request.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func getClaims(ctx *gin.Context) *SessionClaims {
	claimsValue, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*SessionClaims)
	return claims
}
