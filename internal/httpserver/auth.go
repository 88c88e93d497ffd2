package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rentloop/rentcore/pkg/rental"
)

const (
	contextKeyActor = "auth_actor"
	contextKeyRoles = "auth_roles"
	roleAdmin       = "admin"
)

var errMissingBearer = errors.New("missing bearer token")

// actorClaims is the token shape handed over by the auth collaborator. The
// core never authenticates; it only trusts the identity and roles inside a
// token signed with the shared secret.
type actorClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func parseActorToken(secret []byte, header string) (*actorClaims, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" || raw == header {
		return nil, errMissingBearer
	}
	claims := &actorClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// actorMiddleware extracts the acting user from the Authorization header and
// rejects requests without a valid token.
func actorMiddleware(secret []byte) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, err := parseActorToken(secret, ctx.GetHeader("Authorization"))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing or invalid token"))
			return
		}
		actorID, err := rental.NewUserID(claims.Subject)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "token carries no subject"))
			return
		}
		ctx.Set(contextKeyActor, actorID)
		ctx.Set(contextKeyRoles, claims.Roles)
		ctx.Next()
	}
}

// requireAdmin gates the admin surface on the admin role.
func requireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rolesValue, ok := ctx.Get(contextKeyRoles)
		if ok {
			roles, _ := rolesValue.([]string)
			for _, role := range roles {
				if role == roleAdmin {
					ctx.Next()
					return
				}
			}
		}
		ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "admin role required"))
	}
}

func actorFrom(ctx *gin.Context) (rental.UserID, bool) {
	actorValue, ok := ctx.Get(contextKeyActor)
	if !ok {
		return rental.UserID{}, false
	}
	actorID, ok := actorValue.(rental.UserID)
	return actorID, ok
}
