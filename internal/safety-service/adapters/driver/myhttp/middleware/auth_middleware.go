package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"carpool-safety/internal/safety-service/adapters/driver/myhttp/handle"

	"github.com/golang-jwt/jwt"
)

type AuthMiddleware struct {
	accessSecret string
}

func NewAuthMiddleware(accessSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		accessSecret: accessSecret,
	}
}

// authenticate validates the bearer token and stamps X-UserId and X-Role on
// the request. Returns false after writing the error response itself.
func (am *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request) bool {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("Empty JWT-Token"))
		return false
	}
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(am.accessSecret), nil
	})
	if err != nil {
		handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("Failed to parse JWT-Token"))
		return false
	}

	if !token.Valid {
		handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("Invalid JWT-Token"))
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("Invalid claims"))
		return false
	}

	userId, ok := claims["user_id"].(string)
	if !ok {
		handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("User not found in token"))
		return false
	}

	role, ok := claims["role"].(string)
	if !ok {
		handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("Role not found in token"))
		return false
	}

	r.Header.Set("X-UserId", userId)
	r.Header.Set("X-Role", role)

	return true
}

// Wrap admits any authenticated user.
func (am *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.authenticate(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WrapDriver admits admins and the driver the route addresses. A driver
// token whose user id differs from the driver_id path value is rejected.
func (am *AuthMiddleware) WrapDriver(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.authenticate(w, r) {
			return
		}

		role := r.Header.Get("X-Role")
		if role != "DRIVER" && role != "ADMIN" {
			handle.JsonError(w, http.StatusForbidden, fmt.Errorf("Only drivers allowed to use this service"))
			return
		}
		if role == "DRIVER" && r.PathValue("driver_id") != r.Header.Get("X-UserId") {
			handle.JsonError(w, http.StatusForbidden, fmt.Errorf("Drivers can only access their own account"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// WrapAdmin admits only admins.
func (am *AuthMiddleware) WrapAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.authenticate(w, r) {
			return
		}

		if r.Header.Get("X-Role") != "ADMIN" {
			handle.JsonError(w, http.StatusForbidden, fmt.Errorf("Only admins allowed to use this service"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
