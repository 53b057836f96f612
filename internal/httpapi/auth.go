package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

type adminClaims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}

func generateToken(secret, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := adminClaims{
		Username: username,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, token string) (*adminClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &adminClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if parsed != nil {
		if claims, ok := parsed.Claims.(*adminClaims); ok && parsed.Valid {
			return claims, nil
		}
	}
	return nil, err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword is used by the admin seeding path in cmd/server.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// requireAdmin guards the admin surface with a bearer token.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := parseToken(a.jwtSecret, parts[1]); err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
