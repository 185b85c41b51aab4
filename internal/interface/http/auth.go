package http

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminTokenHeader carries the admin token on mutating requests.
const AdminTokenHeader = "X-Admin-Token"

// HashAdminToken produces the bcrypt hash stored in configuration.
// Used by the CLI so operators never keep the plaintext token in a file.
func HashAdminToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// adminAuthMiddleware guards mutating endpoints. When no admin token hash is
// configured the middleware is a no-op; otherwise the request must present
// the token in X-Admin-Token or as a bearer token.
func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminTokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get(AdminTokenHeader)
		if token == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminTokenHash), []byte(token)); err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "admin token rejected")
			return
		}

		next.ServeHTTP(w, r)
	})
}
