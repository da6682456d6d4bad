package router

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const operatorTokenHeader = "X-Operator-Token"
const operatorTokenQuery = "token"

// requireOperatorToken guards the operator endpoints with a shared token.
// When expected is empty, the middleware is a no-op.
func requireOperatorToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(operatorTokenHeader))
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get(operatorTokenQuery))
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				http.Error(w, "invalid operator token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
