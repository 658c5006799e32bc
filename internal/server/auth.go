package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	internalauth "inkpost/internal/auth"
)

// publicPath reports routes served without a token.
func publicPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/uploads/")
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiTokenHash == "" || publicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := internalauth.BearerToken(r.Header.Get("Authorization"))
		if !ok || !s.verifyToken(token) {
			err := makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, fmt.Errorf("unauthorized"))
			s.writeErrorReq(w, r, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// verifyToken checks token against the configured bcrypt hash and remembers
// tokens that already passed.
func (s *Server) verifyToken(token string) bool {
	sum := sha256.Sum256([]byte(token))
	digest := hex.EncodeToString(sum[:])
	if _, ok := s.verified.Load(digest); ok {
		return true
	}
	if !internalauth.VerifyToken(s.apiTokenHash, token) {
		return false
	}
	s.verified.Store(digest, struct{}{})
	return true
}
