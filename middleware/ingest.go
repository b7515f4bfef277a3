// Package middleware — IngestMiddleware, upstream ingest API koruması.
//
// Ingest endpoint'lerini (POST /api/ingest/*) çağıran bir insan değil,
// chat backend'dir. JWT akışı burada anlamsız olur — bunun yerine iki
// tarafın paylaştığı tek bir secret, X-Ingest-Token header'ı ile taşınır.
//
// Karşılaştırma subtle.ConstantTimeCompare ile yapılır — string ==
// karşılaştırması ilk farklı byte'ta döner ve timing side-channel açar.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/akinalp/rozet/pkg"
)

// IngestMiddleware, shared token zorunlu kılan middleware.
type IngestMiddleware struct {
	token []byte
}

// NewIngestMiddleware, constructor. token config'den gelir (INGEST_TOKEN).
func NewIngestMiddleware(token string) *IngestMiddleware {
	return &IngestMiddleware{token: []byte(token)}
}

// Require, X-Ingest-Token header'ını doğrulayan middleware.
// Header yoksa veya eşleşmiyorsa → 401 Unauthorized.
func (m *IngestMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Ingest-Token")
		if got == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "ingest token required")
			return
		}

		if subtle.ConstantTimeCompare([]byte(got), m.token) != 1 {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid ingest token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
