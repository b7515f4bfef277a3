// Package middleware — PlatformAdminMiddleware, platform admin yetkisi kontrolü.
//
// AuthMiddleware'den SONRA çalışır — context'te user bilgisi mevcuttur.
// Kanal registry yönetimi (create/delete) ve roster gibi servis-geneli
// yüzeyler bu kapının arkasındadır. Kanal İÇİ yetkiler (üye rolleri)
// buradan geçmez — onlar service katmanında capability bitfield'ı ile
// kontrol edilir.
//
// Kullanım:
//
//	authMw.Require(platformAdminMw.Require(http.HandlerFunc(channelHandler.Create)))
package middleware

import (
	"net/http"

	"github.com/akinalp/rozet/handlers"
	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
)

// PlatformAdminMiddleware, platform admin yetkisi zorunlu kılan middleware.
type PlatformAdminMiddleware struct{}

// NewPlatformAdminMiddleware, constructor.
func NewPlatformAdminMiddleware() *PlatformAdminMiddleware {
	return &PlatformAdminMiddleware{}
}

// Require, platform admin yetkisi zorunlu kılan middleware.
// Context'teki User'ın IsPlatformAdmin alanı false ise → 403 Forbidden.
func (m *PlatformAdminMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(handlers.UserContextKey).(*models.User)
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
			return
		}

		if !user.IsPlatformAdmin {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "platform admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
