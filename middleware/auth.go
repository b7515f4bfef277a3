// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// İki bağımsız kimlik kapısı vardır:
//   - AuthMiddleware: insan çağıranlar — JWT bearer token doğrular,
//     kullanıcıyı context'e koyar. Badge okuyan client'lar buradan geçer.
//   - IngestMiddleware: upstream chat backend — shared token doğrular.
//     Context'e kullanıcı konmaz; ingest endpoint'leri kullanıcı adına
//     değil sistem adına çalışır.
//
// Middleware zincir şeklinde çalışır: Auth → PlatformAdmin → Handler.
// Her middleware kendi kontrolünü yapar, geçerse next'i çağırır,
// geçmezse request burada durur.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/akinalp/rozet/handlers"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/repository"
	"github.com/akinalp/rozet/services"
)

// AuthMiddleware, JWT token doğrulama middleware'ı.
type AuthMiddleware struct {
	authService services.AuthService
	userRepo    repository.UserRepository
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(authService services.AuthService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		userRepo:    userRepo,
	}
}

// Require, JWT token zorunlu kılan middleware.
// Token yoksa veya geçersizse → 401 Unauthorized.
//
// HTTP header formatı: Authorization: Bearer <token>
//
// Akış:
// 1. "Authorization" header'ından raw token string'i çıkar
// 2. AuthService.ValidateAccessToken() ile imzayı doğrula
// 3. Kullanıcıyı DB'den getir — token geçerli ama hesap silinmiş olabilir
// 4. Kullanıcıyı context'e ekle, next handler'ı çağır
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := m.authService.ValidateAccessToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		user, err := m.userRepo.GetByID(r.Context(), claims.UserID)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found")
			return
		}

		// Password hash'i temizle — context'te taşınmamalı
		user.PasswordHash = ""

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
