package models

import "time"

// Session, bir refresh token oturumunu temsil eder.
//
// Access token kısa ömürlüdür (15dk) ve DB'ye hiç dokunmaz; refresh
// token uzun ömürlüdür (7 gün) ve DB'de yaşar. DB'de yaşadığı için:
//   - çalınan bir refresh token iptal edilebilir (revoke)
//   - logout yalnızca ilgili oturumu siler, diğer cihazlar açık kalır
//   - şifre sıfırlamada kullanıcının TÜM oturumları tek seferde düşürülür
//
// Badge servisi uzun süre açık kalan sidebar client'larına hizmet eder —
// refresh akışı bu yüzden çekirdek auth yüzeyinin parçasıdır.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"-"` // API'ye gönderilmez
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
