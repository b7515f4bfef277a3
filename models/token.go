package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, access token'ın payload'ı.
//
// UserID badge kayıtlarının birinci anahtarıdır — her authenticated
// request ve her WS bağlantısı buradan kimliklenir. Server token'ı
// doğruladığında DB'ye gitmeden çağıranın kim olduğunu bilir.
//
// Struct models paketinde tanımlıdır çünkü birden fazla katman
// (services, ws, middleware) kullanır ve her katman models'e bağımlı
// olabilir — circular dependency oluşmaz.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
