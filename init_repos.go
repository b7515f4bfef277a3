// Package main — Repository katmanı başlatma.
//
// initRepositories, tüm repository implementasyonlarını oluşturur.
// Her repository aynı SQL bağlantısını alır ve interface döner.
// main.go'daki wire-up'ı modülerleştirmek için bu dosyaya taşındı.
package main

import (
	"database/sql"

	"github.com/akinalp/rozet/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
//
// Ayrı değişkenler yerine tek struct: fonksiyon imzaları temiz kalır,
// yeni repository eklendiğinde sadece struct + initRepositories güncellenir.
type Repositories struct {
	User       repository.UserRepository
	Session    repository.SessionRepository
	ResetToken repository.PasswordResetRepository
	Channel    repository.ChannelRepository
	Membership repository.MembershipRepository
}

// initRepositories, veritabanı bağlantısından tüm repository'leri oluşturur.
//
// Her NewSQLite* fonksiyonu aynı *sql.DB'yi alır — Go'nun sql.DB'si
// thread-safe connection pool'dur, paylaşılması güvenlidir.
func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:       repository.NewSQLiteUserRepo(conn),
		Session:    repository.NewSQLiteSessionRepo(conn),
		ResetToken: repository.NewSQLiteResetTokenRepo(conn),
		Channel:    repository.NewSQLiteChannelRepo(conn),
		Membership: repository.NewSQLiteMembershipRepo(conn),
	}
}
