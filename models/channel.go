package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Channel, badge takibi yapılan bir kanalı temsil eder.
//
// Bu servis kanal İÇERİĞİNİ tutmaz — mesajlar chat backend'de yaşar.
// Kanal kaydı burada iki iş görür:
//  1. Membership kayıtlarının foreign key hedefi (bilinmeyen kanala
//     ingest edilen event'ler reddedilir)
//  2. Fan-out için üye listesinin bağlandığı kimlik
type Channel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Topic     *string   `json:"topic"` // Nullable — açıklamasız kanal olabilir
	CreatedAt time.Time `json:"created_at"`
}

// CreateChannelRequest, yeni kanal oluşturma isteği.
// Kanal kaydını normalde chat backend açar (provisioning),
// bu yüzden endpoint platform admin korumalıdır.
type CreateChannelRequest struct {
	Name  string `json:"name"`
	Topic string `json:"topic"` // Opsiyonel kanal açıklaması
}

// Validate, CreateChannelRequest'in geçerli olup olmadığını kontrol eder.
func (r *CreateChannelRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	nameLen := utf8.RuneCountInString(r.Name)
	if nameLen < 1 || nameLen > 100 {
		return fmt.Errorf("channel name must be between 1 and 100 characters")
	}

	// Kanal adı Unicode harf, rakam, boşluk, tire ve alt çizgi içerebilir.
	for _, ch := range r.Name {
		if !isValidChannelNameChar(ch) {
			return fmt.Errorf("channel name contains invalid characters")
		}
	}

	r.Topic = strings.TrimSpace(r.Topic)
	if utf8.RuneCountInString(r.Topic) > 1024 {
		return fmt.Errorf("channel topic must be at most 1024 characters")
	}

	return nil
}

// isValidChannelNameChar, kanal adında izin verilen karakterleri kontrol eder.
// Unicode harf/rakam, boşluk, tire, alt çizgi kabul edilir.
// unicode.IsLetter: tüm dillerdeki harfleri kapsar (Türkçe ş/ç/ğ/ı/ö/ü dahil).
// unicode.IsDigit: tüm Unicode rakamlarını kapsar.
func isValidChannelNameChar(ch rune) bool {
	return unicode.IsLetter(ch) ||
		unicode.IsDigit(ch) ||
		ch == '-' || ch == '_' || ch == ' '
}
