// Package models — Ingest event'leri için request struct'ları.
//
// Chat backend (source of truth) bu servise iki tür event besler:
// post event'leri (kanala mesaj düştü) ve roles event'leri (üyelik
// rolleri değişti). Aynı struct'lar hem HTTP ingest endpoint'lerinde
// hem Kafka consumer'da kullanılır — tek validation, iki transport.
package models

import "fmt"

// PostEventRequest, kanala düşen bir post'un bildirimi.
//
// MentionUserIDs: post'un doğrudan mention ettiği kullanıcılar.
// MentionAll: @everyone tarzı mention — kanalın tüm üyeleri için
// mention sayılır.
//
// AuthorID fan-out'ta HARİÇ tutulur: kullanıcının kendi mesajı
// kendisine okunmamış görünmez.
type PostEventRequest struct {
	ChannelID      string   `json:"channel_id"`
	AuthorID       string   `json:"author_id"`
	PostedAt       int64    `json:"posted_at"` // epoch ms
	MentionUserIDs []string `json:"mention_user_ids"`
	MentionAll     bool     `json:"mention_all"`
}

// Validate, PostEventRequest geçerlilik kontrolü.
func (r *PostEventRequest) Validate() error {
	if r.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if r.AuthorID == "" {
		return fmt.Errorf("author_id is required")
	}
	if r.PostedAt <= 0 {
		return fmt.Errorf("posted_at must be a positive epoch ms timestamp")
	}
	for _, id := range r.MentionUserIDs {
		if id == "" {
			return fmt.Errorf("mention_user_ids cannot contain empty ids")
		}
	}
	return nil
}

// IsMentionFor, post'un verilen kullanıcı için mention sayılıp
// sayılmadığını hesaplar.
func (r *PostEventRequest) IsMentionFor(userID string) bool {
	if r.MentionAll {
		return true
	}
	for _, id := range r.MentionUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RolesEventRequest, chat backend'den gelen rol reconcile bildirimi.
// Membership payload'ındaki roles alanı space-delimited taşınır.
type RolesEventRequest struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Roles     string `json:"roles"`
}

// Validate, RolesEventRequest geçerlilik kontrolü.
// Roles parse edilemiyorsa (tanınmayan token) hata döner.
func (r *RolesEventRequest) Validate() error {
	if r.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if _, err := ParseRoles(r.Roles); err != nil {
		return err
	}
	return nil
}
