package models

import (
	"fmt"
	"time"
)

// ChannelMembership, bir kullanıcının belirli bir kanaldaki üyelik ve
// okuma durumu kaydıdır — servisin çekirdek modeli.
//
// Counter cache pattern: "okunmamış var mı?" sorusu her seferinde mesaj
// tablosunu saymak yerine iki watermark'tan türetilir. LastPostAt kanala
// düşen son post'un zamanı, LastViewedAt üyenin kanalı son açtığı zaman.
// MentionsCount/MessageCount görülmemiş içeriğin önbelleklenmiş sayaçlarıdır;
// her görüntülemede sıfırlanır.
//
// Zaman alanları epoch milisaniye (int64) tutulur — chat backend'in post
// event'leri de bu çözünürlükte gelir, dönüşüm kaybı olmaz.
//
// Invariant: kanal "unread"dir ancak ve ancak
// LastPostAt > LastViewedAt VEYA ManuallyUnread ise.
// LastViewedAt >= LastPostAt ve ManuallyUnread false iken her iki sayaç
// sıfır olmak ZORUNDADIR — transition method'ları bunu korur.
type ChannelMembership struct {
	UserID         string        `json:"user_id"`
	ChannelID      string        `json:"channel_id"`
	LastPostAt     int64         `json:"last_post_at"`
	LastViewedAt   int64         `json:"last_viewed_at"`
	ManuallyUnread bool          `json:"manually_unread"`
	MentionsCount  int           `json:"mentions_count"`
	MessageCount   int           `json:"message_count"`
	Roles          []ChannelRole `json:"roles"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ApplyView, üyenin kanalı görüntülemesini kayda işler.
//
// LastViewedAt ileri alınır, sayaçlar sıfırlanır, manuel unread bayrağı
// temizlenir. now kayıttaki LastViewedAt'ten ESKİYSE hata döner —
// görüntüleme zamanı geriye gidemez (stale client isteği).
// now == LastViewedAt geçerlidir: aynı görüntülemenin tekrarı (retry)
// aynı state'i üretir, işlem idempotent kalır.
func (m *ChannelMembership) ApplyView(now int64) error {
	if now < m.LastViewedAt {
		return fmt.Errorf("view timestamp %d is before current last view %d", now, m.LastViewedAt)
	}

	m.LastViewedAt = now
	m.MentionsCount = 0
	m.MessageCount = 0
	m.ManuallyUnread = false
	return nil
}

// ApplyPost, kanala düşen yeni bir post'u kayda işler.
//
// LastPostAt = max(LastPostAt, postedAt) — geç gelen (out-of-order) post
// watermark'ı GERİLETMEZ ama sayaçları yine artırır: post sayısı gerçektir,
// sadece sırası bozuktur.
//
// Artıştan sonra invariant onarılır: post üyenin son görüntülemesinden
// önceye aitse (LastViewedAt >= LastPostAt) ve manuel unread yoksa,
// sayaçlar sıfırlanır — üye o içeriği zaten görmüştür.
func (m *ChannelMembership) ApplyPost(postedAt int64, isMention bool) {
	if postedAt > m.LastPostAt {
		m.LastPostAt = postedAt
	}

	m.MessageCount++
	if isMention {
		m.MentionsCount++
	}

	if m.LastViewedAt >= m.LastPostAt && !m.ManuallyUnread {
		m.MentionsCount = 0
		m.MessageCount = 0
	}
}

// MarkUnread, kanalı manuel olarak okunmamış işaretler.
// Sayaçlara DOKUNMAZ — üye "buraya sonra döneceğim" demiştir,
// görmediği mesaj sayısı değişmemiştir.
func (m *ChannelMembership) MarkUnread() {
	m.ManuallyUnread = true
}

// IsUnread, kanalın üye için okunmamış olup olmadığını hesaplar.
func (m *ChannelMembership) IsUnread() bool {
	return m.LastPostAt > m.LastViewedAt || m.ManuallyUnread
}

// Badge, kaydın sidebar badge'i için hesaplanmış halini döner.
// Client IsUnread hesabını kendisi YAPMAZ — hesap tek yerde, burada yaşar.
func (m *ChannelMembership) Badge() ChannelBadge {
	return ChannelBadge{
		ChannelID:      m.ChannelID,
		Unread:         m.IsUnread(),
		MessageCount:   m.MessageCount,
		MentionsCount:  m.MentionsCount,
		LastPostAt:     m.LastPostAt,
		LastViewedAt:   m.LastViewedAt,
		ManuallyUnread: m.ManuallyUnread,
	}
}

// ChannelBadge, bir kanalın badge gösterimi için gereken her şey.
// Client sidebar'da kanal başına bunu render eder.
type ChannelBadge struct {
	ChannelID      string `json:"channel_id"`
	Unread         bool   `json:"unread"`
	MessageCount   int    `json:"message_count"`
	MentionsCount  int    `json:"mentions_count"`
	LastPostAt     int64  `json:"last_post_at"`
	LastViewedAt   int64  `json:"last_viewed_at"`
	ManuallyUnread bool   `json:"manually_unread"`
}

// BadgeTotals, kullanıcının tüm kanallarının toplamı.
// Uygulama ikonu badge'i için: kaç kanal okunmamış, toplam kaç mention.
type BadgeTotals struct {
	UnreadChannels int `json:"unread_channels"`
	Mentions       int `json:"mentions"`
}

// ChannelMemberInfo, kanal roster'ında bir üyeyi temsil eder.
// users tablosu ile JOIN'lenerek doldurulur — roster görüntüleme
// yetkisi olan çağıranlara döner.
type ChannelMemberInfo struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name"`
	Roles       string    `json:"roles"` // kanonik space-delimited form
	JoinedAt    time.Time `json:"joined_at"`
}

// ViewRequest, kanal görüntüleme isteği (POST /api/channels/{id}/view).
// ViewedAt epoch ms; nil ise server saati kullanılır. Client kendi
// saatini gönderir ki offline'da görüntülenen kanal sonradan sync
// edilirken gerçek görüntüleme zamanı korunur.
type ViewRequest struct {
	ViewedAt *int64 `json:"viewed_at"`
}

// Validate, ViewRequest geçerlilik kontrolü.
func (r *ViewRequest) Validate() error {
	if r.ViewedAt != nil && *r.ViewedAt < 0 {
		return fmt.Errorf("viewed_at cannot be negative")
	}
	return nil
}

// UpdateMemberRolesRequest, üye rol güncelleme isteği.
// Roles space-delimited gelir — chat backend'in membership payload
// formatı ile aynı. ParsedRoles() ile enum listesine çevrilir.
type UpdateMemberRolesRequest struct {
	Roles string `json:"roles"`
}

// Validate, rol string'inin parse edilebilir olduğunu kontrol eder.
func (r *UpdateMemberRolesRequest) Validate() error {
	if _, err := ParseRoles(r.Roles); err != nil {
		return err
	}
	return nil
}

// ParsedRoles, doğrulanmış rol listesini döner.
// Validate'ten sonra çağrılmalıdır; yine de hata kontrolü yapar.
func (r *UpdateMemberRolesRequest) ParsedRoles() ([]ChannelRole, error) {
	return ParseRoles(r.Roles)
}
