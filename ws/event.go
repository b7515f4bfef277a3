// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı badge dağıtımını sağlar.
//
// Mimari:
// - Hub: Tüm bağlantıları yöneten merkezi yapı (Observer pattern)
// - Client: Her WebSocket bağlantısını temsil eder
// - Event: Client-server arası iletilen mesaj formatı
//
// Event akışı:
// 1. Chat backend bir post event'i push eder → ingest → Service → DB kayıt
// 2. Service, Hub'ın BroadcastToUser metodunu çağırır (badge_update)
// 3. Hub, event'i o kullanıcının tüm bağlantılarına iletir
// 4. Her client'ın WritePump'ı event'i WebSocket'e yazar
// 5. Frontend event'i alır ve sidebar badge'ini günceller
//
// Ters yön de çalışır: client kanal açtığında HTTP çağrısı yerine
// channel_view event'i gönderebilir — aynı service operasyonuna düşer.
package ws

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü — "badge_update", "heartbeat" vb.
// Data: Event'e özgü payload — badge objesi, kanal bilgisi vb.
// Seq (sequence number): Her outbound broadcast event'ine verilen artan sayı.
//
//	Frontend eksik event tespit etmek için seq'i takip eder.
//	Örnek: seq 5'ten sonra seq 7 gelirse, 6 kaybolmuş demektir —
//	client GET /api/unreads ile tam snapshot çekerek toparlanır.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// ────────────────────────────────────────────
// Operation sabitleri
// ────────────────────────────────────────────

// Client → Server operasyonları
const (
	OpHeartbeat     = "heartbeat"      // Client her 30sn'de gönderir — "hâlâ bağlıyım" sinyali
	OpChannelView   = "channel_view"   // Kullanıcı kanalı açtı — HTTP POST /view ile aynı semantik
	OpChannelUnread = "channel_unread" // Kullanıcı kanalı manuel okunmamış işaretledi
)

// Server → Client operasyonları
const (
	OpReady        = "ready"         // Bağlantı kurulduğunda ilk gönderilen — tam badge snapshot'ı
	OpHeartbeatAck = "heartbeat_ack" // Heartbeat'e yanıt — "seni duydum"

	OpBadgeUpdate = "badge_update" // Bir kanalın badge state'i değişti

	OpMembershipCreate = "membership_create" // Kullanıcı bir kanala katıldı (yeni kayıt)
	OpMembershipDelete = "membership_delete" // Kullanıcı bir kanaldan ayrıldı (kayıt silindi)

	OpChannelCreate = "channel_create" // Yeni kanal oluşturuldu
	OpChannelDelete = "channel_delete" // Kanal silindi

	OpRolesUpdate = "roles_update" // Üyenin kanal rolleri değişti
)

// ChannelViewData, channel_view event'inin payload'ı (Client → Server).
// ViewedAt epoch ms; nil ise server saati kullanılır.
type ChannelViewData struct {
	ChannelID string `json:"channel_id"`
	ViewedAt  *int64 `json:"viewed_at,omitempty"`
}

// ChannelUnreadData, channel_unread event'inin payload'ı (Client → Server).
type ChannelUnreadData struct {
	ChannelID string `json:"channel_id"`
}

// ReadyData, bağlantı kurulduğunda client'a gönderilen ilk event'in payload'ı.
//
// Frontend bu event ile sidebar'ı tek seferde kurar: her kanalın badge'i
// ve uygulama ikonu için toplamlar. Sonraki badge_update event'leri bu
// snapshot'ın üstüne uygulanır.
type ReadyData struct {
	Badges []ChannelBadgeItem `json:"badges"`
	Totals BadgeTotalsItem    `json:"totals"`
}

// ChannelBadgeItem, ready snapshot'ındaki tek bir kanal badge'i.
// models.ChannelBadge ile aynı alanları taşır — ws paketinin models'a
// bağımlılığını kırmak için ayrı tanımlanır.
type ChannelBadgeItem struct {
	ChannelID      string `json:"channel_id"`
	Unread         bool   `json:"unread"`
	MessageCount   int    `json:"message_count"`
	MentionsCount  int    `json:"mentions_count"`
	LastPostAt     int64  `json:"last_post_at"`
	LastViewedAt   int64  `json:"last_viewed_at"`
	ManuallyUnread bool   `json:"manually_unread"`
}

// BadgeTotalsItem, ready snapshot'ındaki toplam sayılar.
type BadgeTotalsItem struct {
	UnreadChannels int `json:"unread_channels"`
	Mentions       int `json:"mentions"`
}
