package models

import (
	"fmt"
	"strings"
)

// ChannelRole, bir üyenin kanal içindeki rolünü temsil eder.
//
// Roller chat backend'den membership payload'ları ile gelir ve
// space-delimited string olarak saklanır ("member moderator" gibi).
// Ama string'i ASLA doğrudan karşılaştırmayız — her token bu enum'a
// parse edilir. Böylece "moderator" vs "Moderator" vs "mod" gibi
// sessiz uyumsuzluklar parse anında hata olarak yakalanır.
type ChannelRole string

// Tanımlı roller. Go'da enum yoktur — typed constant kullanılır.
// Yeni rol eklerken üç yeri güncelle: bu liste, Capabilities() switch'i
// ve rolePrecedence sırası. Capabilities() default case'i sayesinde
// unutulan rol derleme sonrası ilk testte patlar, sessizce yetki vermez.
const (
	RoleObserver  ChannelRole = "observer"  // Salt-okunur katılımcı
	RoleMember    ChannelRole = "member"    // Normal üye
	RoleModerator ChannelRole = "moderator" // Üye/rol yönetimi yapabilir
	RoleAdmin     ChannelRole = "admin"     // Kanal üzerinde tam yetki
)

// Capability, rol yetkilerini bit flag olarak temsil eder.
//
// Bitfield (bit flag) nedir?
// Her yetkiyi bir bit ile temsil ediyoruz. Böylece tek bir integer'da
// birden fazla yetkiyi saklayabiliriz.
//
// Örnek:
//
//	CapViewChannel   = 1 (binary: 001)
//	CapManageMembers = 2 (binary: 010)
//	İkisine birden sahip rol seti: 3 (binary: 011)
//
// Kontrol: (caps & CapManageMembers) != 0 → bu yetki var mı?
type Capability int64

const (
	CapViewChannel   Capability = 1 << iota // 1 — kanalın badge state'ini görme
	CapManageMembers                        // 2 — roster görüntüleme, üye rollerini güncelleme
	CapManageChannel                        // 4 — kanal kaydını düzenleme/silme
)

// Has, belirli bir yetkinin var olup olmadığını kontrol eder.
func (c Capability) Has(want Capability) bool {
	return c&want != 0
}

// Capabilities, rolün yetki setini döner.
//
// Switch EXHAUSTIVE'dir: her tanımlı rol için açık bir case vardır.
// Tanınmayan rol 0 yetki alır — bilinmeyen bir token hiçbir zaman
// yetki kazandırmaz (fail-closed).
func (r ChannelRole) Capabilities() Capability {
	switch r {
	case RoleObserver:
		return CapViewChannel
	case RoleMember:
		return CapViewChannel
	case RoleModerator:
		return CapViewChannel | CapManageMembers
	case RoleAdmin:
		return CapViewChannel | CapManageMembers | CapManageChannel
	default:
		return 0
	}
}

// Valid, rolün tanımlı bir değer olup olmadığını kontrol eder.
func (r ChannelRole) Valid() bool {
	switch r {
	case RoleObserver, RoleMember, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// rolePrecedence, FormatRoles'un kullandığı kanonik sıralama.
// En yetkili rol başa yazılır — "admin member" ile "member admin"
// aynı set'tir, DB'de tek bir temsil olmalı (idempotent update'ler
// satırı gereksiz yere kirletmesin).
var rolePrecedence = []ChannelRole{RoleAdmin, RoleModerator, RoleMember, RoleObserver}

// ParseRoles, space-delimited rol string'ini ChannelRole listesine çevirir.
//
// Chat backend'den gelen membership payload'larındaki roles alanı
// buradan geçer. Tanınmayan token hata döner — sessizce yutulmaz,
// çünkü yutulursa o üyenin yetkileri fark edilmeden kaybolur.
// Boş string geçerlidir ve boş set döner (rolsüz üye).
func ParseRoles(s string) ([]ChannelRole, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, nil
	}

	seen := make(map[ChannelRole]bool, len(fields))
	roles := make([]ChannelRole, 0, len(fields))
	for _, f := range fields {
		role := ChannelRole(f)
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role: %q", f)
		}
		if seen[role] {
			continue // duplicate token — tek sayılır
		}
		seen[role] = true
		roles = append(roles, role)
	}

	return roles, nil
}

// FormatRoles, rol listesini kanonik space-delimited string'e çevirir.
// Sıralama rolePrecedence'a göredir, duplicate'ler elenir.
// ParseRoles(FormatRoles(x)) her zaman aynı set'i verir.
func FormatRoles(roles []ChannelRole) string {
	if len(roles) == 0 {
		return ""
	}

	member := make(map[ChannelRole]bool, len(roles))
	for _, r := range roles {
		member[r] = true
	}

	var parts []string
	for _, r := range rolePrecedence {
		if member[r] {
			parts = append(parts, string(r))
		}
	}

	return strings.Join(parts, " ")
}

// RolesCapabilities, bir rol setinin birleşik yetki maskesini döner.
// Üye birden fazla role sahipse yetkiler OR'lanır.
func RolesCapabilities(roles []ChannelRole) Capability {
	var caps Capability
	for _, r := range roles {
		caps |= r.Capabilities()
	}
	return caps
}

// DefaultRoles, kanala yeni katılan üyenin başlangıç rol seti.
func DefaultRoles() []ChannelRole {
	return []ChannelRole{RoleMember}
}
