// Package lock — Key bazlı mutex.
//
// KeyedMutex, her key için bağımsız bir kilit sağlar: aynı key'i kilitleyen
// goroutine'ler sıraya girer, farklı key'ler birbirini hiç beklemez.
//
// Bu servisteki kullanım: membership kaydı başına single-writer garantisi.
// Bir (userID, channelID) kaydının read-modify-write döngüsü ("kanalı
// görüntüle" ile eşzamanlı gelen post sayacı artışı gibi) kayıt bazında
// serialize edilir; farklı kayıtlar paralel güncellenir.
//
// Neden sync.Map değil / neden global mutex değil?
//   - Tek global mutex tüm kanalları birbirine bağlar — bağımsız kayıtların
//     paralelliği kaybolur.
//   - Key başına kalıcı mutex map'i sınırsız büyür (her üye-kanal çifti
//     sonsuza dek bellekte kalır). Burada ref count ile kullanılmayan
//     entry'ler aninda silinir — idle durumda map boştur.
//
// Kilitlenme kuralı (deadlock önleme): birden fazla key'in kilidi ancak
// TUTARLI SIRADA alınır — fan-out yazımı key'leri sıralayıp o sırayla
// kilitler, böylece iki goroutine aynı key çiftini ters sırada bekleyemez.
// DB transaction'ı açıkken KeyedMutex kilidi ALINMAZ. Sıra her zaman:
// önce kayıt kilitleri, sonra DB işlemi.
package lock

import "sync"

// lockEntry, tek bir key'in kilidi ve aktif kullanıcı sayısı.
// refs, entry'nin ne zaman map'ten silinebileceğini belirler.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex, key başına mutex sağlayan yapı.
// Zero value kullanılamaz — NewKeyedMutex ile oluşturulmalıdır.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewKeyedMutex, boş bir KeyedMutex oluşturur.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*lockEntry),
	}
}

// Lock, verilen key'in kilidini alır. Key başka bir goroutine
// tarafından kilitliyse bloklar.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	// Dış kilit bırakıldıktan sonra bekle — diğer key'ler bloklanmasın.
	e.mu.Lock()
}

// Unlock, verilen key'in kilidini bırakır.
// Kilitli olmayan bir key için çağrılırsa panic — sync.Mutex ile aynı sözleşme.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("lock: unlock of unlocked key: " + key)
	}

	e.refs--
	if e.refs == 0 {
		// Bekleyen yok — entry'yi sil, map büyümesin.
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// Len, şu anda takip edilen (kilitli veya bekleyeni olan) key sayısını döner.
// Test ve gözlem için.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
