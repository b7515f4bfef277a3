package services

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/akinalp/rozet/database"
	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/pkg/cache"
	"github.com/akinalp/rozet/pkg/lock"
	"github.com/akinalp/rozet/repository"
	"github.com/akinalp/rozet/ws"
)

// testEnv, service testleri için gerçek bir SQLite dosyası üzerinde
// kurulmuş tam bağımlılık seti. Repo'lar mock'lanmaz — fan-out'un
// transaction yolu dahil gerçek SQL çalışır. Sadece hub fake'tir.
type testEnv struct {
	db             *database.DB
	userRepo       repository.UserRepository
	channelRepo    repository.ChannelRepository
	membershipRepo repository.MembershipRepository
	locks          *lock.KeyedMutex
	summaryCache   *cache.TTLCache[string, []models.ChannelBadge]
	hub            *fakeHub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("failed to load embedded migrations: %v", err)
	}

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), migrations)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	summaryCache := cache.New[string, []models.ChannelBadge](time.Minute, time.Minute)
	t.Cleanup(summaryCache.Close)

	return &testEnv{
		db:             db,
		userRepo:       repository.NewSQLiteUserRepo(db.Conn),
		channelRepo:    repository.NewSQLiteChannelRepo(db.Conn),
		membershipRepo: repository.NewSQLiteMembershipRepo(db.Conn),
		locks:          lock.NewKeyedMutex(),
		summaryCache:   summaryCache,
		hub:            &fakeHub{},
	}
}

func (e *testEnv) readStateService() ReadStateService {
	return NewReadStateService(e.db.Conn, e.channelRepo, e.membershipRepo, e.locks, e.summaryCache, e.hub)
}

func (e *testEnv) membershipService() MembershipService {
	return NewMembershipService(e.channelRepo, e.membershipRepo, e.locks, e.summaryCache, e.hub)
}

func (e *testEnv) seedUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x"}
	if err := e.userRepo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return user
}

func (e *testEnv) seedChannel(t *testing.T, id, name string) *models.Channel {
	t.Helper()
	channel := &models.Channel{ID: id, Name: name}
	if err := e.channelRepo.Create(context.Background(), channel); err != nil {
		t.Fatalf("failed to seed channel %s: %v", name, err)
	}
	return channel
}

func (e *testEnv) seedMembership(t *testing.T, userID, channelID string, roles ...models.ChannelRole) *models.ChannelMembership {
	t.Helper()
	if len(roles) == 0 {
		roles = models.DefaultRoles()
	}
	m := &models.ChannelMembership{UserID: userID, ChannelID: channelID, Roles: roles}
	if err := e.membershipRepo.Create(context.Background(), m); err != nil {
		t.Fatalf("failed to seed membership %s/%s: %v", userID, channelID, err)
	}
	return m
}

// fakeHub, ws.EventPublisher'ı kayıt altına alan test double'ı.
type fakeHub struct {
	mu     sync.Mutex
	events []publishedEvent
}

// publishedEvent, hub'a verilen tek bir yayın. userID boşsa BroadcastToAll'dur.
type publishedEvent struct {
	userID string
	event  ws.Event
}

func (f *fakeHub) BroadcastToAll(event ws.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{event: event})
}

func (f *fakeHub) BroadcastToUser(userID string, event ws.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{userID: userID, event: event})
}

func (f *fakeHub) GetOnlineUserIDs() []string { return nil }

// opsFor, kullanıcıya gönderilen event op'larını gönderim sırasıyla döner.
func (f *fakeHub) opsFor(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ops []string
	for _, p := range f.events {
		if p.userID == userID {
			ops = append(ops, p.event.Op)
		}
	}
	return ops
}

func ptrInt64(v int64) *int64 { return &v }

func TestPostViewMarkUnreadLifecycle(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	// Post düşer: mention'lı, yazar üye değil
	err := rs.ApplyPostEvent(ctx, &models.PostEventRequest{
		ChannelID:  "c1",
		AuthorID:   "remote-author",
		PostedAt:   100,
		MentionAll: true,
	})
	if err != nil {
		t.Fatalf("ApplyPostEvent failed: %v", err)
	}

	badge, err := rs.GetState(ctx, alice.ID, "c1")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if !badge.Unread || badge.MessageCount != 1 || badge.MentionsCount != 1 || badge.LastPostAt != 100 {
		t.Fatalf("after post expected unread badge {1 msg, 1 mention, lastPost 100}, got %+v", badge)
	}

	// Görüntüleme: sayaçlar sıfırlanır, unread düşer
	badge, err = rs.RecordView(ctx, alice.ID, "c1", ptrInt64(150))
	if err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}
	if badge.Unread || badge.MessageCount != 0 || badge.MentionsCount != 0 || badge.LastViewedAt != 150 {
		t.Fatalf("after view expected read badge with zero counters, got %+v", badge)
	}

	// Manuel unread: son post görüntülemeden eski olsa bile unread olur
	badge, err = rs.MarkManuallyUnread(ctx, alice.ID, "c1")
	if err != nil {
		t.Fatalf("MarkManuallyUnread failed: %v", err)
	}
	if !badge.Unread {
		t.Fatalf("expected unread after manual mark, got %+v", badge)
	}
	if badge.MessageCount != 0 || badge.MentionsCount != 0 {
		t.Fatalf("manual unread must not touch counters, got %+v", badge)
	}

	// Her geçiş bir badge_update push'lamış olmalı
	ops := env.hub.opsFor(alice.ID)
	if len(ops) != 3 {
		t.Fatalf("expected 3 badge pushes, got %v", ops)
	}
	for _, op := range ops {
		if op != ws.OpBadgeUpdate {
			t.Fatalf("expected only badge_update ops, got %v", ops)
		}
	}
}

func TestRecordViewRejectsEarlierTimestamp(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	if _, err := rs.RecordView(ctx, alice.ID, "c1", ptrInt64(150)); err != nil {
		t.Fatalf("first view failed: %v", err)
	}

	_, err := rs.RecordView(ctx, alice.ID, "c1", ptrInt64(100))
	if !errors.Is(err, pkg.ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}

	// Başarısız istek state'i DEĞİŞTİRMEMELİ
	badge, err := rs.GetState(ctx, alice.ID, "c1")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if badge.LastViewedAt != 150 {
		t.Fatalf("failed view must not move watermark, got %d", badge.LastViewedAt)
	}
}

func TestRecordViewRejectsFarFutureTimestamp(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	farFuture := time.Now().AddDate(100, 0, 0).UnixMilli()
	_, err := rs.RecordView(ctx, alice.ID, "c1", &farFuture)
	if !errors.Is(err, pkg.ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}

	// Reddedilen istek watermark'ı İLERİ TAŞIMAMALI: taşısaydı server
	// saatiyle yapılan sonraki her görüntüleme sonsuza dek reddedilirdi
	badge, err := rs.RecordView(ctx, alice.ID, "c1", nil)
	if err != nil {
		t.Fatalf("server clock view after rejected timestamp failed: %v", err)
	}
	if badge.LastViewedAt >= farFuture {
		t.Fatalf("rejected view must not move watermark, got %d", badge.LastViewedAt)
	}

	// Makul saat sapması ise tolere edilir
	nearFuture := time.Now().Add(30 * time.Second).UnixMilli()
	if _, err := rs.RecordView(ctx, alice.ID, "c1", &nearFuture); err != nil {
		t.Fatalf("view within clock skew tolerance failed: %v", err)
	}
}

func TestRecordViewSameTimestampIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	first, err := rs.RecordView(ctx, alice.ID, "c1", ptrInt64(150))
	if err != nil {
		t.Fatalf("first view failed: %v", err)
	}

	second, err := rs.RecordView(ctx, alice.ID, "c1", ptrInt64(150))
	if err != nil {
		t.Fatalf("repeated view with same timestamp must succeed: %v", err)
	}

	if *first != *second {
		t.Fatalf("repeated view produced different state: %+v vs %+v", first, second)
	}
}

func TestRecordViewDefaultsToServerClock(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	before := time.Now().UnixMilli()
	badge, err := rs.RecordView(ctx, alice.ID, "c1", nil)
	if err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}
	after := time.Now().UnixMilli()

	if badge.LastViewedAt < before || badge.LastViewedAt > after {
		t.Fatalf("expected server clock in [%d, %d], got %d", before, after, badge.LastViewedAt)
	}
}

func TestRecordViewUnknownRecord(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	// üyelik YOK

	_, err := rs.RecordView(context.Background(), alice.ID, "c1", ptrInt64(100))
	if !errors.Is(err, pkg.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestApplyPostEventSkipsAuthor(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")
	env.seedMembership(t, bob.ID, "c1")

	err := rs.ApplyPostEvent(ctx, &models.PostEventRequest{
		ChannelID: "c1",
		AuthorID:  bob.ID,
		PostedAt:  100,
	})
	if err != nil {
		t.Fatalf("ApplyPostEvent failed: %v", err)
	}

	aliceBadge, err := rs.GetState(ctx, alice.ID, "c1")
	if err != nil {
		t.Fatalf("GetState(alice) failed: %v", err)
	}
	if !aliceBadge.Unread || aliceBadge.MessageCount != 1 {
		t.Fatalf("expected alice unread with 1 message, got %+v", aliceBadge)
	}

	bobBadge, err := rs.GetState(ctx, bob.ID, "c1")
	if err != nil {
		t.Fatalf("GetState(bob) failed: %v", err)
	}
	if bobBadge.Unread || bobBadge.MessageCount != 0 {
		t.Fatalf("author must not become unread by own post, got %+v", bobBadge)
	}

	if ops := env.hub.opsFor(bob.ID); len(ops) != 0 {
		t.Fatalf("author must not receive a badge push, got %v", ops)
	}
	if ops := env.hub.opsFor(alice.ID); len(ops) != 1 || ops[0] != ws.OpBadgeUpdate {
		t.Fatalf("expected single badge_update for alice, got %v", ops)
	}
}

func TestApplyPostEventMentionTargeting(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	carol := env.seedUser(t, "carol")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")
	env.seedMembership(t, carol.ID, "c1")

	err := rs.ApplyPostEvent(ctx, &models.PostEventRequest{
		ChannelID:      "c1",
		AuthorID:       "remote-author",
		PostedAt:       100,
		MentionUserIDs: []string{alice.ID},
	})
	if err != nil {
		t.Fatalf("ApplyPostEvent failed: %v", err)
	}

	aliceBadge, _ := rs.GetState(ctx, alice.ID, "c1")
	if aliceBadge.MentionsCount != 1 || aliceBadge.MessageCount != 1 {
		t.Fatalf("mentioned member expected {1 mention, 1 message}, got %+v", aliceBadge)
	}

	carolBadge, _ := rs.GetState(ctx, carol.ID, "c1")
	if carolBadge.MentionsCount != 0 || carolBadge.MessageCount != 1 {
		t.Fatalf("unmentioned member expected {0 mentions, 1 message}, got %+v", carolBadge)
	}
}

func TestApplyPostEventLatePostAlreadySeen(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	post := func(ts int64) {
		t.Helper()
		err := rs.ApplyPostEvent(ctx, &models.PostEventRequest{
			ChannelID: "c1", AuthorID: "remote-author", PostedAt: ts,
		})
		if err != nil {
			t.Fatalf("ApplyPostEvent(%d) failed: %v", ts, err)
		}
	}

	post(200)
	post(100) // out-of-order: watermark gerilemez, sayaç artar

	badge, _ := rs.GetState(ctx, alice.ID, "c1")
	if badge.LastPostAt != 200 || badge.MessageCount != 2 {
		t.Fatalf("expected {lastPost 200, 2 messages}, got %+v", badge)
	}

	if _, err := rs.RecordView(ctx, alice.ID, "c1", ptrInt64(250)); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}

	// Geç gelen post üyenin zaten gördüğü aralığa aitse sayaç birikmez:
	// watermark hareket etmez ve kayıt okunmuş kalır.
	post(150)

	badge, _ = rs.GetState(ctx, alice.ID, "c1")
	if badge.Unread || badge.MessageCount != 0 || badge.MentionsCount != 0 {
		t.Fatalf("late already-seen post must leave record read, got %+v", badge)
	}
	if badge.LastPostAt != 200 {
		t.Fatalf("late post must not regress watermark, got %d", badge.LastPostAt)
	}
}

func TestApplyPostEventUnknownChannel(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()

	err := rs.ApplyPostEvent(context.Background(), &models.PostEventRequest{
		ChannelID: "ghost", AuthorID: "remote-author", PostedAt: 100,
	})
	if !errors.Is(err, pkg.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestGetSummaryCachesPerUser(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	seeded := env.seedMembership(t, alice.ID, "c1")

	first, err := rs.GetSummary(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if len(first) != 1 || first[0].ChannelID != "c1" {
		t.Fatalf("expected single badge for c1, got %+v", first)
	}

	// Servisi bypass ederek DB'yi değiştir — cache'li okuma eskiyi görmeli
	seeded.LastPostAt = 500
	if err := env.membershipRepo.Update(ctx, seeded); err != nil {
		t.Fatalf("direct update failed: %v", err)
	}

	cached, err := rs.GetSummary(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if cached[0].LastPostAt != 0 {
		t.Fatalf("expected cached summary to miss the direct write, got %+v", cached[0])
	}

	// Cache düşünce taze veri gelir
	env.summaryCache.Delete(alice.ID)
	fresh, err := rs.GetSummary(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if fresh[0].LastPostAt != 500 || !fresh[0].Unread {
		t.Fatalf("expected fresh summary after invalidation, got %+v", fresh[0])
	}
}

func TestWritesInvalidateSummaryCache(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	if _, err := rs.GetSummary(ctx, alice.ID); err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}

	// Fan-out yazması cache'i düşürür — sonraki okuma yeni post'u görür
	err := rs.ApplyPostEvent(ctx, &models.PostEventRequest{
		ChannelID: "c1", AuthorID: "remote-author", PostedAt: 100,
	})
	if err != nil {
		t.Fatalf("ApplyPostEvent failed: %v", err)
	}

	summary, err := rs.GetSummary(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if len(summary) != 1 || !summary[0].Unread || summary[0].MessageCount != 1 {
		t.Fatalf("expected invalidated cache to surface the post, got %+v", summary)
	}
}

func TestTotalsAggregateAcrossChannels(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	for _, id := range []string{"c1", "c2", "c3"} {
		env.seedChannel(t, id, "channel-"+id)
		env.seedMembership(t, alice.ID, id)
	}

	// c1: 2 post, 2 mention; c2: 1 post mention'sız; c3 sessiz
	for _, ts := range []int64{100, 110} {
		err := rs.ApplyPostEvent(ctx, &models.PostEventRequest{
			ChannelID: "c1", AuthorID: "remote-author", PostedAt: ts, MentionAll: true,
		})
		if err != nil {
			t.Fatalf("ApplyPostEvent failed: %v", err)
		}
	}
	err := rs.ApplyPostEvent(ctx, &models.PostEventRequest{
		ChannelID: "c2", AuthorID: "remote-author", PostedAt: 120,
	})
	if err != nil {
		t.Fatalf("ApplyPostEvent failed: %v", err)
	}

	totals, err := rs.Totals(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.UnreadChannels != 2 || totals.Mentions != 2 {
		t.Fatalf("expected {2 unread channels, 2 mentions}, got %+v", totals)
	}

	// c1 görüntülenince toplamlar düşer
	if _, err := rs.RecordView(ctx, alice.ID, "c1", ptrInt64(200)); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}

	totals, err = rs.Totals(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.UnreadChannels != 1 || totals.Mentions != 0 {
		t.Fatalf("expected {1 unread channel, 0 mentions} after view, got %+v", totals)
	}
}

func TestMentionsNeverExceedMessages(t *testing.T) {
	env := newTestEnv(t)
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	events := []struct {
		ts      int64
		mention bool
	}{
		{100, true}, {90, false}, {110, true}, {105, false}, {120, true},
	}

	for _, ev := range events {
		req := &models.PostEventRequest{ChannelID: "c1", AuthorID: "remote-author", PostedAt: ev.ts}
		if ev.mention {
			req.MentionUserIDs = []string{alice.ID}
		}
		if err := rs.ApplyPostEvent(ctx, req); err != nil {
			t.Fatalf("ApplyPostEvent failed: %v", err)
		}

		badge, err := rs.GetState(ctx, alice.ID, "c1")
		if err != nil {
			t.Fatalf("GetState failed: %v", err)
		}
		if badge.MentionsCount > badge.MessageCount {
			t.Fatalf("mentions %d exceed messages %d", badge.MentionsCount, badge.MessageCount)
		}
	}

	badge, _ := rs.GetState(ctx, alice.ID, "c1")
	if badge.LastPostAt != 120 || badge.MessageCount != 5 || badge.MentionsCount != 3 {
		t.Fatalf("expected {lastPost 120, 5 messages, 3 mentions}, got %+v", badge)
	}
}
