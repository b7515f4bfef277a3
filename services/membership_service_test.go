package services

import (
	"context"
	"errors"
	"testing"

	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/ws"
)

func TestJoinCreatesReadRecord(t *testing.T) {
	env := newTestEnv(t)
	ms := env.membershipService()
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")

	membership, err := ms.Join(ctx, alice.ID, "c1")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if len(membership.Roles) != 1 || membership.Roles[0] != models.RoleMember {
		t.Fatalf("expected default member role, got %v", membership.Roles)
	}

	// Yeni üyelik okunmuş başlar — katılım öncesi geçmiş unread sayılmaz
	badge, err := rs.GetState(ctx, alice.ID, "c1")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if badge.Unread || badge.MessageCount != 0 || badge.MentionsCount != 0 {
		t.Fatalf("fresh membership must start read, got %+v", badge)
	}

	if ops := env.hub.opsFor(alice.ID); len(ops) != 1 || ops[0] != ws.OpMembershipCreate {
		t.Fatalf("expected membership_create push, got %v", ops)
	}

	// Tekrar katılmak hata
	if _, err := ms.Join(ctx, alice.ID, "c1"); !errors.Is(err, pkg.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on duplicate join, got %v", err)
	}
}

func TestJoinUnknownChannel(t *testing.T) {
	env := newTestEnv(t)
	ms := env.membershipService()

	alice := env.seedUser(t, "alice")

	if _, err := ms.Join(context.Background(), alice.ID, "ghost"); !errors.Is(err, pkg.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestLeaveRemovesRecord(t *testing.T) {
	env := newTestEnv(t)
	ms := env.membershipService()
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	if err := ms.Leave(ctx, alice.ID, "c1"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	if _, err := rs.GetState(ctx, alice.ID, "c1"); !errors.Is(err, pkg.ErrChannelNotFound) {
		t.Fatalf("expected no record after leave, got %v", err)
	}

	if ops := env.hub.opsFor(alice.ID); len(ops) != 1 || ops[0] != ws.OpMembershipDelete {
		t.Fatalf("expected membership_delete push, got %v", ops)
	}

	// İkinci leave hata — kayıt yok
	if err := ms.Leave(ctx, alice.ID, "c1"); !errors.Is(err, pkg.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound on repeated leave, got %v", err)
	}
}

func TestLeaveDropsMemberFromFanOut(t *testing.T) {
	env := newTestEnv(t)
	ms := env.membershipService()
	rs := env.readStateService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")
	env.seedMembership(t, bob.ID, "c1")

	if err := ms.Leave(ctx, bob.ID, "c1"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	err := rs.ApplyPostEvent(ctx, &models.PostEventRequest{
		ChannelID: "c1", AuthorID: "remote-author", PostedAt: 100,
	})
	if err != nil {
		t.Fatalf("ApplyPostEvent failed: %v", err)
	}

	// Ayrılan üye push almaz, kalan üye alır
	if ops := env.hub.opsFor(bob.ID); len(ops) != 1 || ops[0] != ws.OpMembershipDelete {
		t.Fatalf("left member must not receive badge pushes, got %v", ops)
	}
	if ops := env.hub.opsFor(alice.ID); len(ops) != 1 || ops[0] != ws.OpBadgeUpdate {
		t.Fatalf("remaining member expected badge_update, got %v", ops)
	}
}

func TestRosterRequiresManageMembers(t *testing.T) {
	env := newTestEnv(t)
	ms := env.membershipService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	outsider := env.seedUser(t, "outsider")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")
	env.seedMembership(t, bob.ID, "c1", models.RoleModerator)

	// Düz üyenin manage members yetkisi yok
	if _, err := ms.Roster(ctx, alice, "c1"); !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("plain member expected ErrForbidden, got %v", err)
	}

	// Üye olmayan da yetkisiz
	if _, err := ms.Roster(ctx, outsider, "c1"); !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("non-member expected ErrForbidden, got %v", err)
	}

	// Moderator roster'ı görür
	members, err := ms.Roster(ctx, bob, "c1")
	if err != nil {
		t.Fatalf("moderator Roster failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	// Platform admin üye olmadan görür
	admin := env.seedUser(t, "root")
	admin.IsPlatformAdmin = true
	if _, err := ms.Roster(ctx, admin, "c1"); err != nil {
		t.Fatalf("platform admin Roster failed: %v", err)
	}

	// Bilinmeyen kanal 404
	if _, err := ms.Roster(ctx, admin, "ghost"); !errors.Is(err, pkg.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestUpdateRolesReplacesSet(t *testing.T) {
	env := newTestEnv(t)
	ms := env.membershipService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")
	env.seedMembership(t, bob.ID, "c1", models.RoleModerator)

	updated, err := ms.UpdateRoles(ctx, bob, "c1", alice.ID, []models.ChannelRole{models.RoleObserver})
	if err != nil {
		t.Fatalf("UpdateRoles failed: %v", err)
	}
	if len(updated.Roles) != 1 || updated.Roles[0] != models.RoleObserver {
		t.Fatalf("expected roles replaced with [observer], got %v", updated.Roles)
	}

	if ops := env.hub.opsFor(alice.ID); len(ops) != 1 || ops[0] != ws.OpRolesUpdate {
		t.Fatalf("expected roles_update push to target, got %v", ops)
	}

	// Düz üye rol değiştiremez
	if _, err := ms.UpdateRoles(ctx, alice, "c1", bob.ID, nil); !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for plain member, got %v", err)
	}

	// Hedef üye değilse 404
	carol := env.seedUser(t, "carol")
	if _, err := ms.UpdateRoles(ctx, bob, "c1", carol.ID, nil); !errors.Is(err, pkg.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound for non-member target, got %v", err)
	}
}

func TestUpdateRolesAllowsEmptySet(t *testing.T) {
	env := newTestEnv(t)
	ms := env.membershipService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	admin := env.seedUser(t, "root")
	admin.IsPlatformAdmin = true
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	updated, err := ms.UpdateRoles(ctx, admin, "c1", alice.ID, nil)
	if err != nil {
		t.Fatalf("UpdateRoles with empty set failed: %v", err)
	}
	if len(updated.Roles) != 0 {
		t.Fatalf("expected empty role set, got %v", updated.Roles)
	}

	// Rolsüz üyenin hiçbir yetkisi kalmaz
	if _, err := ms.Roster(ctx, alice, "c1"); !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("role-less member expected ErrForbidden, got %v", err)
	}
}

func TestReconcileRolesFromUpstream(t *testing.T) {
	env := newTestEnv(t)
	ms := env.membershipService()
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	env.seedChannel(t, "c1", "general")
	env.seedMembership(t, alice.ID, "c1")

	err := ms.ReconcileRoles(ctx, "c1", alice.ID, []models.ChannelRole{models.RoleAdmin, models.RoleMember})
	if err != nil {
		t.Fatalf("ReconcileRoles failed: %v", err)
	}

	membership, err := env.membershipRepo.Get(ctx, alice.ID, "c1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if models.FormatRoles(membership.Roles) != "admin member" {
		t.Fatalf("expected canonical 'admin member', got %q", models.FormatRoles(membership.Roles))
	}

	// Kayıt yoksa reconcile hata döner — upstream'in haberi olsun
	if err := ms.ReconcileRoles(ctx, "c1", "ghost-user", nil); !errors.Is(err, pkg.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}
