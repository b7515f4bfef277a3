package ws

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestAddRemoveClientTracksOnlineUsers(t *testing.T) {
	hub := NewHub()

	c1 := newTestClient(hub, "user-a")
	c2 := newTestClient(hub, "user-a") // aynı kullanıcının ikinci tab'ı
	c3 := newTestClient(hub, "user-b")

	hub.addClient(c1)
	hub.addClient(c2)
	hub.addClient(c3)

	online := hub.GetOnlineUserIDs()
	if len(online) != 2 {
		t.Fatalf("expected 2 online users, got %d: %v", len(online), online)
	}

	// İlk tab kapanır — kullanıcı hâlâ online
	hub.removeClient(c1)
	if got := len(hub.GetOnlineUserIDs()); got != 2 {
		t.Fatalf("expected 2 online users after one tab closed, got %d", got)
	}

	// Son tab da kapanır — kullanıcı offline
	hub.removeClient(c2)
	if got := len(hub.GetOnlineUserIDs()); got != 1 {
		t.Fatalf("expected 1 online user after full disconnect, got %d", got)
	}
}

func TestBroadcastToUserDeliversToAllConnections(t *testing.T) {
	hub := NewHub()

	c1 := newTestClient(hub, "user-a")
	c2 := newTestClient(hub, "user-a")
	other := newTestClient(hub, "user-b")

	hub.addClient(c1)
	hub.addClient(c2)
	hub.addClient(other)

	hub.BroadcastToUser("user-a", Event{Op: OpBadgeUpdate, Data: map[string]string{"channel_id": "ch1"}})

	for _, c := range []*Client{c1, c2} {
		select {
		case raw := <-c.send:
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if ev.Op != OpBadgeUpdate {
				t.Fatalf("expected op %s, got %s", OpBadgeUpdate, ev.Op)
			}
			if ev.Seq == 0 {
				t.Fatal("expected broadcast event to carry a sequence number")
			}
		default:
			t.Fatal("expected event in client send buffer")
		}
	}

	select {
	case <-other.send:
		t.Fatal("user-b should not receive user-a's badge update")
	default:
	}
}

func TestBroadcastToAllAssignsIncreasingSeq(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "user-a")
	hub.addClient(c)

	hub.BroadcastToAll(Event{Op: OpChannelCreate})
	hub.BroadcastToAll(Event{Op: OpChannelDelete})

	var seqs []int64
	for i := 0; i < 2; i++ {
		select {
		case raw := <-c.send:
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			seqs = append(seqs, ev.Seq)
		default:
			t.Fatal("expected event in send buffer")
		}
	}

	if seqs[1] <= seqs[0] {
		t.Fatalf("expected increasing seq, got %v", seqs)
	}
}

func TestAddClientSendsReadySnapshot(t *testing.T) {
	hub := NewHub()
	hub.OnReadyData(func(userID string) any {
		return ReadyData{
			Badges: []ChannelBadgeItem{{ChannelID: "ch1", Unread: true, MentionsCount: 2}},
			Totals: BadgeTotalsItem{UnreadChannels: 1, Mentions: 2},
		}
	})

	c := newTestClient(hub, "user-a")
	hub.addClient(c)

	select {
	case raw := <-c.send:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unmarshal ready event: %v", err)
		}
		if ev.Op != OpReady {
			t.Fatalf("expected op %s, got %s", OpReady, ev.Op)
		}
	case <-time.After(time.Second):
		t.Fatal("expected ready event after client registration")
	}
}

func TestHandleChannelViewDispatchesCallback(t *testing.T) {
	hub := NewHub()

	type viewCall struct {
		userID    string
		channelID string
		viewedAt  *int64
	}
	called := make(chan viewCall, 1)
	hub.OnChannelView(func(userID, channelID string, viewedAt *int64) {
		called <- viewCall{userID, channelID, viewedAt}
	})

	c := newTestClient(hub, "user-a")
	ts := int64(1700000000000)
	c.handleChannelView(Event{
		Op:   OpChannelView,
		Data: map[string]any{"channel_id": "ch1", "viewed_at": ts},
	})

	select {
	case call := <-called:
		if call.userID != "user-a" || call.channelID != "ch1" {
			t.Fatalf("unexpected callback args: %+v", call)
		}
		if call.viewedAt == nil || *call.viewedAt != ts {
			t.Fatalf("expected viewed_at %d, got %v", ts, call.viewedAt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected channel_view callback to fire")
	}
}

func TestHandleChannelViewIgnoresMissingChannelID(t *testing.T) {
	hub := NewHub()

	called := make(chan struct{}, 1)
	hub.OnChannelView(func(userID, channelID string, viewedAt *int64) {
		called <- struct{}{}
	})

	c := newTestClient(hub, "user-a")
	c.handleChannelView(Event{Op: OpChannelView, Data: map[string]any{}})

	select {
	case <-called:
		t.Fatal("callback should not fire without channel_id")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleChannelUnreadDispatchesCallback(t *testing.T) {
	hub := NewHub()

	called := make(chan string, 1)
	hub.OnChannelUnread(func(userID, channelID string) {
		called <- userID + "/" + channelID
	})

	c := newTestClient(hub, "user-b")
	c.handleChannelUnread(Event{
		Op:   OpChannelUnread,
		Data: map[string]any{"channel_id": "ch9"},
	})

	select {
	case got := <-called:
		if got != "user-b/ch9" {
			t.Fatalf("unexpected callback args: %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("expected channel_unread callback to fire")
	}
}
