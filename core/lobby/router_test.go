package lobby

import (
	"testing"

	"github.com/trezcool/darasa/core"
)

func newTestRouter() (*Router, *Registry) {
	registry := NewRegistry()
	return NewRouter(registry, core.NewStdLogger(testLogger())), registry
}

func TestRouter_ToUsersDeliversInOrder(t *testing.T) {
	router, registry := newTestRouter()
	conn := &fakeConn{}
	registry.Register("u1", conn)

	router.ToUsers([]string{"u1"}, Event{Event: EvtQuizStarted})
	router.ToUsers([]string{"u1"}, Event{Event: EvtQuizEnded})

	names := conn.eventNames()
	if len(names) != 2 || names[0] != EvtQuizStarted || names[1] != EvtQuizEnded {
		t.Errorf("events = %v; want FIFO [quiz-started quiz-ended]", names)
	}
}

func TestRouter_SaturatedConnDoesNotStallOthers(t *testing.T) {
	router, registry := newTestRouter()
	dead := &fakeConn{full: true}
	live := &fakeConn{}
	registry.Register("u1", dead)
	registry.Register("u2", live)
	router.Subscribe(dead)
	router.Subscribe(live)

	router.ToUsers([]string{"u1", "u2"}, Event{Event: EvtQuizStarted})

	if n := live.countEvent(EvtQuizStarted); n != 1 {
		t.Errorf("live conn got %d events; want 1", n)
	}
	if !dead.closed {
		t.Error("saturated conn should be closed")
	}

	// the dropped conn must also be off the lobby-list channel
	router.Global(Event{Event: EvtLobbyUpdate})
	if n := live.countEvent(EvtLobbyUpdate); n != 1 {
		t.Errorf("live conn got %d global events; want 1", n)
	}
	if n := dead.countEvent(EvtLobbyUpdate); n != 0 {
		t.Errorf("dead conn got %d global events; want 0", n)
	}
}

func TestRouter_GlobalReachesSubscribersOnly(t *testing.T) {
	router, registry := newTestRouter()
	sub := &fakeConn{}
	nosub := &fakeConn{}
	registry.Register("u1", sub)
	registry.Register("u2", nosub)
	router.Subscribe(sub)

	router.Global(Event{Event: EvtLobbyCreated})

	if n := sub.countEvent(EvtLobbyCreated); n != 1 {
		t.Errorf("subscriber got %d events; want 1", n)
	}
	if n := nosub.countEvent(EvtLobbyCreated); n != 0 {
		t.Errorf("non-subscriber got %d events; want 0", n)
	}
}
