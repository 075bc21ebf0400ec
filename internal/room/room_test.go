package room

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkminje/drawroom/internal/figure"
	"github.com/parkminje/drawroom/internal/protocol"
)

// mockSession records every message the room delivers to it.
type mockSession struct {
	id   string
	mu   sync.Mutex
	msgs []protocol.ServerMessage
	fail bool
}

func newMockSession(id string) *mockSession {
	return &mockSession{id: id}
}

func (m *mockSession) UserID() string { return m.id }

func (m *mockSession) Send(msg protocol.ServerMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("send failed")
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockSession) messages() []protocol.ServerMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.ServerMessage, len(m.msgs))
	copy(out, m.msgs)
	return out
}

func (m *mockSession) lastOfKind(kind protocol.ServerKind) (protocol.ServerMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].Kind == kind {
			return m.msgs[i], true
		}
	}
	return protocol.ServerMessage{}, false
}

func (m *mockSession) countOfKind(kind protocol.ServerKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.msgs {
		if msg.Kind == kind {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestRoom(t *testing.T, onEmpty func(string)) *Room {
	t.Helper()
	return New("test-room", figure.NewAllocator(), 64, onEmpty, zerolog.Nop())
}

func join(t *testing.T, r *Room, s *mockSession) {
	t.Helper()
	if err := r.Enqueue(Join{Session: s}); err != nil {
		t.Fatalf("enqueue join: %v", err)
	}
	waitFor(t, "join ack for "+s.id, func() bool {
		_, ok := s.lastOfKind(protocol.AcceptedUserJoined)
		return ok
	})
}

func TestJoinNotifiesOthersAndAcksJoiner(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")

	join(t, r, a)
	join(t, r, b)

	waitFor(t, "A notified of B", func() bool {
		msg, ok := a.lastOfKind(protocol.NotifyUserJoined)
		return ok && msg.UserID == "B"
	})
	if n := b.countOfKind(protocol.NotifyUserJoined); n != 0 {
		t.Errorf("joiner received %d join notifies about itself, want 0", n)
	}
}

func TestAddFigureBroadcastsToEveryone(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")
	join(t, r, a)
	join(t, r, b)

	data := figure.Data{Kind: figure.KindRect, End: figure.Point{X: 4, Y: 2}}
	if err := r.Enqueue(AddFigure{UserID: "A", Data: data}); err != nil {
		t.Fatalf("enqueue add: %v", err)
	}

	for _, s := range []*mockSession{a, b} {
		waitFor(t, "figure added notify for "+s.id, func() bool {
			msg, ok := s.lastOfKind(protocol.NotifyFigureAdded)
			return ok && msg.Figure != nil && msg.Figure.Kind == figure.KindRect
		})
	}
}

func TestFigureIDsAreMonotonic(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	join(t, r, a)

	for i := 0; i < 3; i++ {
		if err := r.Enqueue(AddFigure{UserID: "A", Data: figure.Data{Kind: figure.KindLine}}); err != nil {
			t.Fatalf("enqueue add: %v", err)
		}
	}
	waitFor(t, "three added notifies", func() bool {
		return a.countOfKind(protocol.NotifyFigureAdded) == 3
	})

	// Delete one and add again; the freed id must not come back.
	var ids []figure.ID
	for _, msg := range a.messages() {
		if msg.Kind == protocol.NotifyFigureAdded {
			ids = append(ids, msg.FigureID)
		}
	}
	if err := r.Enqueue(DeleteFigures{UserID: "A", IDs: figure.NewIDSet(ids[1])}); err != nil {
		t.Fatalf("enqueue delete: %v", err)
	}
	if err := r.Enqueue(AddFigure{UserID: "A", Data: figure.Data{Kind: figure.KindLine}}); err != nil {
		t.Fatalf("enqueue add: %v", err)
	}
	waitFor(t, "fourth added notify", func() bool {
		return a.countOfKind(protocol.NotifyFigureAdded) == 4
	})

	msg, _ := a.lastOfKind(protocol.NotifyFigureAdded)
	for _, seen := range ids {
		if msg.FigureID == seen {
			t.Fatalf("figure id %d was reused", seen)
		}
	}
	if msg.FigureID <= ids[len(ids)-1] {
		t.Errorf("new id %d is not greater than previous %d", msg.FigureID, ids[len(ids)-1])
	}
}

func TestSelectFlow(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")
	join(t, r, a)
	join(t, r, b)

	for i := 0; i < 3; i++ {
		r.Enqueue(AddFigure{UserID: "A", Data: figure.Data{Kind: figure.KindLine}})
	}
	waitFor(t, "figures added", func() bool {
		return a.countOfKind(protocol.NotifyFigureAdded) == 3
	})

	r.Enqueue(SelectFigure{UserID: "A", IDs: figure.NewIDSet(1, 2, 4)})

	waitFor(t, "select ack", func() bool {
		msg, ok := a.lastOfKind(protocol.AcceptedFigureSelected)
		return ok && msg.FigureIDs.Equal(figure.NewIDSet(1, 2))
	})
	waitFor(t, "select notify at B", func() bool {
		msg, ok := b.lastOfKind(protocol.NotifyFigureSelected)
		return ok && msg.UserID == "A" && msg.FigureIDs.Equal(figure.NewIDSet(1, 2))
	})
	if n := a.countOfKind(protocol.NotifyFigureSelected); n != 0 {
		t.Errorf("originator received %d select notifies, want 0", n)
	}

	// The room's own snapshot confirms the selection.
	r.Enqueue(RequestInfo{UserID: "A", Request: protocol.RequestCurrentSelectedFigures})
	waitFor(t, "selections snapshot", func() bool {
		msg, ok := a.lastOfKind(protocol.ResponseCurrentSelectedFigures)
		return ok && msg.Selections["A"].Equal(figure.NewIDSet(1, 2))
	})
}

func TestUnselectAllClearsEntry(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")
	join(t, r, a)
	join(t, r, b)

	r.Enqueue(AddFigure{UserID: "A", Data: figure.Data{Kind: figure.KindLine}})
	r.Enqueue(SelectFigure{UserID: "A", IDs: figure.NewIDSet(1)})
	r.Enqueue(UnselectFigureAll{UserID: "A"})

	waitFor(t, "unselect-all ack", func() bool {
		_, ok := a.lastOfKind(protocol.AcceptedFigureUnselectedAll)
		return ok
	})
	waitFor(t, "unselect-all notify at B", func() bool {
		msg, ok := b.lastOfKind(protocol.NotifyFigureUnselectedAll)
		return ok && msg.UserID == "A"
	})

	r.Enqueue(RequestInfo{UserID: "A", Request: protocol.RequestCurrentSelectedFigures})
	waitFor(t, "empty selections snapshot", func() bool {
		msg, ok := a.lastOfKind(protocol.ResponseCurrentSelectedFigures)
		return ok && len(msg.Selections) == 0
	})
}

func TestUpdateSelectedFiguresRunsSelectThenUnselect(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")
	join(t, r, a)
	join(t, r, b)

	for i := 0; i < 2; i++ {
		r.Enqueue(AddFigure{UserID: "A", Data: figure.Data{Kind: figure.KindLine}})
	}
	r.Enqueue(SelectFigure{UserID: "A", IDs: figure.NewIDSet(1)})

	// Replace selection {1} with {2}.
	r.Enqueue(UpdateSelectedFigures{
		UserID:   "A",
		Select:   figure.NewIDSet(2),
		Unselect: figure.NewIDSet(1),
	})

	waitFor(t, "update ack", func() bool {
		msg, ok := a.lastOfKind(protocol.AcceptedSelectedFiguresUpdated)
		return ok && msg.Select.Equal(figure.NewIDSet(2)) && msg.Unselect.Equal(figure.NewIDSet(1))
	})
	waitFor(t, "update notify at B", func() bool {
		msg, ok := b.lastOfKind(protocol.NotifySelectedFiguresUpdated)
		return ok && msg.UserID == "A"
	})

	r.Enqueue(RequestInfo{UserID: "A", Request: protocol.RequestCurrentSelectedFigures})
	waitFor(t, "replaced selection snapshot", func() bool {
		msg, ok := a.lastOfKind(protocol.ResponseCurrentSelectedFigures)
		return ok && msg.Selections["A"].Equal(figure.NewIDSet(2))
	})
}

func TestDeleteCascadeAcrossUsersThroughRoom(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")
	join(t, r, a)
	join(t, r, b)

	r.Enqueue(AddFigure{UserID: "A", Data: figure.Data{Kind: figure.KindLine}})
	r.Enqueue(SelectFigure{UserID: "A", IDs: figure.NewIDSet(1)})
	r.Enqueue(SelectFigure{UserID: "B", IDs: figure.NewIDSet(1)})
	r.Enqueue(DeleteFigures{UserID: "A", IDs: figure.NewIDSet(1)})

	waitFor(t, "delete ack", func() bool {
		msg, ok := a.lastOfKind(protocol.AcceptedFigureDeleted)
		return ok && msg.FigureIDs.Equal(figure.NewIDSet(1))
	})
	waitFor(t, "delete notify at B", func() bool {
		msg, ok := b.lastOfKind(protocol.NotifyFigureDeleted)
		return ok && msg.FigureIDs.Equal(figure.NewIDSet(1))
	})

	r.Enqueue(RequestInfo{UserID: "A", Request: protocol.RequestCurrentSelectedFigures})
	waitFor(t, "pruned selections snapshot", func() bool {
		msg, ok := a.lastOfKind(protocol.ResponseCurrentSelectedFigures)
		return ok && len(msg.Selections) == 0
	})
	r.Enqueue(RequestInfo{UserID: "A", Request: protocol.RequestCurrentFigures})
	waitFor(t, "empty figures snapshot", func() bool {
		msg, ok := a.lastOfKind(protocol.ResponseCurrentFigures)
		return ok && len(msg.Figures) == 0
	})
}

func TestRequestInfoIsUnicastOnly(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")
	join(t, r, a)
	join(t, r, b)

	r.Enqueue(RequestInfo{UserID: "A", Request: protocol.RequestCurrentSharedUsers})

	waitFor(t, "users snapshot", func() bool {
		msg, ok := a.lastOfKind(protocol.ResponseCurrentSharedUsers)
		return ok && len(msg.Users) == 2
	})
	if n := b.countOfKind(protocol.ResponseCurrentSharedUsers); n != 0 {
		t.Errorf("non-requester received %d responses, want 0", n)
	}
}

func TestMousePositionSkipsSender(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")
	join(t, r, a)
	join(t, r, b)

	positions := []figure.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	r.Enqueue(MousePosition{UserID: "A", Positions: positions})

	waitFor(t, "mouse notify at B", func() bool {
		msg, ok := b.lastOfKind(protocol.NotifyMousePosition)
		return ok && msg.UserID == "A" && len(msg.Positions) == 2
	})
	if n := a.countOfKind(protocol.NotifyMousePosition); n != 0 {
		t.Errorf("sender received %d mouse notifies, want 0", n)
	}
}

func TestSelectDragLifecycle(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")
	join(t, r, a)
	join(t, r, b)

	r.Enqueue(SelectDragStart{UserID: "A", X: 10, Y: 20})
	waitFor(t, "drag started notify at B", func() bool {
		msg, ok := b.lastOfKind(protocol.NotifySelectDragStarted)
		return ok && msg.X == 10 && msg.Y == 20
	})

	r.Enqueue(RequestInfo{UserID: "B", Request: protocol.RequestCurrentSelectDragPositions})
	waitFor(t, "drag anchor snapshot", func() bool {
		msg, ok := b.lastOfKind(protocol.ResponseCurrentSelectDragPositions)
		return ok && msg.DragPositions["A"] == (figure.Point{X: 10, Y: 20})
	})

	r.Enqueue(SelectDragFinish{UserID: "A"})
	waitFor(t, "drag finished notify at B", func() bool {
		_, ok := b.lastOfKind(protocol.NotifySelectDragFinished)
		return ok
	})

	r.Enqueue(RequestInfo{UserID: "B", Request: protocol.RequestCurrentSelectDragPositions})
	waitFor(t, "cleared drag anchor snapshot", func() bool {
		msg, ok := b.lastOfKind(protocol.ResponseCurrentSelectDragPositions)
		return ok && len(msg.DragPositions) == 0
	})
}

func TestLeaveBroadcastsAndClearsSelection(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	b := newMockSession("B")
	join(t, r, a)
	join(t, r, b)

	r.Enqueue(AddFigure{UserID: "A", Data: figure.Data{Kind: figure.KindLine}})
	r.Enqueue(SelectFigure{UserID: "A", IDs: figure.NewIDSet(1)})
	r.Enqueue(Leave{UserID: "A"})

	waitFor(t, "user left notify at B", func() bool {
		msg, ok := b.lastOfKind(protocol.NotifyUserLeft)
		return ok && msg.UserID == "A"
	})
	waitFor(t, "unselect-all notify at B", func() bool {
		msg, ok := b.lastOfKind(protocol.NotifyFigureUnselectedAll)
		return ok && msg.UserID == "A"
	})

	r.Enqueue(RequestInfo{UserID: "B", Request: protocol.RequestCurrentSelectedFigures})
	waitFor(t, "selections snapshot after leave", func() bool {
		msg, ok := b.lastOfKind(protocol.ResponseCurrentSelectedFigures)
		return ok && len(msg.Selections) == 0
	})
}

func TestLastLeaveTerminatesSilently(t *testing.T) {
	signals := make(chan string, 4)
	r := newTestRoom(t, func(id string) { signals <- id })
	a := newMockSession("A")
	join(t, r, a)

	before := len(a.messages())
	if err := r.Enqueue(Leave{UserID: "A"}); err != nil {
		t.Fatalf("enqueue leave: %v", err)
	}

	select {
	case id := <-signals:
		if id != "test-room" {
			t.Errorf("empty signal for %q, want test-room", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("room never signalled empty")
	}

	<-r.Done()
	if got := len(a.messages()); got != before {
		t.Errorf("departing last user received %d extra messages, want 0", got-before)
	}
	select {
	case <-signals:
		t.Error("empty signal delivered more than once")
	case <-time.After(50 * time.Millisecond):
	}

	if err := r.Enqueue(Leave{UserID: "A"}); err != ErrRoomClosed {
		t.Errorf("enqueue after termination = %v, want ErrRoomClosed", err)
	}
}

func TestDeliveryFailureDoesNotStopRoom(t *testing.T) {
	r := newTestRoom(t, nil)
	a := newMockSession("A")
	broken := newMockSession("B")
	broken.fail = true
	c := newMockSession("C")
	join(t, r, a)

	// B's ack will fail; the join must still land.
	if err := r.Enqueue(Join{Session: broken}); err != nil {
		t.Fatalf("enqueue join: %v", err)
	}
	join(t, r, c)

	r.Enqueue(AddFigure{UserID: "A", Data: figure.Data{Kind: figure.KindLine}})
	for _, s := range []*mockSession{a, c} {
		waitFor(t, "added notify for "+s.id, func() bool {
			_, ok := s.lastOfKind(protocol.NotifyFigureAdded)
			return ok
		})
	}
}

func TestJoinDeclinesTakenUserID(t *testing.T) {
	r := newTestRoom(t, nil)
	first := newMockSession("X")
	b := newMockSession("B")
	join(t, r, first)
	join(t, r, b)

	second := newMockSession("X")
	reply := make(chan error, 1)
	if err := r.Enqueue(Join{Session: second, Reply: reply}); err != nil {
		t.Fatalf("enqueue join: %v", err)
	}
	select {
	case err := <-reply:
		if err != ErrUserExists {
			t.Fatalf("duplicate join outcome = %v, want ErrUserExists", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome for duplicate join")
	}

	// The original registration survives: X's broadcasts keep flowing
	// to the first session and never reach the declined one.
	r.Enqueue(AddFigure{UserID: "B", Data: figure.Data{Kind: figure.KindLine}})
	waitFor(t, "added notify for first X session", func() bool {
		_, ok := first.lastOfKind(protocol.NotifyFigureAdded)
		return ok
	})
	if n := len(second.messages()); n != 0 {
		t.Errorf("declined session received %d messages, want 0", n)
	}

	// And X's leave evicts exactly the registered session.
	r.Enqueue(Leave{UserID: "X"})
	waitFor(t, "B notified of X leaving", func() bool {
		msg, ok := b.lastOfKind(protocol.NotifyUserLeft)
		return ok && msg.UserID == "X"
	})
}
