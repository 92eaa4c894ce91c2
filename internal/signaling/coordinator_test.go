package signaling

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/analytics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/mocks"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/room"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/session"
)

type received struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// fakeTransport records decoded frames per live connection.
type fakeTransport struct {
	mu     sync.Mutex
	live   map[string]bool
	frames map[string][]received
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{live: make(map[string]bool), frames: make(map[string][]received)}
}

func (f *fakeTransport) Send(connID string, frame Frame) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.live[connID] {
		return false
	}
	var r received
	if err := json.Unmarshal(frame, &r); err != nil {
		panic(err)
	}
	f.frames[connID] = append(f.frames[connID], r)
	return true
}

func (f *fakeTransport) open(connID string) {
	f.mu.Lock()
	f.live[connID] = true
	f.mu.Unlock()
}

func (f *fakeTransport) drop(connID string) {
	f.mu.Lock()
	delete(f.live, connID)
	f.mu.Unlock()
}

// take returns and forgets everything sent to connID.
func (f *fakeTransport) take(connID string) []received {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.frames[connID]
	delete(f.frames, connID)
	return out
}

func events(rs []received) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Event
	}
	return out
}

var testNow = time.UnixMilli(1_700_000_000_123)

type harness struct {
	c       *Coordinator
	tr      *fakeTransport
	rooms   *room.Registry
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, rec analytics.Recorder) *harness {
	t.Helper()
	h := &harness{tr: newFakeTransport(), rooms: room.NewRegistry(), metrics: metrics.New()}
	h.c = NewCoordinator(CoordinatorConfig{
		Sessions:  session.NewStore(),
		Rooms:     h.rooms,
		Transport: h.tr,
		Recorder:  rec,
		Metrics:   h.metrics,
		Now:       func() time.Time { return testNow },
	})
	return h
}

func (h *harness) connect(connID string) {
	h.tr.open(connID)
	h.c.Connect(connID, session.ClientInfo{UserAgent: "test-agent", RemoteIP: "10.0.0.1"})
	h.tr.take(connID)
}

func (h *harness) disconnect(connID string) {
	h.tr.drop(connID)
	h.c.Disconnect(connID)
}

func (h *harness) send(connID, event string, data any) {
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		panic(err)
	}
	h.c.HandleMessage(connID, raw)
}

func (h *harness) join(connID, roomID, username string) {
	h.send(connID, EventJoin, map[string]any{"roomId": roomID, "username": username})
}

func TestCoordinator_ConnectGreets(t *testing.T) {
	h := newHarness(t, nil)
	h.tr.open("c1")
	h.c.Connect("c1", session.ClientInfo{})

	got := h.tr.take("c1")
	require.Len(t, got, 1)
	require.Equal(t, EventConnected, got[0].Event)
	require.Equal(t, "c1", got[0].Data["id"])
}

func TestCoordinator_LobbyScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("B")

	h.join("A", "lobby", "alice")
	got := h.tr.take("A")
	require.Equal(t, []string{EventExistingUsers, EventChatMessage}, events(got))
	require.Empty(t, got[0].Data["users"])
	require.Equal(t, map[string]any{
		"username":  SystemUsername,
		"message":   "alice joined the room",
		"timestamp": float64(testNow.UnixMilli()),
		"isSystem":  true,
	}, got[1].Data)

	h.join("B", "lobby", "alice")
	got = h.tr.take("B")
	require.Len(t, got, 1)
	require.Equal(t, EventJoinError, got[0].Event)
	require.Equal(t, UsernameTakenMessage, got[0].Data["message"])
	require.Empty(t, h.tr.take("A"))
	require.Len(t, h.rooms.ParticipantsOf("lobby"), 1)

	h.join("B", "lobby", "bob")
	gotA := h.tr.take("A")
	require.Equal(t, []string{EventUserJoined, EventChatMessage}, events(gotA))
	require.Equal(t, map[string]any{"userId": "B", "username": "bob"}, gotA[0].Data)
	require.Equal(t, "bob joined the room", gotA[1].Data["message"])

	gotB := h.tr.take("B")
	require.Equal(t, []string{EventExistingUsers, EventChatMessage}, events(gotB))
	require.Equal(t, []any{map[string]any{"id": "A", "username": "alice"}}, gotB[0].Data["users"])
	require.Equal(t, "bob joined the room", gotB[1].Data["message"])

	h.disconnect("A")
	gotB = h.tr.take("B")
	require.Equal(t, []string{EventUserLeft, EventChatMessage}, events(gotB))
	require.Equal(t, "A", gotB[0].Data["userId"])
	require.Equal(t, "alice left the room", gotB[1].Data["message"])
	require.Equal(t, true, gotB[1].Data["isSystem"])
	require.Equal(t, []room.Participant{{ID: "B", Username: "bob"}}, h.rooms.ParticipantsOf("lobby"))

	h.disconnect("B")
	require.Zero(t, h.rooms.RoomCount())
	require.Nil(t, h.rooms.ParticipantsOf("lobby"))
}

func TestCoordinator_InvalidJoinIsSilent(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")

	h.join("A", "", "alice")
	h.join("A", "lobby", "   ")
	h.send("A", EventJoin, map[string]any{"roomId": map[string]any{"x": 1}, "username": "alice"})
	h.send("A", EventJoin, nil)

	require.Empty(t, h.tr.take("A"))
	require.Zero(t, h.rooms.RoomCount())
	require.EqualValues(t, 4, h.metrics.Get(metrics.JoinInvalid))
}

func TestCoordinator_JoinTrimsAndCoerces(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")

	h.send("A", EventJoin, map[string]any{"roomId": 42, "username": "  alice  "})
	require.Equal(t, []room.Participant{{ID: "A", Username: "alice"}}, h.rooms.ParticipantsOf("42"))
}

func TestCoordinator_RejoinLeavesPreviousRoom(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("B")
	h.join("A", "r1", "alice")
	h.join("B", "r1", "bob")
	h.join("A", "r2", "alice")
	h.tr.take("A")
	h.tr.take("B")

	h.join("B", "r2", "bob")
	gotB := h.tr.take("B")
	require.Equal(t, []string{EventExistingUsers, EventChatMessage}, events(gotB))

	// B's move emptied r1, which must be gone.
	require.Nil(t, h.rooms.ParticipantsOf("r1"))
	require.Len(t, h.rooms.ParticipantsOf("r2"), 2)
	require.Equal(t, 1, h.rooms.RoomCount())

	gotA := h.tr.take("A")
	require.Equal(t, []string{EventUserJoined, EventChatMessage}, events(gotA))
}

func TestCoordinator_RejoinNotifiesOldRoom(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("B")
	h.join("A", "r1", "alice")
	h.join("B", "r1", "bob")
	h.tr.take("A")

	h.join("B", "r2", "bob")
	gotA := h.tr.take("A")
	require.Equal(t, []string{EventUserLeft, EventChatMessage}, events(gotA))
	require.Equal(t, "bob left the room", gotA[1].Data["message"])
}

func TestCoordinator_RejoinTakenKeepsPreviousRoom(t *testing.T) {
	h := newHarness(t, nil)
	for _, id := range []string{"A", "B", "C"} {
		h.connect(id)
	}
	h.join("A", "lobby", "alice")
	h.join("B", "lobby", "bob")
	h.join("C", "other", "carol")
	for _, id := range []string{"A", "B", "C"} {
		h.tr.take(id)
	}

	h.join("B", "other", "carol")

	gotB := h.tr.take("B")
	require.Equal(t, []string{EventJoinError}, events(gotB))
	require.Empty(t, h.tr.take("A"))
	require.Empty(t, h.tr.take("C"))

	require.Equal(t, []room.Participant{{ID: "A", Username: "alice"}, {ID: "B", Username: "bob"}}, h.rooms.ParticipantsOf("lobby"))
	require.Equal(t, []room.Participant{{ID: "C", Username: "carol"}}, h.rooms.ParticipantsOf("other"))
	id, ok := h.c.sessions.Identity("B")
	require.True(t, ok)
	require.Equal(t, "lobby", id.RoomID)
	require.Equal(t, "bob", id.Username)

	// B still chats in its old room.
	h.send("B", EventChatMessage, map[string]any{"message": "still here"})
	require.Equal(t, []string{EventChatMessage}, events(h.tr.take("A")))
}

func TestCoordinator_RejoinSameRoom(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("B")
	h.join("A", "lobby", "alice")
	h.join("B", "lobby", "bob")
	h.tr.take("A")
	h.tr.take("B")

	h.join("B", "lobby", "alice")
	require.Equal(t, []string{EventJoinError}, events(h.tr.take("B")))
	require.Empty(t, h.tr.take("A"))

	h.join("B", "lobby", "robert")
	gotA := h.tr.take("A")
	require.Equal(t, []string{EventUserLeft, EventChatMessage, EventUserJoined, EventChatMessage}, events(gotA))
	require.Equal(t, "bob left the room", gotA[1].Data["message"])
	require.Equal(t, "robert joined the room", gotA[3].Data["message"])

	gotB := h.tr.take("B")
	require.Equal(t, []string{EventExistingUsers, EventChatMessage}, events(gotB))
	require.Equal(t, []any{map[string]any{"id": "A", "username": "alice"}}, gotB[0].Data["users"])

	require.Equal(t, []room.Participant{{ID: "A", Username: "alice"}, {ID: "B", Username: "robert"}}, h.rooms.ParticipantsOf("lobby"))
	require.Equal(t, 1, h.rooms.RoomCount())
}

func TestCoordinator_RejoinKeepsOnlineRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	h := newHarness(t, rec)
	h.connect("A")

	rec.EXPECT().Increment(analytics.TotalRooms)
	rec.EXPECT().LogSession(gomock.Any())
	rec.EXPECT().Increment(analytics.TotalConnections)
	rec.EXPECT().AddOnline(gomock.Any())
	h.join("A", "r1", "alice")

	// No RemoveOnline: the record is replaced by the new room's.
	gomock.InOrder(
		rec.EXPECT().Increment(analytics.TotalRooms),
		rec.EXPECT().LogSession(gomock.Any()).Do(func(ev analytics.SessionEvent) {
			require.Equal(t, analytics.EventJoin, ev.Type)
			require.Equal(t, "r2", ev.RoomID)
		}),
		rec.EXPECT().Increment(analytics.TotalConnections),
		rec.EXPECT().AddOnline(analytics.OnlineUser{ConnID: "A", Username: "alice", RoomID: "r2", JoinedAt: testNow}),
		rec.EXPECT().LogSession(gomock.Any()).Do(func(ev analytics.SessionEvent) {
			require.Equal(t, analytics.EventDisconnect, ev.Type)
			require.Equal(t, "r1", ev.RoomID)
		}),
	)
	h.join("A", "r2", "alice")
	require.Nil(t, h.rooms.ParticipantsOf("r1"))
}

func TestCoordinator_RelayOffer(t *testing.T) {
	h := newHarness(t, nil)
	for _, id := range []string{"A", "B", "C"} {
		h.connect(id)
	}
	h.join("A", "lobby", "alice")
	h.join("B", "lobby", "bob")
	h.join("C", "lobby", "carol")
	for _, id := range []string{"A", "B", "C"} {
		h.tr.take(id)
	}

	offer := map[string]any{"type": "offer", "sdp": "v=0\r\n"}
	h.send("A", EventOffer, map[string]any{"to": "B", "offer": offer})

	gotB := h.tr.take("B")
	require.Len(t, gotB, 1)
	require.Equal(t, EventOffer, gotB[0].Event)
	require.Equal(t, map[string]any{"offer": offer, "from": "A", "username": "alice"}, gotB[0].Data)
	require.Empty(t, h.tr.take("A"))
	require.Empty(t, h.tr.take("C"))

	h.send("B", EventAnswer, map[string]any{"to": "A", "answer": map[string]any{"type": "answer"}})
	h.send("B", EventICECandidate, map[string]any{"to": "A", "candidate": map[string]any{"candidate": "candidate:1"}})
	gotA := h.tr.take("A")
	require.Equal(t, []string{EventAnswer, EventICECandidate}, events(gotA))
	require.Equal(t, "bob", gotA[1].Data["username"])
	require.Equal(t, map[string]any{"candidate": "candidate:1"}, gotA[1].Data["candidate"])
	require.EqualValues(t, 3, h.metrics.Get(metrics.RelayForwarded))
}

func TestCoordinator_RelayWithoutRoomOrTarget(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("B")

	// A never joined: username is null but the message still goes through.
	h.send("A", EventOffer, map[string]any{"to": "B", "offer": "x"})
	gotB := h.tr.take("B")
	require.Len(t, gotB, 1)
	v, ok := gotB[0].Data["username"]
	require.True(t, ok)
	require.Nil(t, v)

	h.send("A", EventOffer, map[string]any{"to": "ghost", "offer": "x"})
	h.send("A", EventOffer, map[string]any{"offer": "x"})
	require.EqualValues(t, 2, h.metrics.Get(metrics.RelayUnknownTarget))
	require.Empty(t, h.tr.take("A"))
}

func TestCoordinator_MuteExcludesSender(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("B")
	h.join("A", "lobby", "alice")
	h.join("B", "lobby", "bob")
	h.tr.take("A")
	h.tr.take("B")

	h.send("A", EventMuteStatus, map[string]any{"audioEnabled": false})
	require.Empty(t, h.tr.take("A"))
	gotB := h.tr.take("B")
	require.Len(t, gotB, 1)
	require.Equal(t, map[string]any{"userId": "A", "audioEnabled": false}, gotB[0].Data)
}

func TestCoordinator_ChatIncludesSender(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("B")
	h.connect("X")
	h.join("A", "lobby", "alice")
	h.join("B", "lobby", "bob")
	h.join("X", "elsewhere", "xavier")
	h.tr.take("A")
	h.tr.take("B")
	h.tr.take("X")

	h.send("A", EventChatMessage, map[string]any{"message": "hi"})
	want := map[string]any{"username": "alice", "message": "hi", "timestamp": float64(testNow.UnixMilli()), "isSystem": false}
	for _, id := range []string{"A", "B"} {
		got := h.tr.take(id)
		require.Len(t, got, 1, id)
		require.Equal(t, want, got[0].Data)
	}
	require.Empty(t, h.tr.take("X"))
}

func TestCoordinator_RoomEventsWithoutRoomAreNoops(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")

	h.send("A", EventChatMessage, map[string]any{"message": "hi"})
	h.send("A", EventMuteStatus, map[string]any{"audioEnabled": true})
	h.send("A", EventFileShare, map[string]any{"fileName": "a.txt"})
	require.Empty(t, h.tr.take("A"))
}

func TestCoordinator_FileShare(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("B")
	h.join("A", "lobby", "alice")
	h.join("B", "lobby", "bob")
	h.tr.take("A")
	h.tr.take("B")

	h.send("B", EventFileShare, map[string]any{
		"fileName": "notes.txt",
		"fileSize": 5,
		"fileType": "text/plain",
		"fileData": "data:text/plain;base64,aGVsbG8=",
	})
	want := map[string]any{
		"username":  "bob",
		"fileName":  "notes.txt",
		"fileSize":  float64(5),
		"fileType":  "text/plain",
		"fileData":  "data:text/plain;base64,aGVsbG8=",
		"timestamp": float64(testNow.UnixMilli()),
	}
	for _, id := range []string{"A", "B"} {
		got := h.tr.take(id)
		require.Len(t, got, 1, id)
		require.Equal(t, EventFileShare, got[0].Event)
		require.Equal(t, want, got[0].Data)
	}
}

func TestCoordinator_MalformedAndUnknownAreDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("B")
	h.join("A", "lobby", "alice")
	h.join("B", "lobby", "bob")
	h.tr.take("A")
	h.tr.take("B")

	h.c.HandleMessage("A", []byte(`{not json`))
	h.c.HandleMessage("A", []byte(`{"event":"join","data":"lobby"}`))
	h.send("A", "teleport", map[string]any{})
	require.EqualValues(t, 2, h.metrics.Get(metrics.EventsMalformed))
	require.EqualValues(t, 1, h.metrics.Get(metrics.EventsUnknown))

	h.send("A", EventChatMessage, map[string]any{"message": "still here"})
	require.Len(t, h.tr.take("B"), 1)
}

func TestCoordinator_DisconnectSoleMemberNoBroadcast(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("A")
	h.connect("watcher")
	h.join("A", "solo", "alice")
	h.tr.take("A")

	h.disconnect("A")
	require.Zero(t, h.rooms.RoomCount())
	require.Empty(t, h.tr.take("watcher"))

	// Disconnecting a connection that never joined is a no-op.
	h.disconnect("watcher")
}

func TestCoordinator_RecordsAnalytics(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	h := newHarness(t, rec)
	h.connect("A")
	h.connect("B")

	gomock.InOrder(
		rec.EXPECT().Increment(analytics.TotalRooms),
		rec.EXPECT().LogSession(gomock.Any()).Do(func(ev analytics.SessionEvent) {
			require.Equal(t, analytics.EventJoin, ev.Type)
			require.Equal(t, "alice", ev.Username)
			require.Equal(t, "lobby", ev.RoomID)
			require.Equal(t, "test-agent", ev.UserAgent)
			require.Equal(t, "10.0.0.1", ev.IP)
		}),
		rec.EXPECT().Increment(analytics.TotalConnections),
		rec.EXPECT().AddOnline(analytics.OnlineUser{ConnID: "A", Username: "alice", RoomID: "lobby", JoinedAt: testNow}),
	)
	h.join("A", "lobby", "alice")

	// Second member: no room creation.
	rec.EXPECT().LogSession(gomock.Any())
	rec.EXPECT().Increment(analytics.TotalConnections)
	rec.EXPECT().AddOnline(gomock.Any())
	h.join("B", "lobby", "bob")

	// A rejected join records nothing.
	h.connect("C")
	h.join("C", "lobby", "bob")

	rec.EXPECT().Increment(analytics.TotalMessages)
	h.send("A", EventChatMessage, map[string]any{"message": "hi"})

	gomock.InOrder(
		rec.EXPECT().LogSession(gomock.Any()).Do(func(ev analytics.SessionEvent) {
			require.Equal(t, analytics.EventFileShare, ev.Type)
			require.Equal(t, "a.bin", ev.FileName)
			require.EqualValues(t, 1024, ev.FileSize)
		}),
		rec.EXPECT().Increment(analytics.TotalFilesShared),
	)
	h.send("B", EventFileShare, map[string]any{"fileName": "a.bin", "fileSize": 1024, "fileType": "", "fileData": ""})

	gomock.InOrder(
		rec.EXPECT().RemoveOnline("A"),
		rec.EXPECT().LogSession(gomock.Any()).Do(func(ev analytics.SessionEvent) {
			require.Equal(t, analytics.EventDisconnect, ev.Type)
			require.Equal(t, "A", ev.ConnID)
		}),
	)
	h.disconnect("A")
}

func TestCoordinator_ConcurrentJoinsSameUsername(t *testing.T) {
	h := newHarness(t, nil)
	const n = 16
	for i := 0; i < n; i++ {
		h.connect(fmt.Sprintf("c%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.join(fmt.Sprintf("c%d", i), "lobby", "alice")
		}(i)
	}
	wg.Wait()

	require.Len(t, h.rooms.ParticipantsOf("lobby"), 1)
	require.EqualValues(t, 1, h.metrics.Get(metrics.JoinAccepted))
	require.EqualValues(t, n-1, h.metrics.Get(metrics.JoinUsernameTaken))
}

func TestCoordinator_MembersSeeJoinsInOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.connect("host")
	h.join("host", "lobby", "host")
	h.tr.take("host")

	const n = 20
	for i := 0; i < n; i++ {
		h.connect(fmt.Sprintf("c%d", i))
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.join(fmt.Sprintf("c%d", i), "lobby", fmt.Sprintf("user%d", i))
		}(i)
	}
	wg.Wait()

	// Each user-joined is immediately followed by its own system notice.
	got := h.tr.take("host")
	require.Len(t, got, 2*n)
	for i := 0; i < len(got); i += 2 {
		require.Equal(t, EventUserJoined, got[i].Event)
		require.Equal(t, EventChatMessage, got[i+1].Event)
		require.Equal(t, fmt.Sprintf("%s joined the room", got[i].Data["username"]), got[i+1].Data["message"])
	}
}
