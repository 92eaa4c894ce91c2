package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/analytics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/room"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/session"
)

// Transport delivers encoded frames to one connection. Send reports false
// when the connection is unknown or already gone; callers treat that as a
// silent drop.
type Transport interface {
	Send(connID string, frame Frame) bool
}

type CoordinatorConfig struct {
	Sessions  *session.Store
	Rooms     *room.Registry
	Transport Transport
	Recorder  analytics.Recorder
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
}

// Coordinator implements the join, relay, broadcast and disconnect protocol.
// Anything emitted for a membership change or room broadcast is sent while the
// room is held, so every member sees a room's events in mutation order.
type Coordinator struct {
	sessions  *session.Store
	rooms     *room.Registry
	transport Transport
	recorder  analytics.Recorder
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	c := &Coordinator{
		sessions:  cfg.Sessions,
		rooms:     cfg.Rooms,
		transport: cfg.Transport,
		recorder:  cfg.Recorder,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		now:       cfg.Now,
	}
	if c.sessions == nil {
		c.sessions = session.NewStore()
	}
	if c.rooms == nil {
		c.rooms = room.NewRegistry()
	}
	if c.recorder == nil {
		c.recorder = analytics.Discard
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Rooms returns the live room snapshot for dashboards.
func (c *Coordinator) Rooms() []room.Info {
	return c.rooms.Snapshot()
}

func (c *Coordinator) timestamp() int64 {
	return c.now().UnixMilli()
}

func (c *Coordinator) emit(connID, event string, data any) bool {
	frame, err := encodeFrame(event, data)
	if err != nil {
		c.log.Error("encode outbound frame", "event", event, "err", err)
		return false
	}
	return c.transport.Send(connID, frame)
}

// broadcast encodes once and sends to every member except exclude.
func (c *Coordinator) broadcast(members []room.Participant, exclude, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		c.log.Error("encode outbound frame", "event", event, "err", err)
		return
	}
	for _, m := range members {
		if m.ID == exclude {
			continue
		}
		c.transport.Send(m.ID, frame)
	}
}

func (c *Coordinator) systemMessage(format, username string) chatPayload {
	return chatPayload{
		Username:  SystemUsername,
		Message:   fmt.Sprintf(format, username),
		Timestamp: c.timestamp(),
		IsSystem:  true,
	}
}

// Connect opens the session for a new connection and tells the client its id.
func (c *Coordinator) Connect(connID string, info session.ClientInfo) {
	c.sessions.Open(connID, info)
	c.emit(connID, EventConnected, connectedPayload{ID: connID})
}

// HandleMessage parses one inbound envelope and dispatches it. Malformed or
// unknown messages are dropped without affecting the connection.
func (c *Coordinator) HandleMessage(connID string, raw []byte) {
	c.metrics.Inc(metrics.EventsReceived)

	msg, err := parseEnvelope(raw)
	if err != nil {
		c.metrics.Inc(metrics.EventsMalformed)
		c.log.Debug("dropping malformed message", "conn_id", connID, "err", err)
		return
	}

	data := msg.Data
	switch msg.Event {
	case EventJoin:
		c.Join(connID, trimmedField(data, "roomId"), trimmedField(data, "username"))
	case EventOffer, EventAnswer, EventICECandidate:
		c.Relay(connID, msg.Event, coerceString(data.Get("to")), rawField(data, relayBodyKey[msg.Event]))
	case EventMuteStatus:
		c.MuteStatus(connID, rawField(data, "audioEnabled"))
	case EventChatMessage:
		c.Chat(connID, rawField(data, "message"))
	case EventFileShare:
		c.ShareFile(connID, FileShare{
			FileName: rawField(data, "fileName"),
			FileSize: rawField(data, "fileSize"),
			FileType: rawField(data, "fileType"),
			FileData: rawField(data, "fileData"),
		})
	default:
		c.metrics.Inc(metrics.EventsUnknown)
		c.log.Debug("dropping unknown event", "conn_id", connID, "event", msg.Event)
	}
}

// Join adds connID to roomID as username. Empty ids are ignored. A connection
// already in another room leaves it only once the new join has succeeded, so a
// rejected join changes nothing.
func (c *Coordinator) Join(connID, roomID, username string) {
	if roomID == "" || username == "" {
		c.metrics.Inc(metrics.JoinInvalid)
		return
	}

	prev, _ := c.sessions.Identity(connID)
	p := room.Participant{ID: connID, Username: username}

	var err error
	if prev.InRoom() && prev.RoomID == roomID {
		err = c.rooms.Rejoin(roomID, p, func(left room.LeaveResult, joined room.JoinResult) {
			c.departed(connID, prev, left, false)
			c.admitted(connID, roomID, username, prev.Client, joined)
		})
	} else {
		err = c.rooms.Join(roomID, p, func(res room.JoinResult) {
			c.admitted(connID, roomID, username, prev.Client, res)
		})
		if err == nil && prev.InRoom() {
			// The online record now belongs to the new room.
			c.rooms.Leave(prev.RoomID, connID, func(res room.LeaveResult) {
				c.departed(connID, prev, res, false)
			})
		}
	}

	switch {
	case err == nil:
		c.metrics.Inc(metrics.JoinAccepted)
		c.log.Debug("joined room", "conn_id", connID, "room_id", roomID, "username", username)
	case errors.Is(err, room.ErrUsernameTaken):
		c.metrics.Inc(metrics.JoinUsernameTaken)
		c.emit(connID, EventJoinError, joinErrorPayload{Message: UsernameTakenMessage})
	default:
		c.log.Warn("join failed", "conn_id", connID, "room_id", roomID, "err", err)
	}
}

// admitted runs with roomID held, right after connID was inserted.
func (c *Coordinator) admitted(connID, roomID, username string, client session.ClientInfo, res room.JoinResult) {
	c.sessions.SetIdentity(connID, username, roomID)

	if res.Created {
		c.recorder.Increment(analytics.TotalRooms)
	}
	c.recorder.LogSession(analytics.SessionEvent{
		Type:      analytics.EventJoin,
		ConnID:    connID,
		Username:  username,
		RoomID:    roomID,
		UserAgent: client.UserAgent,
		IP:        client.RemoteIP,
		Timestamp: c.now(),
	})
	c.recorder.Increment(analytics.TotalConnections)
	c.recorder.AddOnline(analytics.OnlineUser{ConnID: connID, Username: username, RoomID: roomID, JoinedAt: c.now()})

	users := make([]peer, 0, len(res.Others))
	for _, p := range res.Others {
		users = append(users, peer{ID: p.ID, Username: p.Username})
	}
	c.emit(connID, EventExistingUsers, existingUsersPayload{Users: users})

	c.broadcast(res.Others, connID, EventUserJoined, userJoinedPayload{UserID: connID, Username: username})

	everyone := append(res.Others, room.Participant{ID: connID, Username: username})
	c.broadcast(everyone, "", EventChatMessage, c.systemMessage(joinedTheRoomTemplate, username))
}

// departed runs with the old room held, right after connID was removed.
// Remaining members get user-left followed by a system notice; an emptied
// room was already deleted and nobody is notified.
func (c *Coordinator) departed(connID string, id session.Identity, res room.LeaveResult, offline bool) {
	if offline {
		c.recorder.RemoveOnline(connID)
	}
	c.recorder.LogSession(analytics.SessionEvent{
		Type:      analytics.EventDisconnect,
		ConnID:    connID,
		Username:  id.Username,
		RoomID:    id.RoomID,
		UserAgent: id.Client.UserAgent,
		IP:        id.Client.RemoteIP,
		Timestamp: c.now(),
	})
	if res.Deleted {
		return
	}
	c.broadcast(res.Remaining, "", EventUserLeft, userLeftPayload{UserID: connID})
	c.broadcast(res.Remaining, "", EventChatMessage, c.systemMessage(leftTheRoomTemplate, id.Username))
}

// Disconnect tears down everything held for connID. It must run exactly once
// per connection.
func (c *Coordinator) Disconnect(connID string) {
	id, ok := c.sessions.Clear(connID)
	if !ok || !id.InRoom() {
		return
	}
	c.rooms.Leave(id.RoomID, connID, func(res room.LeaveResult) {
		c.departed(connID, id, res, true)
	})
	c.log.Debug("left room", "conn_id", connID, "room_id", id.RoomID, "username", id.Username)
}

// Relay forwards an offer, answer or ICE candidate to exactly one target.
// No membership check is made; unknown targets are dropped.
func (c *Coordinator) Relay(connID, event, to string, body json.RawMessage) {
	if to == "" {
		c.metrics.Inc(metrics.RelayUnknownTarget)
		return
	}
	var username *string
	if id, ok := c.sessions.Identity(connID); ok && id.Username != "" {
		name := id.Username
		username = &name
	}
	if c.emit(to, event, newRelayPayload(event, body, connID, username)) {
		c.metrics.Inc(metrics.RelayForwarded)
		return
	}
	c.metrics.Inc(metrics.RelayUnknownTarget)
}

// withRoom runs fn with the sender's identity and current room members. It is
// a no-op for a connection outside any room.
func (c *Coordinator) withRoom(connID string, fn func(id session.Identity, members []room.Participant)) {
	id, ok := c.sessions.Identity(connID)
	if !ok || !id.InRoom() {
		return
	}
	c.rooms.WithMembers(id.RoomID, func(members []room.Participant) {
		fn(id, members)
	})
}

// MuteStatus tells the rest of the sender's room about its audio state.
func (c *Coordinator) MuteStatus(connID string, audioEnabled json.RawMessage) {
	c.withRoom(connID, func(_ session.Identity, members []room.Participant) {
		c.broadcast(members, connID, EventMuteStatus, mutePayload{UserID: connID, AudioEnabled: audioEnabled})
	})
}

// Chat broadcasts a user message to the sender's whole room.
func (c *Coordinator) Chat(connID string, message json.RawMessage) {
	c.withRoom(connID, func(id session.Identity, members []room.Participant) {
		c.recorder.Increment(analytics.TotalMessages)
		c.broadcast(members, "", EventChatMessage, chatPayload{
			Username:  id.Username,
			Message:   message,
			Timestamp: c.timestamp(),
		})
	})
}

// FileShare is an inline file. Every field is passed through as sent.
type FileShare struct {
	FileName json.RawMessage
	FileSize json.RawMessage
	FileType json.RawMessage
	FileData json.RawMessage
}

// ShareFile broadcasts a file to the sender's whole room.
func (c *Coordinator) ShareFile(connID string, f FileShare) {
	c.withRoom(connID, func(id session.Identity, members []room.Participant) {
		c.recorder.LogSession(analytics.SessionEvent{
			Type:      analytics.EventFileShare,
			ConnID:    connID,
			Username:  id.Username,
			RoomID:    id.RoomID,
			FileName:  jsonString(f.FileName),
			FileSize:  jsonInt(f.FileSize),
			Timestamp: c.now(),
		})
		c.recorder.Increment(analytics.TotalFilesShared)
		c.broadcast(members, "", EventFileShare, fileSharePayload{
			Username:  id.Username,
			FileName:  f.FileName,
			FileSize:  f.FileSize,
			FileType:  f.FileType,
			FileData:  f.FileData,
			Timestamp: c.timestamp(),
		})
	})
}
