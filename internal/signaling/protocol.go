package signaling

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Inbound event names.
const (
	EventJoin         = "join"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice-candidate"
	EventMuteStatus   = "mute-status"
	EventChatMessage  = "chat-message"
	EventFileShare    = "file-share"
)

// Outbound-only event names.
const (
	EventConnected     = "connected"
	EventExistingUsers = "existing-users"
	EventUserJoined    = "user-joined"
	EventJoinError     = "join-error"
	EventUserLeft      = "user-left"
)

const (
	SystemUsername        = "System"
	UsernameTakenMessage  = "Username already taken"
	joinedTheRoomTemplate = "%s joined the room"
	leftTheRoomTemplate   = "%s left the room"
)

var (
	errMalformedEnvelope = errors.New("signaling: malformed envelope")
	errMissingEvent      = errors.New("signaling: missing event name")
	errMalformedData     = errors.New("signaling: data must be an object")
)

// Frame is one encoded outbound envelope, shared by every recipient of a
// broadcast.
type Frame []byte

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encodeFrame(event string, data any) (Frame, error) {
	b, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

// inbound is a parsed client envelope. Data is always an object result
// (possibly empty) so handlers can Get fields without nil checks.
type inbound struct {
	Event string
	Data  gjson.Result
}

func parseEnvelope(raw []byte) (inbound, error) {
	if !gjson.ValidBytes(raw) {
		return inbound{}, errMalformedEnvelope
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return inbound{}, errMalformedEnvelope
	}
	event := root.Get("event")
	if event.Type != gjson.String || event.Str == "" {
		return inbound{}, errMissingEvent
	}
	data := root.Get("data")
	switch {
	case !data.Exists(), data.Type == gjson.Null:
		data = gjson.Parse("{}")
	case !data.IsObject():
		return inbound{}, errMalformedData
	}
	return inbound{Event: event.Str, Data: data}, nil
}

// coerceString renders a scalar JSON value as text: strings as-is, numbers
// in shortest decimal form, booleans as true/false. Objects, arrays, null and
// missing values become "".
func coerceString(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return strconv.FormatFloat(r.Num, 'f', -1, 64)
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	default:
		return ""
	}
}

func trimmedField(data gjson.Result, key string) string {
	return strings.TrimSpace(coerceString(data.Get(key)))
}

var jsonNull = json.RawMessage("null")

// rawField returns the field's JSON text untouched, or null when absent.
func rawField(data gjson.Result, key string) json.RawMessage {
	r := data.Get(key)
	if !r.Exists() || r.Raw == "" {
		return jsonNull
	}
	return json.RawMessage(r.Raw)
}

type connectedPayload struct {
	ID string `json:"id"`
}

type peer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type existingUsersPayload struct {
	Users []peer `json:"users"`
}

type userJoinedPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type joinErrorPayload struct {
	Message string `json:"message"`
}

type userLeftPayload struct {
	UserID string `json:"userId"`
}

// chatPayload carries a string for system notices and the sender's raw JSON
// value for user messages.
type chatPayload struct {
	Username  string `json:"username"`
	Message   any    `json:"message"`
	Timestamp int64  `json:"timestamp"`
	IsSystem  bool   `json:"isSystem"`
}

type mutePayload struct {
	UserID       string          `json:"userId"`
	AudioEnabled json.RawMessage `json:"audioEnabled"`
}

type fileSharePayload struct {
	Username  string          `json:"username"`
	FileName  json.RawMessage `json:"fileName"`
	FileSize  json.RawMessage `json:"fileSize"`
	FileType  json.RawMessage `json:"fileType"`
	FileData  json.RawMessage `json:"fileData"`
	Timestamp int64           `json:"timestamp"`
}

// relayPayload is the forwarded offer/answer/ice-candidate. Exactly one of
// the payload fields is set; Username is null for a sender that never joined.
type relayPayload struct {
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	From      string          `json:"from"`
	Username  *string         `json:"username"`
}

func newRelayPayload(event string, body json.RawMessage, from string, username *string) relayPayload {
	p := relayPayload{From: from, Username: username}
	switch event {
	case EventOffer:
		p.Offer = body
	case EventAnswer:
		p.Answer = body
	case EventICECandidate:
		p.Candidate = body
	}
	return p
}

// relayBodyKey is the data field holding the opaque payload for each relayed
// event.
var relayBodyKey = map[string]string{
	EventOffer:        "offer",
	EventAnswer:       "answer",
	EventICECandidate: "candidate",
}

func jsonString(raw json.RawMessage) string {
	return gjson.ParseBytes(raw).String()
}

func jsonInt(raw json.RawMessage) int64 {
	return gjson.ParseBytes(raw).Int()
}
