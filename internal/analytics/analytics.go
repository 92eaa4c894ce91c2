//go:generate go run go.uber.org/mock/mockgen -source=analytics.go -destination=../mocks/mock_analytics.go -package=mocks
package analytics

import "time"

type EventType string

const (
	EventJoin       EventType = "join"
	EventDisconnect EventType = "disconnect"
	EventFileShare  EventType = "file-share"
)

// SessionEvent is one row of the session log shown on the admin dashboard.
type SessionEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"eventType"`
	ConnID    string    `json:"connId"`
	Username  string    `json:"username"`
	RoomID    string    `json:"roomId"`
	UserAgent string    `json:"userAgent,omitempty"`
	IP        string    `json:"ipAddress,omitempty"`
	FileName  string    `json:"fileName,omitempty"`
	FileSize  int64     `json:"fileSize,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Counter string

const (
	TotalConnections    Counter = "total_connections"
	TotalRooms          Counter = "total_rooms"
	TotalMessages       Counter = "total_messages"
	TotalFilesShared    Counter = "total_files_shared"
	PeakConcurrentUsers Counter = "peak_concurrent_users"
)

// Counters lists every counter in display order.
var Counters = []Counter{TotalConnections, TotalRooms, TotalMessages, TotalFilesShared, PeakConcurrentUsers}

type Stats struct {
	TotalConnections    uint64 `json:"total_connections"`
	TotalRooms          uint64 `json:"total_rooms"`
	TotalMessages       uint64 `json:"total_messages"`
	TotalFilesShared    uint64 `json:"total_files_shared"`
	PeakConcurrentUsers uint64 `json:"peak_concurrent_users"`
}

func (s *Stats) set(c Counter, v uint64) {
	switch c {
	case TotalConnections:
		s.TotalConnections = v
	case TotalRooms:
		s.TotalRooms = v
	case TotalMessages:
		s.TotalMessages = v
	case TotalFilesShared:
		s.TotalFilesShared = v
	case PeakConcurrentUsers:
		s.PeakConcurrentUsers = v
	}
}

// Get returns the value of counter c.
func (s Stats) Get(c Counter) uint64 {
	switch c {
	case TotalConnections:
		return s.TotalConnections
	case TotalRooms:
		return s.TotalRooms
	case TotalMessages:
		return s.TotalMessages
	case TotalFilesShared:
		return s.TotalFilesShared
	case PeakConcurrentUsers:
		return s.PeakConcurrentUsers
	default:
		return 0
	}
}

type OnlineUser struct {
	ConnID   string    `json:"connId"`
	Username string    `json:"username"`
	RoomID   string    `json:"roomId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Recorder is the fire-and-forget write side used by the signaling core.
// Implementations must not block the caller on storage.
type Recorder interface {
	LogSession(ev SessionEvent)
	Increment(c Counter)
	AddOnline(u OnlineUser)
	RemoveOnline(connID string)
}

// Reader is the dashboard read side.
type Reader interface {
	Stats() (Stats, error)
	RecentSessions(limit int) ([]SessionEvent, error)
	Online() ([]OnlineUser, error)
	UniqueUsers() (int, error)
}

// Store is durable analytics storage.
type Store interface {
	Reader
	SaveSession(ev SessionEvent) error
	IncrementCounter(c Counter, delta uint64) error
	PutOnline(u OnlineUser) error
	DeleteOnline(connID string) error
}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}

type discard struct{}

func (discard) LogSession(SessionEvent) {}
func (discard) Increment(Counter)       {}
func (discard) AddOnline(OnlineUser)    {}
func (discard) RemoveOnline(string)     {}
