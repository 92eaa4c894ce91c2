package room

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_JoinAndCollision(t *testing.T) {
	r := NewRegistry()

	created, err := r.AddParticipant("r1", "c1", "alice")
	require.NoError(t, err)
	require.True(t, created)

	_, err = r.AddParticipant("r1", "c2", "alice")
	require.ErrorIs(t, err, ErrUsernameTaken)

	created, err = r.AddParticipant("r1", "c2", "Alice")
	require.NoError(t, err, "usernames compare case-sensitively")
	require.False(t, created)

	require.Equal(t, []Participant{{ID: "c1", Username: "alice"}, {ID: "c2", Username: "Alice"}}, r.ParticipantsOf("r1"))
	require.Equal(t, 1, r.RoomCount())
}

func TestRegistry_SameUsernameDifferentRooms(t *testing.T) {
	r := NewRegistry()

	_, err := r.AddParticipant("r1", "c1", "alice")
	require.NoError(t, err)
	_, err = r.AddParticipant("r2", "c2", "alice")
	require.NoError(t, err)
	require.Equal(t, 2, r.RoomCount())
}

func TestRegistry_AlreadyMember(t *testing.T) {
	r := NewRegistry()

	_, err := r.AddParticipant("r1", "c1", "alice")
	require.NoError(t, err)
	_, err = r.AddParticipant("r1", "c1", "bob")
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestRegistry_JoinReportsOthersBeforeInsert(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Join("r1", Participant{ID: "c1", Username: "alice"}, nil))
	require.NoError(t, r.Join("r1", Participant{ID: "c2", Username: "bob"}, nil))

	var got JoinResult
	require.NoError(t, r.Join("r1", Participant{ID: "c3", Username: "carol"}, func(res JoinResult) {
		got = res
	}))
	require.False(t, got.Created)
	require.Equal(t, []Participant{{ID: "c1", Username: "alice"}, {ID: "c2", Username: "bob"}}, got.Others)
}

func TestRegistry_Rejoin(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Join("r1", Participant{ID: "c1", Username: "alice"}, nil))
	require.NoError(t, r.Join("r1", Participant{ID: "c2", Username: "bob"}, nil))
	require.NoError(t, r.Join("r1", Participant{ID: "c3", Username: "carol"}, nil))

	err := r.Rejoin("r1", Participant{ID: "c1", Username: "bob"}, func(LeaveResult, JoinResult) {
		t.Fatalf("callback ran for a rejected rejoin")
	})
	require.ErrorIs(t, err, ErrUsernameTaken)
	require.Equal(t, []Participant{
		{ID: "c1", Username: "alice"},
		{ID: "c2", Username: "bob"},
		{ID: "c3", Username: "carol"},
	}, r.ParticipantsOf("r1"))

	var left LeaveResult
	var joined JoinResult
	require.NoError(t, r.Rejoin("r1", Participant{ID: "c1", Username: "alicia"}, func(l LeaveResult, j JoinResult) {
		left, joined = l, j
	}))
	require.Equal(t, Participant{ID: "c1", Username: "alice"}, left.Participant)
	require.False(t, left.Deleted)
	require.Equal(t, left.Remaining, joined.Others)
	require.Equal(t, []Participant{
		{ID: "c2", Username: "bob"},
		{ID: "c3", Username: "carol"},
		{ID: "c1", Username: "alicia"},
	}, r.ParticipantsOf("r1"))

	// Keeping one's own name is allowed.
	require.NoError(t, r.Rejoin("r1", Participant{ID: "c2", Username: "bob"}, nil))

	require.ErrorIs(t, r.Rejoin("r1", Participant{ID: "c9", Username: "zed"}, nil), ErrNotMember)
	require.ErrorIs(t, r.Rejoin("missing", Participant{ID: "c1", Username: "alice"}, nil), ErrNotMember)
	require.Nil(t, r.ParticipantsOf("missing"))
}

func TestRegistry_LeaveDeletesEmptyRoom(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddParticipant("r1", "c1", "alice")
	require.NoError(t, err)
	_, err = r.AddParticipant("r1", "c2", "bob")
	require.NoError(t, err)

	var res LeaveResult
	require.True(t, r.Leave("r1", "c1", func(lr LeaveResult) { res = lr }))
	require.False(t, res.Deleted)
	require.Equal(t, Participant{ID: "c1", Username: "alice"}, res.Participant)
	require.Equal(t, []Participant{{ID: "c2", Username: "bob"}}, res.Remaining)

	remaining, removed := r.RemoveParticipant("r1", "c2")
	require.True(t, removed)
	require.Zero(t, remaining)
	require.Zero(t, r.RoomCount())
	require.Nil(t, r.ParticipantsOf("r1"))
	require.Empty(t, r.Snapshot())

	// The freed username is usable again and the room is new.
	created, err := r.AddParticipant("r1", "c3", "alice")
	require.NoError(t, err)
	require.True(t, created)
}

func TestRegistry_LeaveUnknown(t *testing.T) {
	r := NewRegistry()
	require.False(t, r.Leave("missing", "c1", nil))

	_, err := r.AddParticipant("r1", "c1", "alice")
	require.NoError(t, err)
	_, removed := r.RemoveParticipant("r1", "c9")
	require.False(t, removed)
	require.Equal(t, 1, r.RoomCount())
}

func TestRegistry_ListOthers(t *testing.T) {
	r := NewRegistry()
	for i, name := range []string{"alice", "bob", "carol"} {
		_, err := r.AddParticipant("r1", fmt.Sprintf("c%d", i+1), name)
		require.NoError(t, err)
	}

	require.Equal(t, []Participant{{ID: "c1", Username: "alice"}, {ID: "c3", Username: "carol"}}, r.ListOthers("r1", "c2"))
	require.Len(t, r.ListOthers("r1", "nobody"), 3)
	require.Empty(t, r.ListOthers("missing", "c1"))
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	_, _ = r.AddParticipant("beta", "c1", "alice")
	_, _ = r.AddParticipant("alpha", "c2", "bob")
	_, _ = r.AddParticipant("alpha", "c3", "carol")

	require.Equal(t, []Info{
		{RoomID: "alpha", Users: []string{"bob", "carol"}, UserCount: 2},
		{RoomID: "beta", Users: []string{"alice"}, UserCount: 1},
	}, r.Snapshot())
}

func TestRegistry_ConcurrentSameUsernameOneWins(t *testing.T) {
	r := NewRegistry()

	const n = 32
	var (
		wg      sync.WaitGroup
		wins    atomic.Int32
		creates atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := r.Join("lobby", Participant{ID: fmt.Sprintf("c%d", i), Username: "alice"}, func(res JoinResult) {
				if res.Created {
					creates.Add(1)
				}
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrUsernameTaken):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
	require.EqualValues(t, 1, creates.Load())
	require.Len(t, r.ParticipantsOf("lobby"), 1)
}

func TestRegistry_ConcurrentChurnLeavesNoEmptyRooms(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", i)
			roomID := fmt.Sprintf("r%d", i%3)
			for j := 0; j < 100; j++ {
				if err := r.Join(roomID, Participant{ID: connID, Username: connID}, nil); err != nil {
					t.Errorf("join %s/%s: %v", roomID, connID, err)
					return
				}
				if !r.Leave(roomID, connID, nil) {
					t.Errorf("leave %s/%s: not a member", roomID, connID)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	require.Zero(t, r.RoomCount())
	require.Empty(t, r.Snapshot())
	r.mu.Lock()
	require.Empty(t, r.rooms)
	r.mu.Unlock()
}

func TestRegistry_CreatedOncePerLifetime(t *testing.T) {
	r := NewRegistry()

	var creates atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", i)
			_ = r.Join("shared", Participant{ID: connID, Username: connID}, func(res JoinResult) {
				if res.Created {
					creates.Add(1)
				}
			})
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, creates.Load())
	require.Len(t, r.ParticipantsOf("shared"), 20)
}
