package ws

import (
	"errors"
	"sync"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomID derives the broadcast room key for a project. One room per
// project; file- and element-scoped events are disambiguated inside the
// payload, not by separate rooms.
func RoomID(projectID string) string {
	return "project-" + projectID
}

type room struct {
	id      string
	clients map[string]*Client // connection id → client

	// typing is ephemeral per-(room, user) state, overwritten on every
	// typing event. There is no expiry: a lost isTyping:false leaves the
	// flag stale until the next update or room deletion.
	typing map[string]bool
}

// Registry maps room ids to membership sets. Rooms are created lazily on
// first join and deleted as soon as the last member leaves. Nothing here
// survives a restart.
//
// The registry lock also covers every client's rooms set, which keeps a
// connection's membership view and the reverse mapping consistent with each
// other on join/leave/disconnect.
type Registry struct {
	rooms map[string]*room
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
	}
}

// Join adds the client to a room, creating it on first use. Idempotent:
// joining twice has no additional effect. Returns true when membership
// actually changed.
func (r *Registry) Join(c *Client, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{
			id:      roomID,
			clients: make(map[string]*Client),
			typing:  make(map[string]bool),
		}
		r.rooms[roomID] = rm
	}

	if _, exists := rm.clients[c.ID]; exists {
		return false
	}

	rm.clients[c.ID] = c
	c.rooms[roomID] = struct{}{}
	return true
}

// Leave removes the client from a room. Idempotent; no error when the
// client was never a member. Empty rooms are deleted on the spot.
func (r *Registry) Leave(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(c, roomID)
}

func (r *Registry) leaveLocked(c *Client, roomID string) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}

	if _, exists := rm.clients[c.ID]; !exists {
		return
	}

	delete(rm.clients, c.ID)
	delete(c.rooms, roomID)

	if len(rm.clients) == 0 {
		delete(r.rooms, roomID)
	}
}

// RemoveAll drops the client from every room it joined and returns the
// room ids it left. Used by disconnect cleanup.
func (r *Registry) RemoveAll(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		left = append(left, roomID)
		r.leaveLocked(c, roomID)
	}

	return left
}

// MembersExcluding returns the fan-out targets for exclude-sender events.
func (r *Registry) MembersExcluding(roomID, senderID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	members := make([]*Client, 0, len(rm.clients))
	for id, cl := range rm.clients {
		if id == senderID {
			continue
		}
		members = append(members, cl)
	}

	return members
}

// AllMembers returns the fan-out targets for include-all events and
// server-originated announcements.
func (r *Registry) AllMembers(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	members := make([]*Client, 0, len(rm.clients))
	for _, cl := range rm.clients {
		members = append(members, cl)
	}

	return members
}

// Broadcast delivers a message to the room under the read lock, so a
// concurrent leave or disconnect can never interleave with target
// selection: a removed connection is never delivered to, and a connection
// that joined before the broadcast is never omitted.
func (r *Registry) Broadcast(roomID string, msg *Message, policy Policy, senderID string) (delivered, dropped int, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return 0, 0, ErrRoomNotFound
	}

	for id, cl := range rm.clients {
		if policy == ExcludeSender && id == senderID {
			continue
		}
		if cl.deliver(msg) {
			delivered++
		} else {
			dropped++
		}
	}

	return delivered, dropped, nil
}

// SetTyping records the ephemeral typing flag for a user in a room.
func (r *Registry) SetTyping(roomID, user string, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}

	if isTyping {
		rm.typing[user] = true
	} else {
		delete(rm.typing, user)
	}
}

// TypingUsers returns the users currently flagged as typing in a room.
func (r *Registry) TypingUsers(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	users := make([]string, 0, len(rm.typing))
	for u := range rm.typing {
		users = append(users, u)
	}

	return users
}

// RoomCount reports the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

// MemberCount reports the membership size of one room; zero when the room
// does not exist.
func (r *Registry) MemberCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return 0
	}

	return len(rm.clients)
}

// Rooms returns the room ids the client is currently a member of.
func (r *Registry) Rooms(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}

	return ids
}
