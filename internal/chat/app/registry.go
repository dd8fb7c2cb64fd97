package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relooped/supportchat/internal/chat/storage"
)

type senderType string

const (
	senderCustomer senderType = "customer"
	senderAdmin    senderType = "admin"
	senderSystem   senderType = "system"
)

type roomStatus string

const (
	statusWaiting roomStatus = "waiting"
	statusActive  roomStatus = "active"
	statusEnded   roomStatus = "ended"
)

var (
	errRoomNotActive      = errors.New("room is not active")
	errRoomAlreadyClaimed = errors.New("room is already claimed by another admin")
	errNotParticipant     = errors.New("not a participant of this room")
)

// supportRoom is one customer's conversation. All fields are guarded by mu;
// callers outside this file only ever see roomView copies.
type supportRoom struct {
	mu sync.Mutex

	id           string
	status       roomStatus
	customerRef  string
	customerName string
	adminRef     string
	adminName    string
	supportType  string
	description  string
	startedAt    time.Time
	endedAt      time.Time
	endedBy      string
	messages     []storage.Message

	customerPeer *wsPeer
	adminPeer    *wsPeer
}

// roomView is an immutable snapshot of a room taken under its lock. Frame
// writes happen against views so no lock is held while touching the network.
type roomView struct {
	ID           string
	Status       roomStatus
	CustomerRef  string
	CustomerName string
	AdminRef     string
	AdminName    string
	SupportType  string
	Description  string
	StartedAt    time.Time
	EndedAt      time.Time
	EndedBy      string
	Messages     []storage.Message

	CustomerPeer *wsPeer
	AdminPeer    *wsPeer
}

func (r *supportRoom) snapshotLocked() roomView {
	messages := make([]storage.Message, len(r.messages))
	copy(messages, r.messages)
	return roomView{
		ID:           r.id,
		Status:       r.status,
		CustomerRef:  r.customerRef,
		CustomerName: r.customerName,
		AdminRef:     r.adminRef,
		AdminName:    r.adminName,
		SupportType:  r.supportType,
		Description:  r.description,
		StartedAt:    r.startedAt,
		EndedAt:      r.endedAt,
		EndedBy:      r.endedBy,
		Messages:     messages,
		CustomerPeer: r.customerPeer,
		AdminPeer:    r.adminPeer,
	}
}

// roomRegistry owns every live room. rooms keeps ended rooms around as
// tombstones so late events resolve to errRoomNotActive instead of silently
// recreating state; byCustomer only indexes rooms that have not ended, which
// is what makes request_support idempotent per customer.
type roomRegistry struct {
	mu         sync.Mutex
	rooms      map[string]*supportRoom
	byCustomer map[string]string
}

func newRoomRegistry() *roomRegistry {
	return &roomRegistry{
		rooms:      make(map[string]*supportRoom),
		byCustomer: make(map[string]string),
	}
}

func (reg *roomRegistry) lookup(roomID string) (*supportRoom, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// requestSupport opens a room for the customer or resumes their existing
// non-ended one. The second return reports whether an existing room was
// resumed.
func (reg *roomRegistry) requestSupport(customer identity, supportType, description string, peer *wsPeer) (roomView, bool, error) {
	reg.mu.Lock()
	for {
		roomID, ok := reg.byCustomer[customer.UserID]
		if !ok {
			break
		}
		room := reg.rooms[roomID]
		reg.mu.Unlock()

		room.mu.Lock()
		if room.status == statusEnded {
			// A concurrent end_chat won the race; drop the stale index
			// entry and open a fresh room instead.
			room.mu.Unlock()
			reg.mu.Lock()
			if reg.byCustomer[customer.UserID] == roomID {
				delete(reg.byCustomer, customer.UserID)
			}
			continue
		}
		room.customerPeer = peer
		view := room.snapshotLocked()
		room.mu.Unlock()
		return view, true, nil
	}
	defer reg.mu.Unlock()

	roomID, err := newRoomID()
	if err != nil {
		return roomView{}, false, fmt.Errorf("generate room id: %w", err)
	}

	now := time.Now().UTC()
	room := &supportRoom{
		id:           roomID,
		status:       statusWaiting,
		customerRef:  customer.UserID,
		customerName: customer.Name,
		supportType:  supportType,
		description:  description,
		startedAt:    now,
		customerPeer: peer,
	}
	if description != "" {
		room.messages = append(room.messages, storage.Message{
			MessageID:  uuid.New().String(),
			SenderType: string(senderCustomer),
			Body:       description,
			SentAt:     now,
		})
	}

	reg.rooms[roomID] = room
	reg.byCustomer[customer.UserID] = roomID

	room.mu.Lock()
	view := room.snapshotLocked()
	room.mu.Unlock()
	return view, false, nil
}

// adminJoin claims a waiting room for the admin. Joining a room the same
// admin already holds is treated as a reconnect and succeeds.
func (reg *roomRegistry) adminJoin(roomID string, admin identity, peer *wsPeer) (roomView, error) {
	room, ok := reg.lookup(roomID)
	if !ok {
		return roomView{}, errRoomNotActive
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	switch room.status {
	case statusWaiting:
		room.status = statusActive
		room.adminRef = admin.UserID
		room.adminName = admin.Name
		room.adminPeer = peer
		return room.snapshotLocked(), nil
	case statusActive:
		if room.adminRef == admin.UserID {
			room.adminPeer = peer
			return room.snapshotLocked(), nil
		}
		return roomView{}, errRoomAlreadyClaimed
	default:
		return roomView{}, errRoomNotActive
	}
}

// appendMessage records a chat message in an active room and returns both the
// stored message and a fresh view for relaying it.
func (reg *roomRegistry) appendMessage(roomID string, sender senderType, actorRef, body string) (storage.Message, roomView, error) {
	room, ok := reg.lookup(roomID)
	if !ok {
		return storage.Message{}, roomView{}, errRoomNotActive
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status != statusActive {
		return storage.Message{}, roomView{}, errRoomNotActive
	}
	if !room.isParticipantLocked(sender, actorRef) {
		return storage.Message{}, roomView{}, errNotParticipant
	}

	msg := storage.Message{
		MessageID:  uuid.New().String(),
		SenderType: string(sender),
		Body:       body,
		SentAt:     time.Now().UTC(),
	}
	room.messages = append(room.messages, msg)
	if len(room.messages) > maxRoomMessages {
		room.messages = room.messages[len(room.messages)-maxRoomMessages:]
	}
	return msg, room.snapshotLocked(), nil
}

func (r *supportRoom) isParticipantLocked(sender senderType, actorRef string) bool {
	switch sender {
	case senderCustomer:
		return r.customerRef == actorRef
	case senderAdmin:
		return r.adminRef == actorRef
	default:
		return false
	}
}

// endChat moves a waiting or active room to its terminal state. Exactly one
// caller wins; the rest observe errRoomNotActive.
func (reg *roomRegistry) endChat(roomID string, endedBy string, actorRef string) (roomView, error) {
	room, ok := reg.lookup(roomID)
	if !ok {
		return roomView{}, errRoomNotActive
	}

	room.mu.Lock()
	if room.status == statusEnded {
		room.mu.Unlock()
		return roomView{}, errRoomNotActive
	}
	if room.customerRef != actorRef && room.adminRef != actorRef {
		room.mu.Unlock()
		return roomView{}, errNotParticipant
	}
	room.status = statusEnded
	room.endedAt = time.Now().UTC()
	room.endedBy = endedBy
	customerRef := room.customerRef
	view := room.snapshotLocked()
	room.mu.Unlock()

	reg.mu.Lock()
	if reg.byCustomer[customerRef] == roomID {
		delete(reg.byCustomer, customerRef)
	}
	reg.mu.Unlock()

	return view, nil
}

// customerLeave detaches the customer without changing room status; the room
// stays claimable and the admin is notified by the caller.
func (reg *roomRegistry) customerLeave(roomID string, customerRef string) (roomView, error) {
	room, ok := reg.lookup(roomID)
	if !ok {
		return roomView{}, errRoomNotActive
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status == statusEnded {
		return roomView{}, errRoomNotActive
	}
	if room.customerRef != customerRef {
		return roomView{}, errNotParticipant
	}
	room.customerPeer = nil
	return room.snapshotLocked(), nil
}

// adminLeave releases the admin's claim and puts an active room back in the
// waiting queue.
func (reg *roomRegistry) adminLeave(roomID string, adminRef string) (roomView, error) {
	room, ok := reg.lookup(roomID)
	if !ok {
		return roomView{}, errRoomNotActive
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status != statusActive {
		return roomView{}, errRoomNotActive
	}
	if room.adminRef != adminRef {
		return roomView{}, errNotParticipant
	}
	room.status = statusWaiting
	room.adminRef = ""
	room.adminName = ""
	room.adminPeer = nil
	return room.snapshotLocked(), nil
}

// rejoin reattaches a returning participant's connection to their non-ended
// room and returns a view carrying the full history.
func (reg *roomRegistry) rejoin(roomID string, who identity, peer *wsPeer) (roomView, error) {
	room, ok := reg.lookup(roomID)
	if !ok {
		return roomView{}, errRoomNotActive
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.status == statusEnded {
		return roomView{}, errRoomNotActive
	}
	switch {
	case !who.Admin && room.customerRef == who.UserID:
		room.customerPeer = peer
	case who.Admin && room.adminRef == who.UserID:
		room.adminPeer = peer
	default:
		return roomView{}, errNotParticipant
	}
	return room.snapshotLocked(), nil
}

// presenceAllowed reports whether a typing signal from the given sender is
// meaningful for the room. The sender must be the room's own participant;
// customers may type while waiting, admins only once the room is active.
func (reg *roomRegistry) presenceAllowed(roomID string, sender senderType, actorRef string) bool {
	room, ok := reg.lookup(roomID)
	if !ok {
		return false
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.isParticipantLocked(sender, actorRef) {
		return false
	}
	switch room.status {
	case statusActive:
		return true
	case statusWaiting:
		return sender == senderCustomer
	default:
		return false
	}
}

// view returns a snapshot of a room without mutating it.
func (reg *roomRegistry) view(roomID string) (roomView, bool) {
	room, ok := reg.lookup(roomID)
	if !ok {
		return roomView{}, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.snapshotLocked(), true
}

// activeRoomFor returns the customer's non-ended room, if any.
func (reg *roomRegistry) activeRoomFor(customerRef string) (roomView, bool) {
	reg.mu.Lock()
	roomID, ok := reg.byCustomer[customerRef]
	reg.mu.Unlock()
	if !ok {
		return roomView{}, false
	}
	return reg.view(roomID)
}

// waitingRooms lists rooms still waiting for an admin, for replaying the
// request queue to admins that connect late.
func (reg *roomRegistry) waitingRooms() []roomView {
	reg.mu.Lock()
	rooms := make([]*supportRoom, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()

	var waiting []roomView
	for _, room := range rooms {
		room.mu.Lock()
		if room.status == statusWaiting {
			waiting = append(waiting, room.snapshotLocked())
		}
		room.mu.Unlock()
	}
	return waiting
}

// detachPeer clears any room references to a closed connection so broadcasts
// stop targeting it. Room status is unaffected; dropping a socket is not the
// same as leaving.
func (reg *roomRegistry) detachPeer(peer *wsPeer) {
	reg.mu.Lock()
	rooms := make([]*supportRoom, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()

	for _, room := range rooms {
		room.mu.Lock()
		if room.customerPeer == peer {
			room.customerPeer = nil
		}
		if room.adminPeer == peer {
			room.adminPeer = nil
		}
		room.mu.Unlock()
	}
}
