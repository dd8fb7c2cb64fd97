package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/relooped/supportchat/internal/chat/storage"
	"github.com/relooped/supportchat/internal/platform/timeouts"
)

type wsIdentityContextKey struct{}

type wsSession struct {
	identity identity
	peer     *wsPeer
	monitor  *connMonitor
}

// adminRoster tracks every connected admin console so queue updates
// (new_chat_request, room_status_update, remove_chat_request) reach all of
// them, not just the admin inside a room.
type adminRoster struct {
	mu    sync.Mutex
	peers map[*wsPeer]struct{}
}

func newAdminRoster() *adminRoster {
	return &adminRoster{peers: make(map[*wsPeer]struct{})}
}

func (r *adminRoster) register(peer *wsPeer) {
	r.mu.Lock()
	r.peers[peer] = struct{}{}
	r.mu.Unlock()
}

func (r *adminRoster) unregister(peer *wsPeer) {
	r.mu.Lock()
	delete(r.peers, peer)
	r.mu.Unlock()
}

func (r *adminRoster) broadcast(frame wsFrame) {
	r.mu.Lock()
	peers := make([]*wsPeer, 0, len(r.peers))
	for peer := range r.peers {
		peers = append(peers, peer)
	}
	r.mu.Unlock()

	for _, peer := range peers {
		_ = peer.writeFrame(frame)
	}
}

// chatCore holds the shared signaling state behind every websocket
// connection.
type chatCore struct {
	registry *roomRegistry
	presence *presenceTracker
	admins   *adminRoster
	store    storage.TranscriptStore
}

func newChatCore(store storage.TranscriptStore) *chatCore {
	core := &chatCore{
		registry: newRoomRegistry(),
		admins:   newAdminRoster(),
		store:    store,
	}
	core.presence = newPresenceTracker(presenceIdleTimeout, core.notifyPresence)
	return core
}

// notifyPresence relays a typing transition to the participant across the
// room from the sender.
func (c *chatCore) notifyPresence(roomID string, sender senderType, typing bool) {
	view, ok := c.registry.view(roomID)
	if !ok {
		return
	}

	var target *wsPeer
	var eventType string
	switch sender {
	case senderCustomer:
		target = view.AdminPeer
		eventType = evCustomerTyping
		if !typing {
			eventType = evCustomerStopped
		}
	case senderAdmin:
		target = view.CustomerPeer
		eventType = evAdminTyping
		if !typing {
			eventType = evAdminStopped
		}
	default:
		return
	}
	if target == nil {
		return
	}
	_ = target.writeFrame(wsFrame{
		Type:    eventType,
		Payload: mustJSON(roomIDPayload{RoomID: roomID}),
	})
}

// NewHandler creates chat routes for tests and offline paths.
// WebSocket auth is intentionally disabled in this constructor.
func NewHandler(store storage.TranscriptStore) http.Handler {
	return newHandler(newChatCore(store), nil, false)
}

// NewHandlerWithAuthorizer creates chat routes with enforced websocket
// identity checks.
func NewHandlerWithAuthorizer(store storage.TranscriptStore, authorizer wsAuthorizer) http.Handler {
	return newHandler(newChatCore(store), authorizer, true)
}

func newHandler(core *chatCore, authorizer wsAuthorizer, requireAuth bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/api/active-chat", core.handleActiveChat)

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		core.handleWSConn(conn)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if requireAuth {
			if authorizer == nil {
				http.Error(w, "websocket auth is not configured", http.StatusServiceUnavailable)
				return
			}

			sessionToken := sessionTokenFromRequest(r)
			if sessionToken == "" {
				log.Printf("chat: websocket unauthorized: missing %s cookie for host=%q remote=%s", sessionCookieName, r.Host, r.RemoteAddr)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			who, err := authorizer.Authenticate(r.Context(), sessionToken)
			if err != nil || strings.TrimSpace(who.UserID) == "" {
				log.Printf("chat: websocket unauthorized: session introspection failed for host=%q remote=%s err=%v", r.Host, r.RemoteAddr, err)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), wsIdentityContextKey{}, who)
			r = r.WithContext(ctx)
		}

		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func sessionTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

// identityFromConn resolves the connection identity. Authenticated
// connections carry it in the request context; otherwise it is read from
// handshake query parameters with a generated guest fallback.
func identityFromConn(conn *websocket.Conn) identity {
	request := conn.Request()
	if request == nil {
		return identity{UserID: "guest-" + uuid.New().String(), Name: "Guest"}
	}
	if who, ok := request.Context().Value(wsIdentityContextKey{}).(identity); ok && strings.TrimSpace(who.UserID) != "" {
		return who
	}

	query := request.URL.Query()
	userID := strings.TrimSpace(query.Get("user"))
	if userID == "" {
		userID = "guest-" + uuid.New().String()
	}
	name := strings.TrimSpace(query.Get("name"))
	if name == "" {
		name = userID
	}
	return identity{
		UserID: userID,
		Name:   name,
		Admin:  strings.EqualFold(strings.TrimSpace(query.Get("role")), "admin"),
	}
}

func (c *chatCore) handleWSConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	peer := newWSPeer(json.NewEncoder(conn))
	who := identityFromConn(conn)

	monitor := startConnMonitor(livenessPingInterval, livenessLostTimeout,
		func() {
			_ = peer.writeFrame(wsFrame{Type: evPingConnection})
		},
		func() {
			log.Printf("chat: connection lost for user=%q, closing socket", who.UserID)
			_ = conn.Close()
		})
	defer monitor.stop()
	defer c.registry.detachPeer(peer)

	session := &wsSession{identity: who, peer: peer, monitor: monitor}

	if who.Admin {
		c.admins.register(peer)
		defer c.admins.unregister(peer)
		c.replayWaitingRooms(peer)
	}

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(session.peer, "", codeInvalidPayload, "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(session.peer, frame.RequestID, codeRateLimited, "rate limit exceeded")
			return
		}

		if !allowedForRole(frame.Type, session.identity.Admin) {
			_ = writeWSError(session.peer, frame.RequestID, codeNotAuthorized, "event not permitted for this role")
			continue
		}

		switch frame.Type {
		case evRequestSupport:
			c.handleRequestSupport(session, frame)
		case evAdminJoinChat:
			c.handleAdminJoin(session, frame)
		case evChatMessage:
			c.handleChatMessage(session, frame)
		case evCustomerTyping, evAdminTyping:
			c.handleTyping(session, frame, true)
		case evCustomerStopped, evAdminStopped:
			c.handleTyping(session, frame, false)
		case evEndChat:
			c.handleEndChat(session, frame)
		case evCustomerLeave:
			c.handleCustomerLeave(session, frame)
		case evAdminLeaveChat:
			c.handleAdminLeave(session, frame)
		case evRejoinRoom:
			c.handleRejoin(session, frame)
		case evPingConnection:
			session.monitor.recordPong()
			_ = session.peer.writeFrame(wsFrame{Type: evPongConnection, RequestID: frame.RequestID})
		case evPongConnection:
			session.monitor.recordPong()
		default:
			_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "unsupported frame type")
		}
	}
}

func allowedForRole(eventType string, admin bool) bool {
	if _, ok := customerOnlyEvents[eventType]; ok {
		return !admin
	}
	if _, ok := adminOnlyEvents[eventType]; ok {
		return admin
	}
	return true
}

// replayWaitingRooms sends the current request queue to a newly connected
// admin so consoles that connect late still see pending customers.
func (c *chatCore) replayWaitingRooms(peer *wsPeer) {
	for _, view := range c.registry.waitingRooms() {
		_ = peer.writeFrame(newChatRequestFrame(view))
	}
}

func newChatRequestFrame(view roomView) wsFrame {
	return wsFrame{
		Type: evNewChatRequest,
		Payload: mustJSON(newChatRequestPayload{
			RoomID:       view.ID,
			CustomerName: view.CustomerName,
			StartTime:    view.StartedAt.UTC().Format(time.RFC3339),
			SupportType:  view.SupportType,
		}),
	}
}

func chatHistoryFrame(view roomView) wsFrame {
	messages := make([]wireMessage, 0, len(view.Messages))
	for _, msg := range view.Messages {
		messages = append(messages, wireMessage{
			MessageID:  msg.MessageID,
			Message:    msg.Body,
			SenderType: msg.SenderType,
			Timestamp:  msg.SentAt.UTC().Format(time.RFC3339),
		})
	}
	return wsFrame{
		Type: evChatHistory,
		Payload: mustJSON(chatHistoryPayload{
			RoomID:   view.ID,
			Messages: messages,
		}),
	}
}

var supportTypes = map[string]struct{}{
	"technical": {},
	"billing":   {},
	"account":   {},
	"general":   {},
}

// normalizeSupportType maps the requested category onto the known set.
// Anything unrecognized falls back to general, same as the storefront widget.
func normalizeSupportType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := supportTypes[value]; ok {
		return value
	}
	return "general"
}

func (c *chatCore) handleRequestSupport(session *wsSession, frame wsFrame) {
	var payload requestSupportPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "invalid request_support payload")
		return
	}

	description := strings.TrimSpace(payload.Description)
	if description == "" {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "description is required")
		return
	}
	if !utf8.ValidString(description) || utf8.RuneCountInString(description) > maxMessageBodyRunes {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "description is too long or not valid UTF-8")
		return
	}
	supportType := normalizeSupportType(payload.SupportType)

	view, resumed, err := c.registry.requestSupport(session.identity, supportType, description, session.peer)
	if err != nil {
		log.Printf("chat: failed to open support room for user=%q: %v", session.identity.UserID, err)
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "could not open support request")
		return
	}

	_ = session.peer.writeFrame(wsFrame{
		Type:      evSupportRequestAck,
		RequestID: frame.RequestID,
		Payload: mustJSON(supportRequestAckPayload{
			RoomID:  view.ID,
			Message: "Your support request has been received. An agent will be with you shortly.",
		}),
	})

	if resumed {
		_ = session.peer.writeFrame(chatHistoryFrame(view))
		return
	}
	c.admins.broadcast(newChatRequestFrame(view))
}

func (c *chatCore) handleAdminJoin(session *wsSession, frame wsFrame) {
	var payload roomIDPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || strings.TrimSpace(payload.RoomID) == "" {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "room_id is required")
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)

	view, err := c.registry.adminJoin(roomID, session.identity, session.peer)
	if err != nil {
		code := codeRoomNotActive
		message := "this chat is no longer available"
		if errors.Is(err, errRoomAlreadyClaimed) {
			code = codeRoomAlreadyClaimed
			message = "another agent is already handling this chat"
		}
		_ = session.peer.writeFrame(wsFrame{
			Type:      evJoinError,
			RequestID: frame.RequestID,
			Payload:   mustJSON(noticePayload{RoomID: roomID, Message: message}),
		})
		_ = writeWSError(session.peer, frame.RequestID, code, message)
		return
	}

	joined := wsFrame{
		Type: evAdminJoined,
		Payload: mustJSON(adminJoinedPayload{
			RoomID:  view.ID,
			Message: view.AdminName + " has joined the chat.",
		}),
	}
	history := chatHistoryFrame(view)
	for _, target := range []*wsPeer{view.CustomerPeer, view.AdminPeer} {
		if target == nil {
			continue
		}
		_ = target.writeFrame(joined)
		_ = target.writeFrame(history)
	}

	c.admins.broadcast(wsFrame{
		Type: evRoomStatusUpdate,
		Payload: mustJSON(roomStatusUpdatePayload{
			RoomID:    view.ID,
			Status:    string(statusActive),
			AdminName: view.AdminName,
		}),
	})
}

func (c *chatCore) handleChatMessage(session *wsSession, frame wsFrame) {
	var payload chatMessagePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || strings.TrimSpace(payload.RoomID) == "" {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "room_id is required")
		return
	}

	body := strings.TrimSpace(payload.Message)
	if body == "" {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "message is required")
		return
	}
	if !utf8.ValidString(body) || utf8.RuneCountInString(body) > maxMessageBodyRunes {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "message is too long or not valid UTF-8")
		return
	}

	roomID := strings.TrimSpace(payload.RoomID)
	sender := session.identity.senderType()
	msg, view, err := c.registry.appendMessage(roomID, sender, session.identity.UserID, body)
	if err != nil {
		if errors.Is(err, errNotParticipant) {
			_ = writeWSError(session.peer, frame.RequestID, codeNotAuthorized, "you are not a participant of this chat")
			return
		}
		_ = writeWSError(session.peer, frame.RequestID, codeRoomNotActive, "this chat is not active")
		return
	}

	// Sending a message implies the sender stopped typing.
	c.presence.clear(roomID, sender)

	_ = session.peer.writeFrame(wsFrame{
		Type:      evMessageAck,
		RequestID: frame.RequestID,
		Payload: mustJSON(messageAckPayload{
			RoomID:    roomID,
			MessageID: msg.MessageID,
			Timestamp: msg.SentAt.UTC().Format(time.RFC3339),
		}),
	})

	target := view.AdminPeer
	if sender == senderAdmin {
		target = view.CustomerPeer
	}
	if target == nil {
		return
	}
	_ = target.writeFrame(wsFrame{
		Type: evNewMessage,
		Payload: mustJSON(newMessagePayload{
			RoomID:     roomID,
			Message:    msg.Body,
			SenderType: msg.SenderType,
			Timestamp:  msg.SentAt.UTC().Format(time.RFC3339),
		}),
	})
}

func (c *chatCore) handleTyping(session *wsSession, frame wsFrame, typing bool) {
	var payload roomIDPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || strings.TrimSpace(payload.RoomID) == "" {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "room_id is required")
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)
	sender := session.identity.senderType()

	// Typing indicators are advisory, signals from non-participants or
	// against the wrong room state are dropped rather than errored.
	if !c.registry.presenceAllowed(roomID, sender, session.identity.UserID) {
		return
	}
	if typing {
		c.presence.set(roomID, sender)
		return
	}
	c.presence.clear(roomID, sender)
}

func (c *chatCore) handleEndChat(session *wsSession, frame wsFrame) {
	var payload endChatPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || strings.TrimSpace(payload.RoomID) == "" {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "room_id is required")
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)
	endedBy := string(session.identity.senderType())

	view, err := c.registry.endChat(roomID, endedBy, session.identity.UserID)
	if err != nil {
		if errors.Is(err, errNotParticipant) {
			_ = writeWSError(session.peer, frame.RequestID, codeNotAuthorized, "you are not a participant of this chat")
			return
		}
		_ = writeWSError(session.peer, frame.RequestID, codeRoomNotActive, "this chat has already ended")
		return
	}

	c.presence.clearRoom(roomID)

	ended := wsFrame{
		Type: evChatEnded,
		Payload: mustJSON(chatEndedPayload{
			RoomID:  roomID,
			Message: "This chat has been ended by the " + endedBy + ".",
			EndedBy: endedBy,
		}),
	}
	for _, target := range []*wsPeer{view.CustomerPeer, view.AdminPeer} {
		if target != nil {
			_ = target.writeFrame(ended)
		}
	}

	c.admins.broadcast(wsFrame{
		Type:    evRemoveChatRequest,
		Payload: mustJSON(roomIDPayload{RoomID: roomID}),
	})

	c.saveTranscript(view)
}

// saveTranscript persists the finished conversation in the background. The
// room is already ended; persistence failures are reported, never rolled
// back.
func (c *chatCore) saveTranscript(view roomView) {
	if c.store == nil {
		return
	}

	saving := wsFrame{
		Type:    evSavingChatHistory,
		Payload: mustJSON(roomIDPayload{RoomID: view.ID}),
	}
	for _, target := range []*wsPeer{view.CustomerPeer, view.AdminPeer} {
		if target != nil {
			_ = target.writeFrame(saving)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.TranscriptSave)
		defer cancel()

		saveErr := c.store.SaveTranscript(ctx, transcriptFromView(view))
		saved := chatHistorySavedPayload{RoomID: view.ID}
		if saveErr != nil {
			log.Printf("chat: failed to save transcript for room=%q: %v", view.ID, saveErr)
			saved.Error = "failed to save chat history"
			if view.AdminPeer != nil {
				_ = writeWSError(view.AdminPeer, "", codePersistenceFailure, "failed to save chat history")
			}
		}
		frame := wsFrame{Type: evChatHistorySaved, Payload: mustJSON(saved)}
		for _, target := range []*wsPeer{view.CustomerPeer, view.AdminPeer} {
			if target != nil {
				_ = target.writeFrame(frame)
			}
		}
	}()
}

func transcriptFromView(view roomView) storage.Transcript {
	return storage.Transcript{
		RoomID:       view.ID,
		CustomerRef:  view.CustomerRef,
		CustomerName: view.CustomerName,
		AdminRef:     view.AdminRef,
		AdminName:    view.AdminName,
		SupportType:  view.SupportType,
		Description:  view.Description,
		EndedBy:      view.EndedBy,
		StartedAt:    view.StartedAt,
		EndedAt:      view.EndedAt,
		Messages:     view.Messages,
	}
}

func (c *chatCore) handleCustomerLeave(session *wsSession, frame wsFrame) {
	var payload roomIDPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || strings.TrimSpace(payload.RoomID) == "" {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "room_id is required")
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)

	view, err := c.registry.customerLeave(roomID, session.identity.UserID)
	if err != nil {
		if errors.Is(err, errNotParticipant) {
			_ = writeWSError(session.peer, frame.RequestID, codeNotAuthorized, "you are not a participant of this chat")
			return
		}
		_ = writeWSError(session.peer, frame.RequestID, codeRoomNotActive, "this chat has already ended")
		return
	}

	if view.AdminPeer != nil {
		_ = view.AdminPeer.writeFrame(wsFrame{
			Type: evCustomerLeft,
			Payload: mustJSON(noticePayload{
				RoomID:  roomID,
				Message: view.CustomerName + " has left the chat.",
			}),
		})
	}
}

func (c *chatCore) handleAdminLeave(session *wsSession, frame wsFrame) {
	var payload roomIDPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || strings.TrimSpace(payload.RoomID) == "" {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "room_id is required")
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)

	view, err := c.registry.adminLeave(roomID, session.identity.UserID)
	if err != nil {
		if errors.Is(err, errNotParticipant) {
			_ = writeWSError(session.peer, frame.RequestID, codeNotAuthorized, "you are not handling this chat")
			return
		}
		_ = writeWSError(session.peer, frame.RequestID, codeRoomNotActive, "this chat is not active")
		return
	}

	c.presence.clearRoom(roomID)

	if view.CustomerPeer != nil {
		_ = view.CustomerPeer.writeFrame(wsFrame{
			Type: evAdminLeftChat,
			Payload: mustJSON(noticePayload{
				RoomID:  roomID,
				Message: "The support agent has left the chat. You may wait for another agent.",
			}),
		})
	}

	c.admins.broadcast(wsFrame{
		Type: evRoomStatusUpdate,
		Payload: mustJSON(roomStatusUpdatePayload{
			RoomID: roomID,
			Status: string(statusWaiting),
		}),
	})
}

func (c *chatCore) handleRejoin(session *wsSession, frame wsFrame) {
	var payload roomIDPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || strings.TrimSpace(payload.RoomID) == "" {
		_ = writeWSError(session.peer, frame.RequestID, codeInvalidPayload, "room_id is required")
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)

	view, err := c.registry.rejoin(roomID, session.identity, session.peer)
	if err != nil {
		if errors.Is(err, errNotParticipant) {
			_ = writeWSError(session.peer, frame.RequestID, codeNotAuthorized, "you are not a participant of this chat")
			return
		}
		_ = writeWSError(session.peer, frame.RequestID, codeRoomNotActive, "this chat is no longer available")
		return
	}

	_ = session.peer.writeFrame(chatHistoryFrame(view))
}

// handleActiveChat lets the storefront ask whether a customer already has an
// open conversation before opening the widget.
func (c *chatCore) handleActiveChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	customerRef := strings.TrimSpace(r.URL.Query().Get("user"))
	if customerRef == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}

	type activeChatResponse struct {
		HasActiveChat bool          `json:"has_active_chat"`
		RoomID        string        `json:"room_id,omitempty"`
		Status        string        `json:"status,omitempty"`
		Messages      []wireMessage `json:"messages,omitempty"`
	}

	response := activeChatResponse{}
	if view, ok := c.registry.activeRoomFor(customerRef); ok {
		messages := make([]wireMessage, 0, len(view.Messages))
		for _, msg := range view.Messages {
			messages = append(messages, wireMessage{
				MessageID:  msg.MessageID,
				Message:    msg.Body,
				SenderType: msg.SenderType,
				Timestamp:  msg.SentAt.UTC().Format(time.RFC3339),
			})
		}
		response = activeChatResponse{
			HasActiveChat: true,
			RoomID:        view.ID,
			Status:        string(view.Status),
			Messages:      messages,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("chat: failed to encode active chat response: %v", err)
	}
}
