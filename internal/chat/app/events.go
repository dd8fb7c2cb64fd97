package server

import (
	"encoding/json"
	"log"
)

// Event names shared by both client roles. The customer widget and the admin
// console speak the same protocol; role-scoped subsets below decide who may
// emit what.
const (
	evRequestSupport    = "request_support"
	evSupportRequestAck = "support_request_acknowledged"
	evNewChatRequest    = "new_chat_request"
	evAdminJoinChat     = "admin_join_chat"
	evAdminJoined       = "admin_joined"
	evRoomStatusUpdate  = "room_status_update"
	evChatMessage       = "chat_message"
	evNewMessage        = "new_message"
	evMessageAck        = "message_ack"
	evCustomerTyping    = "customer_typing"
	evCustomerStopped   = "customer_stopped_typing"
	evAdminTyping       = "admin_typing"
	evAdminStopped      = "admin_stopped_typing"
	evEndChat           = "end_chat"
	evChatEnded         = "chat_ended"
	evSavingChatHistory = "saving_chat_history"
	evChatHistorySaved  = "chat_history_saved"
	evCustomerLeave     = "customer_leave"
	evCustomerLeft      = "customer_left"
	evAdminLeaveChat    = "admin_leave_chat"
	evAdminLeftChat     = "admin_left_chat"
	evRemoveChatRequest = "remove_chat_request"
	evChatHistory       = "chat_history"
	evRejoinRoom        = "rejoin_room"
	evPingConnection    = "ping_connection"
	evPongConnection    = "pong_connection"
	evJoinError         = "join_error"
	evError             = "error"
)

// Protocol error codes surfaced to the originating connection only.
const (
	codeInvalidPayload     = "INVALID_PAYLOAD"
	codeRoomNotActive      = "ROOM_NOT_ACTIVE"
	codeRoomAlreadyClaimed = "ROOM_ALREADY_CLAIMED"
	codePersistenceFailure = "PERSISTENCE_FAILURE"
	codeNotAuthorized      = "NOT_AUTHORIZED"
	codeRateLimited        = "RATE_LIMITED"
)

// roleFor maps inbound event names to the connection role allowed to emit
// them. Events absent from the map are open to both roles.
var customerOnlyEvents = map[string]struct{}{
	evRequestSupport:  {},
	evCustomerTyping:  {},
	evCustomerStopped: {},
	evCustomerLeave:   {},
}

var adminOnlyEvents = map[string]struct{}{
	evAdminJoinChat:  {},
	evAdminTyping:    {},
	evAdminStopped:   {},
	evAdminLeaveChat: {},
}

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type requestSupportPayload struct {
	SupportType string `json:"supportType"`
	Description string `json:"description"`
}

type supportRequestAckPayload struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

type newChatRequestPayload struct {
	RoomID       string `json:"room_id"`
	CustomerName string `json:"customer_name"`
	StartTime    string `json:"start_time"`
	SupportType  string `json:"supportType"`
}

type roomIDPayload struct {
	RoomID string `json:"room_id"`
}

type adminJoinedPayload struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

type roomStatusUpdatePayload struct {
	RoomID    string `json:"room_id"`
	Status    string `json:"status"`
	AdminName string `json:"admin_name,omitempty"`
}

type chatMessagePayload struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

type newMessagePayload struct {
	RoomID     string `json:"room_id"`
	Message    string `json:"message"`
	SenderType string `json:"sender_type"`
	Timestamp  string `json:"timestamp"`
}

type messageAckPayload struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Timestamp string `json:"timestamp"`
}

type endChatPayload struct {
	RoomID  string `json:"room_id"`
	EndedBy string `json:"ended_by"`
}

type chatEndedPayload struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
	EndedBy string `json:"ended_by"`
}

type chatHistorySavedPayload struct {
	RoomID string `json:"room_id"`
	Error  string `json:"error,omitempty"`
}

type noticePayload struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

type wireMessage struct {
	MessageID  string `json:"message_id"`
	Message    string `json:"message"`
	SenderType string `json:"sender_type"`
	Timestamp  string `json:"timestamp"`
}

type chatHistoryPayload struct {
	RoomID   string        `json:"room_id"`
	Messages []wireMessage `json:"messages"`
}

func writeWSError(peer *wsPeer, requestID string, code string, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      evError,
		RequestID: requestID,
		Payload: mustJSON(errorPayload{
			Code:    code,
			Message: message,
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
