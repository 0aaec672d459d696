package domain

// Action websocket request action
type Action string

const (
	// ListRooms websocket action list_rooms
	ListRooms Action = "list_rooms"
	// OpenRoom websocket action open_room
	OpenRoom Action = "open_room"

	// EnterRoom websocket action enter_room, mounts the expiry sweeper
	EnterRoom Action = "enter_room"
	// LeaveRoom websocket action leave_room, releases the expiry sweeper
	LeaveRoom Action = "leave_room"

	// AcceptRequest websocket action accept_request
	AcceptRequest Action = "accept_request"
	// RejectRequest websocket action reject_request
	RejectRequest Action = "reject_request"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// ReadMessage websocket action read_message
	ReadMessage Action = "read_message"
	// InjectBooking websocket action inject_booking
	InjectBooking Action = "inject_booking"

	// NotifyMessage server push: new message in an entered room
	NotifyMessage Action = "notify_message"
	// MessagesExpired server push: sweeper removed messages
	MessagesExpired Action = "messages_expired"
)

// WSRequest websocket Request
type WSRequest struct {
	Action  string          `json:"action"`
	RoomID  string          `json:"room_id"`
	Kind    string          `json:"kind"`
	Content string          `json:"content"`
	Hints   *OpenHints      `json:"hints,omitempty"`
	Booking *BookingPayload `json:"booking,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
}

// RoomEvent published on chat:room:<id> so every session viewing the room sees new messages
type RoomEvent struct {
	Action  Action       `json:"action"`
	RoomID  string       `json:"room_id"`
	Message *ChatMessage `json:"message,omitempty"`
	Removed []string     `json:"removed,omitempty"`
}

// RoomChannel redis channel of a room
func RoomChannel(roomID string) string {
	return "chat:room:" + roomID
}
