package domain

import (
	"fmt"
	"time"
)

// RoomKind classify a conversation, immutable after creation
type RoomKind string

const (
	// RoomKindBusinessInquiry consumer asking a business (maternity service provider)
	RoomKindBusinessInquiry RoomKind = "business_inquiry"
	// RoomKindMarketplace conversation about a marketplace listing
	RoomKindMarketplace RoomKind = "marketplace"
	// RoomKindDirectMessage 1對1 chat between users, messages are ephemeral
	RoomKindDirectMessage RoomKind = "direct_message"
)

// Valid report whether k is a known kind
func (k RoomKind) Valid() bool {
	switch k {
	case RoomKindBusinessInquiry, RoomKindMarketplace, RoomKindDirectMessage:
		return true
	}
	return false
}

// RoomState conversation lifecycle state
type RoomState string

const (
	// RoomPending chat request waiting for accept or reject
	RoomPending RoomState = "pending"
	// RoomActive messages can be exchanged
	RoomActive RoomState = "active"
	// RoomRejected terminal, no more messages
	RoomRejected RoomState = "rejected"
)

// ChatRoom definition conversation owned by one actor's view
type ChatRoom struct {
	ID               string    `bson:"_id" json:"id"`
	OwnerID          string    `bson:"owner_id" json:"owner_id"`
	Kind             RoomKind  `bson:"kind" json:"kind"`
	ParticipantRef   string    `bson:"participant_ref" json:"participant_ref"`
	ParticipantName  string    `bson:"participant_name,omitempty" json:"participant_name,omitempty"`
	ParticipantImage string    `bson:"participant_image,omitempty" json:"participant_image,omitempty"`
	State            RoomState `bson:"state" json:"state"`

	UnreadCount        int       `bson:"unread_count" json:"unread_count"`
	LastMessagePreview string    `bson:"last_message_preview" json:"last_message_preview"`
	LastMessageAt      time.Time `bson:"last_message_at" json:"last_message_at"`
	LastSeq            int64     `bson:"last_seq" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// OpenHints seed data carried by an inbound open request
type OpenHints struct {
	Kind             RoomKind        `json:"kind"`
	CounterpartID    string          `json:"counterpart_id"`
	CounterpartName  string          `json:"counterpart_name"`
	CounterpartImage string          `json:"counterpart_image"`
	IsNewRequest     bool            `json:"is_new_request"`
	Booking          *BookingPayload `json:"booking,omitempty"`
}

// InitialState only a direct message opened by an inbound request waits for acceptance
func InitialState(kind RoomKind, inboundRequest bool) RoomState {
	if kind == RoomKindDirectMessage && inboundRequest {
		return RoomPending
	}
	return RoomActive
}

// IsEphemeral messages created now get an expiry
func (r *ChatRoom) IsEphemeral() bool {
	return r.Kind == RoomKindDirectMessage && r.State == RoomActive
}

// Accept pending -> active
func (r *ChatRoom) Accept() error {
	if r.State != RoomPending {
		return fmt.Errorf("accept from %s: %w", r.State, ErrInvalidTransition)
	}
	r.State = RoomActive
	return nil
}

// Reject pending -> rejected
func (r *ChatRoom) Reject() error {
	if r.State != RoomPending {
		return fmt.Errorf("reject from %s: %w", r.State, ErrInvalidTransition)
	}
	r.State = RoomRejected
	return nil
}

// CanSend only active rooms exchange messages
func (r *ChatRoom) CanSend() error {
	if r.State != RoomActive {
		return fmt.Errorf("room %s is %s: %w", r.ID, r.State, ErrNotActive)
	}
	return nil
}

// ApplyMessage recompute the denormalized summary after msg was appended
func (r *ChatRoom) ApplyMessage(msg *ChatMessage) {
	r.LastSeq = msg.Seq
	r.LastMessagePreview = msg.Preview()
	r.LastMessageAt = msg.CreatedAt
	r.UpdatedAt = msg.CreatedAt
	if msg.Sender == SenderCounterpart {
		r.UnreadCount++
	}
}
