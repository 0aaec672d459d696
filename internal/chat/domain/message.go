package domain

import (
	"fmt"
	"time"
)

// SenderRef who wrote a message, relative to the room owner
type SenderRef string

const (
	// SenderSelf the room owner
	SenderSelf SenderRef = "self"
	// SenderCounterpart the other side of the conversation
	SenderCounterpart SenderRef = "counterpart"
	// SenderSystem generated by the service
	SenderSystem SenderRef = "system"
)

// MessageType how a message is rendered
type MessageType string

const (
	// MessageText free text
	MessageText MessageType = "text"
	// MessageSystemNotice state change announcement
	MessageSystemNotice MessageType = "system_notice"
	// MessageBookingNotice structured appointment confirmation
	MessageBookingNotice MessageType = "booking_notice"
)

// BookingPayload confirmed appointment carried by a booking notice
type BookingPayload struct {
	Date         string `bson:"date" json:"date"` // 格式："2024-03-01"
	Time         string `bson:"time" json:"time"` // 格式："10:00"
	ServiceLabel string `bson:"service_label" json:"service_label"`
}

// SameSlot booking identity is the (date, time) pair
func (b BookingPayload) SameSlot(o BookingPayload) bool {
	return b.Date == o.Date && b.Time == o.Time
}

// ChatMessage 表示一則聊天訊息
type ChatMessage struct {
	ID        string          `bson:"_id" json:"id"`
	RoomID    string          `bson:"room_id" json:"room_id"`
	Seq       int64           `bson:"seq" json:"seq"`
	Sender    SenderRef       `bson:"sender" json:"sender"`
	Type      MessageType     `bson:"type" json:"type"`
	Body      string          `bson:"body,omitempty" json:"body,omitempty"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	ExpiresAt *time.Time      `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	Booking   *BookingPayload `bson:"booking,omitempty" json:"booking,omitempty"`
}

// Expired expiry is inclusive: a message is gone once now >= ExpiresAt
func (m *ChatMessage) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}

// Preview short text for the conversation list
func (m *ChatMessage) Preview() string {
	if m.Type == MessageBookingNotice && m.Booking != nil {
		return fmt.Sprintf("[booking] %s %s %s", m.Booking.ServiceLabel, m.Booking.Date, m.Booking.Time)
	}
	return m.Body
}

// FilterExpired drop messages whose TTL has passed, order is kept
func FilterExpired(msgs []ChatMessage, now time.Time) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if !m.Expired(now) {
			out = append(out, m)
		}
	}
	return out
}
