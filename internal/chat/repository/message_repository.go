package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"community_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition conversation message log
type MessageRepository interface {
	// AppendMessage store msg and assign its per-room Seq.
	// A booking notice whose (date, time) is already visible in the room returns ErrDuplicateBooking.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error
	// FindMessages visible messages at now, ordered by Seq
	FindMessages(ctx context.Context, roomID string, now time.Time) ([]domain.ChatMessage, error)
	// FindBooking visible booking notice for the slot, ErrNotFound when absent
	FindBooking(ctx context.Context, roomID string, slot domain.BookingPayload, now time.Time) (*domain.ChatMessage, error)
	// DeleteExpired remove messages with ExpiresAt <= now, returns removed ids
	DeleteExpired(ctx context.Context, roomID string, now time.Time) ([]string, error)
	// DeleteMessage remove one message, a missing id is not an error
	DeleteMessage(ctx context.Context, roomID, msgID string) error
}

type chatMessageRepository struct {
	coll    *mongo.Collection
	seqColl *mongo.Collection
}

// NewMongoChatMessageRepository create a ChatMessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll:    db.Collection("chat_messages"),
		seqColl: db.Collection("chat_message_seq"),
	}
}

// EnsureMessageIndexes TTL on expires_at, read order, booking uniqueness
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("chat_messages").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// mongo 背景清除，讀取時仍需過濾
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "seq", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "booking.date", Value: 1},
				{Key: "booking.time", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"type": domain.MessageBookingNotice}),
		},
	})
	return err
}

func visibleFilter(roomID string, now time.Time) bson.M {
	return bson.M{
		"room_id": roomID,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$exists": false}},
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gt": now}},
		},
	}
}

func (r *chatMessageRepository) nextSeq(ctx context.Context, roomID string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.seqColl.FindOneAndUpdate(ctx,
		bson.M{"_id": roomID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next seq %s: %w", roomID, err)
	}
	return counter.Seq, nil
}

// AppendMessage - 寫入一筆聊天訊息
func (r *chatMessageRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	seq, err := r.nextSeq(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	msg.Seq = seq

	_, err = r.coll.InsertOne(ctx, msg)
	if err == nil || !mongo.IsDuplicateKeyError(err) || msg.Type != domain.MessageBookingNotice {
		return err
	}

	// 同時段的預約通知若已過期但 TTL 尚未清除，刪掉後重試一次
	del, derr := r.coll.DeleteMany(ctx, bson.M{
		"room_id":      msg.RoomID,
		"type":         domain.MessageBookingNotice,
		"booking.date": msg.Booking.Date,
		"booking.time": msg.Booking.Time,
		"expires_at":   bson.M{"$lte": msg.CreatedAt},
	})
	if derr != nil {
		return derr
	}
	if del.DeletedCount == 0 {
		return fmt.Errorf("booking %s %s: %w", msg.Booking.Date, msg.Booking.Time, domain.ErrDuplicateBooking)
	}
	if _, err = r.coll.InsertOne(ctx, msg); mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("booking %s %s: %w", msg.Booking.Date, msg.Booking.Time, domain.ErrDuplicateBooking)
	}
	return err
}

func (r *chatMessageRepository) FindMessages(ctx context.Context, roomID string, now time.Time) ([]domain.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cur, err := r.coll.Find(ctx, visibleFilter(roomID, now), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	messages := make([]domain.ChatMessage, 0)
	if err := cur.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	// TTL monitor 與 $gt 之間仍可能有邊界誤差
	return domain.FilterExpired(messages, now), nil
}

func (r *chatMessageRepository) FindBooking(ctx context.Context, roomID string, slot domain.BookingPayload, now time.Time) (*domain.ChatMessage, error) {
	filter := visibleFilter(roomID, now)
	filter["type"] = domain.MessageBookingNotice
	filter["booking.date"] = slot.Date
	filter["booking.time"] = slot.Time

	var msg domain.ChatMessage
	err := r.coll.FindOne(ctx, filter).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatMessageRepository) DeleteExpired(ctx context.Context, roomID string, now time.Time) ([]string, error) {
	filter := bson.M{
		"room_id":    roomID,
		"expires_at": bson.M{"$lte": now},
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if _, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *chatMessageRepository) DeleteMessage(ctx context.Context, roomID, msgID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": msgID, "room_id": roomID})
	return err
}
