package repository

import (
	"context"
	"errors"
	"fmt"

	"community_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomRepository definition chat room
type RoomRepository interface {
	// CreateRoom insert a new room, ErrAlreadyExists when the id is taken
	CreateRoom(ctx context.Context, room *domain.ChatRoom) error
	// FindByID ErrNotFound when absent
	FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error)
	// ListRooms rooms of owner, kind "" means all, newest activity first
	ListRooms(ctx context.Context, ownerID string, kind domain.RoomKind) ([]*domain.ChatRoom, error)
	// UpdateRoom replace the stored room, ErrNotFound when absent
	UpdateRoom(ctx context.Context, room *domain.ChatRoom) error
}

type chatRepository struct {
	roomsColl *mongo.Collection
}

// NewMongoChatRepository create new mongo chat
func NewMongoChatRepository(db *mongo.Database) RoomRepository {
	return &chatRepository{
		roomsColl: db.Collection("chat_rooms"),
	}
}

// EnsureRoomIndexes list query index
func EnsureRoomIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("chat_rooms").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "owner_id", Value: 1},
			{Key: "last_message_at", Value: -1},
			{Key: "created_at", Value: -1},
		},
	})
	return err
}

// CreateRoom create room
func (r *chatRepository) CreateRoom(ctx context.Context, room *domain.ChatRoom) error {
	_, err := r.roomsColl.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("room %s: %w", room.ID, domain.ErrAlreadyExists)
	}
	return err
}

// FindByID find room by id
func (r *chatRepository) FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.roomsColl.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms list rooms by owner
func (r *chatRepository) ListRooms(ctx context.Context, ownerID string, kind domain.RoomKind) ([]*domain.ChatRoom, error) {
	filter := bson.M{"owner_id": ownerID}
	if kind != "" {
		filter["kind"] = kind
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "last_message_at", Value: -1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: 1},
	})

	cur, err := r.roomsColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	rooms := make([]*domain.ChatRoom, 0)
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return rooms, nil
}

// UpdateRoom update room info
func (r *chatRepository) UpdateRoom(ctx context.Context, room *domain.ChatRoom) error {
	res, err := r.roomsColl.ReplaceOne(ctx, bson.M{"_id": room.ID}, room)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("room %s: %w", room.ID, domain.ErrNotFound)
	}
	return nil
}
