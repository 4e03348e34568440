package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatRepository wraps the chat_messages collection backing the
// supplemented conversational-memory feature (SPEC_FULL.md §5).
type ChatRepository struct {
	coll *mongo.Collection
}

// Append inserts msg.
func (r *ChatRepository) Append(ctx context.Context, msg *ChatMessage) error {
	_, err := r.coll.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// Recent returns the last `limit` messages for chatID, oldest first, for
// building an LLM context window.
func (r *ChatRepository) Recent(ctx context.Context, chatID string, limit int64) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := r.coll.Find(ctx, bson.M{"chat_id": chatID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer cur.Close(ctx)

	var msgs []ChatMessage
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode chat messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
