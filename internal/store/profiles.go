package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProfileRepository wraps the profiles collection.
type ProfileRepository struct {
	coll *mongo.Collection
}

// DuplicateField names the unique sparse index that rejected a write, for
// errorsx.Conflict-style translation into DuplicateProfile(field).
type DuplicateField string

const (
	DuplicateFieldEmail      DuplicateField = "email"
	DuplicateFieldWhatsAppID DuplicateField = "whatsapp_id"
	DuplicateFieldUserID     DuplicateField = "user_id"
)

// Create inserts profile. A unique-index violation is translated into a
// DuplicateField the caller can map to *DuplicateProfile (spec §4.6).
func (r *ProfileRepository) Create(ctx context.Context, p *Profile) (DuplicateField, error) {
	p.ID = primitive.NewObjectID()
	_, err := r.coll.InsertOne(ctx, p)
	if err == nil {
		return "", nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return duplicateFieldFromError(err, p), err
	}
	return "", fmt.Errorf("insert profile: %w", err)
}

func duplicateFieldFromError(err error, p *Profile) DuplicateField {
	msg := err.Error()
	switch {
	case contains(msg, "email"):
		return DuplicateFieldEmail
	case contains(msg, "whatsapp_id"):
		return DuplicateFieldWhatsAppID
	case contains(msg, "user_id"):
		return DuplicateFieldUserID
	default:
		return ""
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// GetByID fetches a profile by its hex ObjectID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var p Profile
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// GetByEmail, GetByWhatsAppID, GetByUserID round out the unique-identifier
// lookups named by spec §8's round-trip property.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return r.findOneBy(ctx, bson.M{"email": email})
}

func (r *ProfileRepository) GetByWhatsAppID(ctx context.Context, whatsappID string) (*Profile, error) {
	return r.findOneBy(ctx, bson.M{"whatsapp_id": whatsappID})
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*Profile, error) {
	return r.findOneBy(ctx, bson.M{"user_id": userID})
}

func (r *ProfileRepository) findOneBy(ctx context.Context, filter bson.M) (*Profile, error) {
	var p Profile
	err := r.coll.FindOne(ctx, filter).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

// Update persists a full replacement of profile (used after full_name
// derivation and role-set mutation).
func (r *ProfileRepository) Update(ctx context.Context, p *Profile) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
