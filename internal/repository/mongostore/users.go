// Package mongostore implements the user, family and task stores on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"
	"familytasks/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	FirstName    string             `bson:"first_name"`
	LastName     string             `bson:"last_name"`
	Role         string             `bson:"role"`
	GoogleID     string             `bson:"google_id,omitempty"`
	RefreshToken string             `bson:"refresh_token,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (d userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Role:         models.Role(d.Role),
		GoogleID:     d.GoogleID,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserStore persists users in the users collection
type UserStore struct {
	c *mongo.Collection
}

// NewUserStore creates a user store on db
func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{c: db.Collection(database.UsersCollection)}
}

// Create inserts user, assigning its ID and timestamps
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         string(user.Role),
		GoogleID:     user.GoogleID,
		RefreshToken: user.RefreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		if database.IsDuplicateKey(err) {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = doc.ID.Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID returns the user with id, or nil if none exists
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// GetByEmail returns the user registered with email, or nil
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// GetByGoogleID returns the user linked to googleID, or nil
func (s *UserStore) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"google_id": googleID})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	err := s.c.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toModel(), nil
}

// SetRefreshToken stores the user's current refresh token; empty clears it
func (s *UserStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if token == "" {
		update["$unset"] = bson.M{"refresh_token": ""}
	} else {
		update["$set"].(bson.M)["refresh_token"] = token
	}
	return s.updateByID(ctx, userID, update, "failed to update refresh token")
}

// LinkGoogleID attaches a Google account to an existing user
func (s *UserStore) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	update := bson.M{"$set": bson.M{"google_id": googleID, "updated_at": time.Now().UTC()}}
	return s.updateByID(ctx, userID, update, "failed to link google account")
}

func (s *UserStore) updateByID(ctx context.Context, userID string, update bson.M, msg string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("%s: invalid id %q", msg, userID)
	}
	if _, err := s.c.UpdateByID(ctx, oid, update); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}
