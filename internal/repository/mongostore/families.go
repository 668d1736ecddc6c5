package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type memberDoc struct {
	User     string    `bson:"user"`
	Role     string    `bson:"role"`
	JoinedAt time.Time `bson:"joined_at"`
}

type invitationDoc struct {
	Email     string    `bson:"email"`
	Role      string    `bson:"role"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type familyDoc struct {
	ID                 primitive.ObjectID `bson:"_id"`
	Name               string             `bson:"name"`
	Members            []memberDoc        `bson:"members"`
	PendingInvitations []invitationDoc    `bson:"pending_invitations"`
	CreatedBy          string             `bson:"created_by"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

func familyToDoc(f *models.Family, id primitive.ObjectID) familyDoc {
	doc := familyDoc{
		ID:                 id,
		Name:               f.Name,
		Members:            make([]memberDoc, 0, len(f.Members)),
		PendingInvitations: make([]invitationDoc, 0, len(f.PendingInvitations)),
		CreatedBy:          f.CreatedBy,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
	for _, m := range f.Members {
		doc.Members = append(doc.Members, memberDoc{User: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt})
	}
	for _, inv := range f.PendingInvitations {
		doc.PendingInvitations = append(doc.PendingInvitations, invitationDoc{
			Email:     inv.Email,
			Role:      string(inv.Role),
			Token:     inv.Token,
			ExpiresAt: inv.ExpiresAt,
		})
	}
	return doc
}

func (d familyDoc) toModel() *models.Family {
	f := &models.Family{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		Members:            make([]models.FamilyMember, 0, len(d.Members)),
		PendingInvitations: make([]models.Invitation, 0, len(d.PendingInvitations)),
		CreatedBy:          d.CreatedBy,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	for _, m := range d.Members {
		f.Members = append(f.Members, models.FamilyMember{UserID: m.User, Role: models.Role(m.Role), JoinedAt: m.JoinedAt})
	}
	for _, inv := range d.PendingInvitations {
		f.PendingInvitations = append(f.PendingInvitations, models.Invitation{
			Email:     inv.Email,
			Role:      models.Role(inv.Role),
			Token:     inv.Token,
			ExpiresAt: inv.ExpiresAt,
		})
	}
	return f
}

// FamilyStore persists families with embedded members and invitations
type FamilyStore struct {
	c *mongo.Collection
}

// NewFamilyStore creates a family store on db
func NewFamilyStore(db *mongo.Database) *FamilyStore {
	return &FamilyStore{c: db.Collection(database.FamiliesCollection)}
}

// Create inserts family, assigning its ID and timestamps
func (s *FamilyStore) Create(ctx context.Context, family *models.Family) error {
	now := time.Now().UTC()
	family.CreatedAt = now
	family.UpdatedAt = now
	family.PurgeExpiredInvitations(now)

	doc := familyToDoc(family, primitive.NewObjectID())
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	family.ID = doc.ID.Hex()
	return nil
}

// Save replaces the stored family document. Expired invitations are purged
// before writing.
func (s *FamilyStore) Save(ctx context.Context, family *models.Family) error {
	oid, err := primitive.ObjectIDFromHex(family.ID)
	if err != nil {
		return fmt.Errorf("failed to save family: invalid id %q", family.ID)
	}
	now := time.Now().UTC()
	family.UpdatedAt = now
	family.PurgeExpiredInvitations(now)

	if _, err := s.c.ReplaceOne(ctx, bson.M{"_id": oid}, familyToDoc(family, oid)); err != nil {
		return fmt.Errorf("failed to save family: %w", err)
	}
	return nil
}

// GetByID returns the family with id, or nil
func (s *FamilyStore) GetByID(ctx context.Context, id string) (*models.Family, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// ListByMember returns every family listing userID as a member
func (s *FamilyStore) ListByMember(ctx context.Context, userID string) ([]models.Family, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"members.user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer cur.Close(ctx)

	families := []models.Family{}
	for cur.Next(ctx) {
		var doc familyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode family: %w", err)
		}
		families = append(families, *doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate families: %w", err)
	}
	return families, nil
}

// FindByInvitationToken returns the family holding an unexpired invitation
// with token, or nil
func (s *FamilyStore) FindByInvitationToken(ctx context.Context, token string, now time.Time) (*models.Family, error) {
	return s.findOne(ctx, bson.M{
		"pending_invitations": bson.M{
			"$elemMatch": bson.M{
				"token":      token,
				"expires_at": bson.M{"$gt": now.UTC()},
			},
		},
	})
}

func (s *FamilyStore) findOne(ctx context.Context, filter bson.M) (*models.Family, error) {
	var doc familyDoc
	err := s.c.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return doc.toModel(), nil
}
