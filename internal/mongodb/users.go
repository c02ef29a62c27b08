package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/supermancell/cinebuddy/internal/common"
)

// userDocument is the stored shape of a user in the users collection.
type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *userDocument) toUser() *common.User {
	return &common.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
	}
}

// CreateUser inserts a new user and sets user.ID. The email is stored
// normalized; a duplicate returns common.ErrEmailTaken.
func (c *Client) CreateUser(ctx context.Context, user *common.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = normalizeEmail(user.Email)

	doc := userDocument{
		ID:        primitive.NewObjectID(),
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	}

	if _, err := c.database.Collection(usersCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = doc.ID.Hex()
	return nil
}

// FindUserByEmail looks a user up by normalized email.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*common.User, error) {
	return c.findOneUser(ctx, bson.M{"email": normalizeEmail(email)})
}

// FindUserByID looks a user up by hex object ID. A malformed ID is reported
// as common.ErrUserNotFound.
func (c *Client) FindUserByID(ctx context.Context, id string) (*common.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrUserNotFound
	}
	return c.findOneUser(ctx, bson.M{"_id": oid})
}

func (c *Client) findOneUser(ctx context.Context, filter bson.M) (*common.User, error) {
	var doc userDocument
	err := c.database.Collection(usersCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toUser(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
