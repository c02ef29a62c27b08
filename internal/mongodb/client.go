package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/supermancell/cinebuddy/internal/logging"
)

const (
	connectTimeout = 10 * time.Second
	// defaultDatabase matches the driver convention when the URI names none.
	defaultDatabase = "test"

	usersCollection = "users"
)

// Client wraps the MongoDB client and the application database.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewClient connects to MongoDB, verifies the connection with a ping and
// ensures the indexes the application relies on. An empty dbName selects
// the database named in uri.
func NewClient(ctx context.Context, uri, dbName string) (*Client, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if dbName == "" {
		dbName = cs.Database
	}
	if dbName == "" {
		dbName = defaultDatabase
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	c := &Client{
		client:   client,
		database: client.Database(dbName),
	}

	if err := c.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log := logging.WithComponent("mongodb")
	log.Info().Strs("hosts", cs.Hosts).Str("database", dbName).Msg("MongoDB Connected")
	return c, nil
}

func (c *Client) ensureIndexes(ctx context.Context) error {
	_, err := c.database.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection
func (c *Client) Close() error {
	return c.client.Disconnect(context.Background())
}
