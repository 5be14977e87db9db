package store

import (
	"context"
	"fmt"
	"time"

	errorskg "github.com/sweetpotato0/deskflow/errors"
	"github.com/sweetpotato0/deskflow/ticket"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements ticket.Store using MongoDB
type MongoStore struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	counters   *mongo.Collection
}

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns default MongoDB configuration
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "deskflow",
		Collection: "tickets",
	}
}

// mongoTicket is the internal representation for MongoDB
type mongoTicket struct {
	ID                string    `bson:"_id"`
	SessionID         string    `bson:"session_id"`
	IssueSummary      string    `bson:"issue_summary"`
	Category          string    `bson:"category"`
	Status            string    `bson:"status"`
	RefinedQuery      string    `bson:"refined_query"`
	Answer            string    `bson:"answer"`
	FeedbackRationale string    `bson:"feedback_rationale"`
	CreatedAt         time.Time `bson:"created_at"`
}

// NewMongoStore creates a new MongoDB-based ticket store
func NewMongoStore(config *MongoConfig) (*MongoStore, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(config.Database)
	store := &MongoStore{
		client:     client,
		db:         db,
		collection: db.Collection(config.Collection),
		counters:   db.Collection("counters"),
	}

	if err := store.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return store, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	}
	_, err := s.collection.Indexes().CreateOne(ctx, indexModel)
	return err
}

// nextSeq atomically increments the ticket counter document.
func (s *MongoStore) nextSeq(ctx context.Context) (int, error) {
	var doc struct {
		Seq int `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "tickets"},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate ticket id: %w", err)
	}
	return doc.Seq, nil
}

// Create assigns the next sequence ID and inserts the ticket
func (s *MongoStore) Create(ctx context.Context, t *ticket.Ticket) error {
	if err := t.Validate(); err != nil {
		return err
	}

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return err
	}

	t.ID = ticket.FormatID(seq)
	t.Status = ticket.StatusOpen
	t.CreatedAt = time.Now()

	doc := mongoTicket{
		ID:                t.ID,
		SessionID:         t.SessionID,
		IssueSummary:      t.IssueSummary,
		Category:          string(t.Category),
		Status:            t.Status,
		RefinedQuery:      t.RefinedQuery,
		Answer:            t.Answer,
		FeedbackRationale: t.FeedbackRationale,
		CreatedAt:         t.CreatedAt,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// Get retrieves a ticket by ID
func (s *MongoStore) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	var doc mongoTicket
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("ticket %s: %w", id, errorskg.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return fromMongo(&doc), nil
}

// List returns all tickets ordered by creation time
func (s *MongoStore) List(ctx context.Context) ([]*ticket.Ticket, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoTicket
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}

	tickets := make([]*ticket.Ticket, len(docs))
	for i := range docs {
		tickets[i] = fromMongo(&docs[i])
	}
	return tickets, nil
}

func fromMongo(doc *mongoTicket) *ticket.Ticket {
	return &ticket.Ticket{
		ID:                doc.ID,
		SessionID:         doc.SessionID,
		IssueSummary:      doc.IssueSummary,
		Category:          ticket.Category(doc.Category),
		Status:            doc.Status,
		RefinedQuery:      doc.RefinedQuery,
		Answer:            doc.Answer,
		FeedbackRationale: doc.FeedbackRationale,
		CreatedAt:         doc.CreatedAt,
	}
}

// Close closes the MongoDB connection
func (s *MongoStore) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.Disconnect(ctx)
}

// Ping checks if MongoDB connection is alive
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}
