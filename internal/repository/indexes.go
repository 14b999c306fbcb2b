package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	templatesCollection = "templates"
	testsCollection     = "tests"
	responsesCollection = "test_responses"
	groupsCollection    = "groups"
)

var (
	// ErrNotFound is returned by mutations whose target document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateResponse is returned when (test, user) already has a response
	ErrDuplicateResponse = errors.New("response already exists for this test and user")
)

type indexDef struct {
	collection string
	keys       bson.D
	unique     bool
}

var indexes = []indexDef{
	{templatesCollection, bson.D{{Key: "closedQuestions._id", Value: 1}}, false},
	{testsCollection, bson.D{{Key: "name", Value: 1}}, false},
	{testsCollection, bson.D{{Key: "template", Value: 1}}, false},
	{testsCollection, bson.D{{Key: "startsAt", Value: 1}}, false},
	{testsCollection, bson.D{{Key: "endsAt", Value: 1}}, false},
	{testsCollection, bson.D{{Key: "active", Value: 1}}, false},
	{responsesCollection, bson.D{{Key: "test", Value: 1}, {Key: "user", Value: 1}}, true},
	{responsesCollection, bson.D{{Key: "user", Value: 1}}, false},
	{groupsCollection, bson.D{{Key: "members", Value: 1}}, false},
}

// EnsureIndexes creates every index the repositories rely on. Only the
// unique response index is fatal; the rest are logged and skipped.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *slog.Logger) error {
	for _, idx := range indexes {
		if err := createIndex(ctx, db.Collection(idx.collection), idx.keys, idx.unique); err != nil {
			if idx.unique {
				return fmt.Errorf("failed to create unique index on %s: %w", idx.collection, err)
			}
			logger.Warn("failed to create index", "collection", idx.collection, "error", err)
		}
	}
	logger.Info("indexes ensured", "count", len(indexes))
	return nil
}

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) error {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	return err
}

// parseID converts a hex id; ok is false for malformed input so lookups
// can treat it as "not found" rather than a server error.
func parseID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func hexOrEmpty(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}
