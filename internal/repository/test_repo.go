package repository

import (
	"context"
	"regexp"
	"time"

	"ipasurvey/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TestFilter narrows an admin listing
type TestFilter struct {
	Search string // case-insensitive name prefix
	Skip   int64
	Limit  int64
}

// TestRepo handles MongoDB operations for tests
type TestRepo interface {
	Create(ctx context.Context, test *model.Test) (string, error)
	GetByID(ctx context.Context, id string) (*model.Test, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.Test, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter TestFilter) ([]*model.Test, int64, error)
	Update(ctx context.Context, test *model.Test) error
	Delete(ctx context.Context, id string) error
}

type testDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Template    primitive.ObjectID `bson:"template"`
	CreatedBy   string             `bson:"createdBy"`
	StartsAt    time.Time          `bson:"startsAt"`
	EndsAt      time.Time          `bson:"endsAt"`
	Active      bool               `bson:"active"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d *testDoc) toModel() *model.Test {
	return &model.Test{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		TemplateID:  hexOrEmpty(d.Template),
		CreatedBy:   d.CreatedBy,
		StartsAt:    d.StartsAt,
		EndsAt:      d.EndsAt,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
	}
}

type testRepo struct {
	collection *mongo.Collection
}

// NewTestRepo creates a new test repository
func NewTestRepo(db *mongo.Database) TestRepo {
	return &testRepo{
		collection: db.Collection(testsCollection),
	}
}

func (r *testRepo) Create(ctx context.Context, test *model.Test) (string, error) {
	tplID, ok := parseID(test.TemplateID)
	if !ok {
		return "", ErrNotFound
	}

	test.CreatedAt = time.Now().UTC()
	doc := testDoc{
		Name:        test.Name,
		Description: test.Description,
		Template:    tplID,
		CreatedBy:   test.CreatedBy,
		StartsAt:    test.StartsAt,
		EndsAt:      test.EndsAt,
		Active:      test.Active,
		CreatedAt:   test.CreatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	oid, _ := result.InsertedID.(primitive.ObjectID)
	test.ID = oid.Hex()
	return test.ID, nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (*model.Test, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	var doc testDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *testRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.Test, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := parseID(id); ok {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []*model.Test{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "startsAt", Value: 1}})
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, opts)
}

func (r *testRepo) Exists(ctx context.Context, id string) (bool, error) {
	oid, ok := parseID(id)
	if !ok {
		return false, nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *testRepo) List(ctx context.Context, filter TestFilter) ([]*model.Test, int64, error) {
	query := bson.M{}
	if filter.Search != "" {
		query["name"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(filter.Search), Options: "i"}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(filter.Skip).
		SetLimit(filter.Limit)
	tests, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return tests, total, nil
}

// Update overwrites the mutable fields. The template reference is never changed.
func (r *testRepo) Update(ctx context.Context, test *model.Test) error {
	oid, ok := parseID(test.ID)
	if !ok {
		return ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"name":        test.Name,
		"description": test.Description,
		"startsAt":    test.StartsAt,
		"endsAt":      test.EndsAt,
		"active":      test.Active,
	}}
	return matchedOrNotFound(r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update))
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	oid, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *testRepo) find(ctx context.Context, query interface{}, opts *options.FindOptions) ([]*model.Test, error) {
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []testDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	tests := make([]*model.Test, 0, len(docs))
	for i := range docs {
		tests = append(tests, docs[i].toModel())
	}
	return tests, nil
}
