package repository

import (
	"context"
	"fmt"
	"time"

	"ipasurvey/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ResponseRepo handles MongoDB operations for test responses. Responses are
// append-only: there is no update or delete.
type ResponseRepo interface {
	// Create returns ErrDuplicateResponse when the (test, user) index rejects the insert
	Create(ctx context.Context, resp *model.Response) (string, error)
	ExistsForUser(ctx context.Context, testID, userID string) (bool, error)
	GetByTest(ctx context.Context, testID string) ([]*model.Response, error)
	GetByUser(ctx context.Context, userID string) ([]*model.Response, error)
	// RawAnswersByTest returns the closed answers of every response to the test,
	// one slice per response. Documents that cannot be decoded are counted in
	// skipped and left out.
	RawAnswersByTest(ctx context.Context, testID string) (answers [][]model.RawAnswer, skipped int, err error)
}

type closedAnswerDoc struct {
	QuestionID primitive.ObjectID `bson:"questionId"`
	Value      int                `bson:"value"`
}

type responseDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Test          primitive.ObjectID `bson:"test"`
	User          string             `bson:"user"`
	ClosedAnswers []closedAnswerDoc  `bson:"closedAnswers"`
	OpenAnswer    *string            `bson:"openAnswer"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func (d *responseDoc) toModel() *model.Response {
	resp := &model.Response{
		ID:            d.ID.Hex(),
		TestID:        hexOrEmpty(d.Test),
		UserID:        d.User,
		ClosedAnswers: make([]model.ClosedAnswer, 0, len(d.ClosedAnswers)),
		OpenAnswer:    d.OpenAnswer,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, a := range d.ClosedAnswers {
		resp.ClosedAnswers = append(resp.ClosedAnswers, model.ClosedAnswer{QuestionID: a.QuestionID.Hex(), Value: a.Value})
	}
	return resp
}

// rawResponseDoc keeps each answer undecoded so a bad element only drops itself
type rawResponseDoc struct {
	ClosedAnswers []bson.RawValue `bson:"closedAnswers"`
}

type rawAnswerDoc struct {
	QuestionID interface{} `bson:"questionId"`
	Value      interface{} `bson:"value"`
}

// decodeRawAnswers skips elements that are not answer subdocuments
func decodeRawAnswers(elems []bson.RawValue) (answers []model.RawAnswer, dropped int) {
	answers = make([]model.RawAnswer, 0, len(elems))
	for _, elem := range elems {
		if elem.Type != bson.TypeEmbeddedDocument {
			dropped++
			continue
		}
		var a rawAnswerDoc
		if err := elem.Unmarshal(&a); err != nil {
			dropped++
			continue
		}
		answers = append(answers, model.RawAnswer{QuestionID: rawQuestionID(a.QuestionID), Value: a.Value})
	}
	return answers, dropped
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection(responsesCollection),
	}
}

func (r *responseRepo) Create(ctx context.Context, resp *model.Response) (string, error) {
	testID, ok := parseID(resp.TestID)
	if !ok {
		return "", fmt.Errorf("invalid test id %q", resp.TestID)
	}

	now := time.Now().UTC()
	doc := responseDoc{
		Test:          testID,
		User:          resp.UserID,
		ClosedAnswers: make([]closedAnswerDoc, 0, len(resp.ClosedAnswers)),
		OpenAnswer:    resp.OpenAnswer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, a := range resp.ClosedAnswers {
		qid, ok := parseID(a.QuestionID)
		if !ok {
			return "", fmt.Errorf("invalid question id %q", a.QuestionID)
		}
		doc.ClosedAnswers = append(doc.ClosedAnswers, closedAnswerDoc{QuestionID: qid, Value: a.Value})
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrDuplicateResponse
	}
	if err != nil {
		return "", err
	}

	oid, _ := result.InsertedID.(primitive.ObjectID)
	resp.ID = oid.Hex()
	resp.CreatedAt = now
	resp.UpdatedAt = now
	return resp.ID, nil
}

func (r *responseRepo) ExistsForUser(ctx context.Context, testID, userID string) (bool, error) {
	oid, ok := parseID(testID)
	if !ok {
		return false, nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"test": oid, "user": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *responseRepo) GetByTest(ctx context.Context, testID string) ([]*model.Response, error) {
	oid, ok := parseID(testID)
	if !ok {
		return []*model.Response{}, nil
	}
	return r.find(ctx, bson.M{"test": oid})
}

func (r *responseRepo) GetByUser(ctx context.Context, userID string) ([]*model.Response, error) {
	return r.find(ctx, bson.M{"user": userID})
}

func (r *responseRepo) RawAnswersByTest(ctx context.Context, testID string) ([][]model.RawAnswer, int, error) {
	oid, ok := parseID(testID)
	if !ok {
		return nil, 0, nil
	}

	opts := options.Find().SetProjection(bson.M{"closedAnswers": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"test": oid}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var (
		out     [][]model.RawAnswer
		skipped int
	)
	for cursor.Next(ctx) {
		var doc rawResponseDoc
		if err := cursor.Decode(&doc); err != nil {
			skipped++
			continue
		}
		answers, _ := decodeRawAnswers(doc.ClosedAnswers)
		out = append(out, answers)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}
	return out, skipped, nil
}

func (r *responseRepo) find(ctx context.Context, query interface{}) ([]*model.Response, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []responseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	responses := make([]*model.Response, 0, len(docs))
	for i := range docs {
		responses = append(responses, docs[i].toModel())
	}
	return responses, nil
}

// rawQuestionID accepts both ObjectID and hex-string references
func rawQuestionID(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return ""
	}
}
