package repository

import (
	"context"
	"time"

	"ipasurvey/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GroupRepo handles MongoDB operations for student groups
type GroupRepo interface {
	Create(ctx context.Context, group *model.Group) (string, error)
	GetByID(ctx context.Context, id string) (*model.Group, error)
	List(ctx context.Context) ([]*model.Group, error)
	ListByMember(ctx context.Context, userID string) ([]*model.Group, error)
	Update(ctx context.Context, group *model.Group) error
	Delete(ctx context.Context, id string) error

	// AddMember and RemoveMember report whether membership changed
	AddMember(ctx context.Context, groupID, userID string) (bool, error)
	RemoveMember(ctx context.Context, groupID, userID string) (bool, error)

	// AssignTest replaces any existing assignment of the same test
	AssignTest(ctx context.Context, groupID string, assignment model.GroupTest) error
	UnassignTest(ctx context.Context, groupID, testID string) error
}

type groupTestDoc struct {
	Test       primitive.ObjectID `bson:"test"`
	AssignedAt time.Time          `bson:"assignedAt"`
	DueAt      *time.Time         `bson:"dueAt,omitempty"`
}

type groupDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Members     []string           `bson:"members"`
	Tests       []groupTestDoc     `bson:"tests"`
	CreatedBy   string             `bson:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *groupDoc) toModel() *model.Group {
	g := &model.Group{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Members:     d.Members,
		Tests:       make([]model.GroupTest, 0, len(d.Tests)),
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if g.Members == nil {
		g.Members = []string{}
	}
	for _, t := range d.Tests {
		g.Tests = append(g.Tests, model.GroupTest{TestID: t.Test.Hex(), AssignedAt: t.AssignedAt, DueAt: t.DueAt})
	}
	return g
}

type groupRepo struct {
	collection *mongo.Collection
}

// NewGroupRepo creates a new group repository
func NewGroupRepo(db *mongo.Database) GroupRepo {
	return &groupRepo{
		collection: db.Collection(groupsCollection),
	}
}

func (r *groupRepo) Create(ctx context.Context, group *model.Group) (string, error) {
	now := time.Now().UTC()
	doc := groupDoc{
		Name:        group.Name,
		Description: group.Description,
		Members:     []string{},
		Tests:       []groupTestDoc{},
		CreatedBy:   group.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	oid, _ := result.InsertedID.(primitive.ObjectID)
	group.ID = oid.Hex()
	group.Members = []string{}
	group.Tests = []model.GroupTest{}
	group.CreatedAt = now
	group.UpdatedAt = now
	return group.ID, nil
}

func (r *groupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	var doc groupDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *groupRepo) List(ctx context.Context) ([]*model.Group, error) {
	return r.find(ctx, bson.M{})
}

func (r *groupRepo) ListByMember(ctx context.Context, userID string) ([]*model.Group, error) {
	return r.find(ctx, bson.M{"members": userID})
}

func (r *groupRepo) Update(ctx context.Context, group *model.Group) error {
	oid, ok := parseID(group.ID)
	if !ok {
		return ErrNotFound
	}

	group.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":        group.Name,
		"description": group.Description,
		"updatedAt":   group.UpdatedAt,
	}}
	return matchedOrNotFound(r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update))
}

func (r *groupRepo) Delete(ctx context.Context, id string) error {
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

func (r *groupRepo) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	return r.changeMembers(ctx, groupID, bson.M{"$addToSet": bson.M{"members": userID}})
}

func (r *groupRepo) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	return r.changeMembers(ctx, groupID, bson.M{"$pull": bson.M{"members": userID}})
}

func (r *groupRepo) changeMembers(ctx context.Context, groupID string, update bson.M) (bool, error) {
	oid, ok := parseID(groupID)
	if !ok {
		return false, ErrNotFound
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return result.ModifiedCount > 0, nil
}

func (r *groupRepo) AssignTest(ctx context.Context, groupID string, assignment model.GroupTest) error {
	oid, ok := parseID(groupID)
	if !ok {
		return ErrNotFound
	}
	testID, ok := parseID(assignment.TestID)
	if !ok {
		return ErrNotFound
	}

	pull := bson.M{"$pull": bson.M{"tests": bson.M{"test": testID}}}
	if err := matchedOrNotFound(r.collection.UpdateOne(ctx, bson.M{"_id": oid}, pull)); err != nil {
		return err
	}

	push := bson.M{
		"$push": bson.M{"tests": groupTestDoc{Test: testID, AssignedAt: assignment.AssignedAt, DueAt: assignment.DueAt}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return matchedOrNotFound(r.collection.UpdateOne(ctx, bson.M{"_id": oid}, push))
}

func (r *groupRepo) UnassignTest(ctx context.Context, groupID, testID string) error {
	oid, ok := parseID(groupID)
	if !ok {
		return ErrNotFound
	}
	tid, ok := parseID(testID)
	if !ok {
		return nil
	}

	update := bson.M{
		"$pull": bson.M{"tests": bson.M{"test": tid}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return matchedOrNotFound(r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update))
}

func (r *groupRepo) find(ctx context.Context, query interface{}) ([]*model.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []groupDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	groups := make([]*model.Group, 0, len(docs))
	for i := range docs {
		groups = append(groups, docs[i].toModel())
	}
	return groups, nil
}
