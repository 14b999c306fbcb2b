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

// TemplateRepo handles MongoDB operations for question templates
type TemplateRepo interface {
	Create(ctx context.Context, tpl *model.Template) (string, error)
	GetByID(ctx context.Context, id string) (*model.Template, error)
	List(ctx context.Context) ([]*model.Template, error)
	Update(ctx context.Context, tpl *model.Template) error
	Delete(ctx context.Context, id string) error

	AddQuestion(ctx context.Context, templateID string, q *model.ClosedQuestion) error
	UpdateQuestion(ctx context.Context, q *model.ClosedQuestion) error
	DeleteQuestion(ctx context.Context, questionID string) error

	// FindQuestionType looks a closed question up across all templates.
	// found is false when no template contains the id.
	FindQuestionType(ctx context.Context, questionID string) (qt model.QuestionType, found bool, err error)
}

type closedQuestionDoc struct {
	ID   primitive.ObjectID `bson:"_id"`
	Text string             `bson:"text"`
	Type model.QuestionType `bson:"type"`
}

type openQuestionDoc struct {
	Text string `bson:"text"`
}

type templateDoc struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty"`
	Name            string              `bson:"name"`
	Description     string              `bson:"description"`
	ClosedQuestions []closedQuestionDoc `bson:"closedQuestions"`
	OpenQuestion    *openQuestionDoc    `bson:"openQuestion"`
	CreatedBy       string              `bson:"createdBy"`
	CreatedAt       time.Time           `bson:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt"`
}

func (d *templateDoc) toModel() *model.Template {
	tpl := &model.Template{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Description:     d.Description,
		ClosedQuestions: make([]model.ClosedQuestion, 0, len(d.ClosedQuestions)),
		CreatedBy:       d.CreatedBy,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	for _, q := range d.ClosedQuestions {
		tpl.ClosedQuestions = append(tpl.ClosedQuestions, model.ClosedQuestion{ID: q.ID.Hex(), Text: q.Text, Type: q.Type})
	}
	if d.OpenQuestion != nil {
		tpl.OpenQuestion = &model.OpenQuestion{Text: d.OpenQuestion.Text}
	}
	return tpl
}

func openQuestionToDoc(q *model.OpenQuestion) *openQuestionDoc {
	if q == nil {
		return nil
	}
	return &openQuestionDoc{Text: q.Text}
}

type templateRepo struct {
	collection *mongo.Collection
}

// NewTemplateRepo creates a new template repository
func NewTemplateRepo(db *mongo.Database) TemplateRepo {
	return &templateRepo{
		collection: db.Collection(templatesCollection),
	}
}

// Create stores the template and writes the generated ids back into tpl
func (r *templateRepo) Create(ctx context.Context, tpl *model.Template) (string, error) {
	now := time.Now().UTC()
	doc := templateDoc{
		Name:            tpl.Name,
		Description:     tpl.Description,
		ClosedQuestions: make([]closedQuestionDoc, 0, len(tpl.ClosedQuestions)),
		OpenQuestion:    openQuestionToDoc(tpl.OpenQuestion),
		CreatedBy:       tpl.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range tpl.ClosedQuestions {
		oid := primitive.NewObjectID()
		tpl.ClosedQuestions[i].ID = oid.Hex()
		doc.ClosedQuestions = append(doc.ClosedQuestions, closedQuestionDoc{
			ID:   oid,
			Text: tpl.ClosedQuestions[i].Text,
			Type: tpl.ClosedQuestions[i].Type,
		})
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	oid, _ := result.InsertedID.(primitive.ObjectID)
	tpl.ID = oid.Hex()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	return tpl.ID, nil
}

func (r *templateRepo) GetByID(ctx context.Context, id string) (*model.Template, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	var doc templateDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *templateRepo) List(ctx context.Context) ([]*model.Template, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []templateDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	templates := make([]*model.Template, 0, len(docs))
	for i := range docs {
		templates = append(templates, docs[i].toModel())
	}
	return templates, nil
}

// Update overwrites name, description and the open question. Closed
// questions are only changed through the question methods.
func (r *templateRepo) Update(ctx context.Context, tpl *model.Template) error {
	oid, ok := parseID(tpl.ID)
	if !ok {
		return ErrNotFound
	}

	tpl.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":         tpl.Name,
		"description":  tpl.Description,
		"openQuestion": openQuestionToDoc(tpl.OpenQuestion),
		"updatedAt":    tpl.UpdatedAt,
	}}
	return matchedOrNotFound(r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update))
}

func (r *templateRepo) Delete(ctx context.Context, id string) error {
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

func (r *templateRepo) AddQuestion(ctx context.Context, templateID string, q *model.ClosedQuestion) error {
	oid, ok := parseID(templateID)
	if !ok {
		return ErrNotFound
	}

	qid := primitive.NewObjectID()
	update := bson.M{
		"$push": bson.M{"closedQuestions": closedQuestionDoc{ID: qid, Text: q.Text, Type: q.Type}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	if err := matchedOrNotFound(r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)); err != nil {
		return err
	}
	q.ID = qid.Hex()
	return nil
}

func (r *templateRepo) UpdateQuestion(ctx context.Context, q *model.ClosedQuestion) error {
	qid, ok := parseID(q.ID)
	if !ok {
		return ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"closedQuestions.$.text": q.Text,
		"closedQuestions.$.type": q.Type,
		"updatedAt":              time.Now().UTC(),
	}}
	return matchedOrNotFound(r.collection.UpdateOne(ctx, bson.M{"closedQuestions._id": qid}, update))
}

func (r *templateRepo) DeleteQuestion(ctx context.Context, questionID string) error {
	qid, ok := parseID(questionID)
	if !ok {
		return ErrNotFound
	}

	update := bson.M{
		"$pull": bson.M{"closedQuestions": bson.M{"_id": qid}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return matchedOrNotFound(r.collection.UpdateOne(ctx, bson.M{"closedQuestions._id": qid}, update))
}

func (r *templateRepo) FindQuestionType(ctx context.Context, questionID string) (model.QuestionType, bool, error) {
	qid, ok := parseID(questionID)
	if !ok {
		return "", false, nil
	}

	var doc struct {
		ClosedQuestions []closedQuestionDoc `bson:"closedQuestions"`
	}
	opts := options.FindOne().SetProjection(bson.M{"closedQuestions.$": 1})
	err := r.collection.FindOne(ctx, bson.M{"closedQuestions._id": qid}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(doc.ClosedQuestions) == 0 {
		return "", false, nil
	}
	return doc.ClosedQuestions[0].Type, true, nil
}

func matchedOrNotFound(result *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
