package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ipasurvey/internal/model"
	"ipasurvey/internal/repository"
)

var idSeq atomic.Int64

// newID returns a unique 24-hex id shaped like a Mongo ObjectID
func newID() string {
	return fmt.Sprintf("%024x", idSeq.Add(1))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*model.Template
	lookups   int
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[string]*model.Template)}
}

func (r *fakeTemplateRepo) Create(ctx context.Context, tpl *model.Template) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl.ID = newID()
	for i := range tpl.ClosedQuestions {
		tpl.ClosedQuestions[i].ID = newID()
	}
	tpl.CreatedAt = time.Now().UTC()
	tpl.UpdatedAt = tpl.CreatedAt
	cp := *tpl
	cp.ClosedQuestions = append([]model.ClosedQuestion(nil), tpl.ClosedQuestions...)
	r.templates[tpl.ID] = &cp
	return tpl.ID, nil
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*model.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *tpl
	cp.ClosedQuestions = append([]model.ClosedQuestion(nil), tpl.ClosedQuestions...)
	return &cp, nil
}

func (r *fakeTemplateRepo) List(ctx context.Context) ([]*model.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Template, 0, len(r.templates))
	for _, tpl := range r.templates {
		out = append(out, tpl)
	}
	return out, nil
}

func (r *fakeTemplateRepo) Update(ctx context.Context, tpl *model.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.templates[tpl.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Name = tpl.Name
	existing.Description = tpl.Description
	existing.OpenQuestion = tpl.OpenQuestion
	return nil
}

func (r *fakeTemplateRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

func (r *fakeTemplateRepo) AddQuestion(ctx context.Context, templateID string, q *model.ClosedQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[templateID]
	if !ok {
		return repository.ErrNotFound
	}
	q.ID = newID()
	tpl.ClosedQuestions = append(tpl.ClosedQuestions, *q)
	return nil
}

func (r *fakeTemplateRepo) UpdateQuestion(ctx context.Context, q *model.ClosedQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tpl := range r.templates {
		if existing := tpl.Question(q.ID); existing != nil {
			existing.Text = q.Text
			existing.Type = q.Type
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeTemplateRepo) DeleteQuestion(ctx context.Context, questionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tpl := range r.templates {
		for i, q := range tpl.ClosedQuestions {
			if q.ID == questionID {
				tpl.ClosedQuestions = append(tpl.ClosedQuestions[:i], tpl.ClosedQuestions[i+1:]...)
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (r *fakeTemplateRepo) FindQuestionType(ctx context.Context, questionID string) (model.QuestionType, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	for _, tpl := range r.templates {
		if q := tpl.Question(questionID); q != nil {
			return q.Type, true, nil
		}
	}
	return "", false, nil
}

type fakeTestRepo struct {
	mu    sync.Mutex
	tests map[string]*model.Test
	reads int
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{tests: make(map[string]*model.Test)}
}

func (r *fakeTestRepo) Create(ctx context.Context, test *model.Test) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	test.ID = newID()
	test.CreatedAt = time.Now().UTC()
	cp := *test
	r.tests[test.ID] = &cp
	return test.ID, nil
}

func (r *fakeTestRepo) GetByID(ctx context.Context, id string) (*model.Test, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	test, ok := r.tests[id]
	if !ok {
		return nil, nil
	}
	cp := *test
	return &cp, nil
}

func (r *fakeTestRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.Test, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Test{}
	for _, id := range ids {
		if test, ok := r.tests[id]; ok {
			cp := *test
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTestRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tests[id]
	return ok, nil
}

func (r *fakeTestRepo) List(ctx context.Context, filter repository.TestFilter) ([]*model.Test, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*model.Test
	for _, test := range r.tests {
		if strings.HasPrefix(strings.ToLower(test.Name), strings.ToLower(filter.Search)) {
			matched = append(matched, test)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	start := filter.Skip
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *fakeTestRepo) Update(ctx context.Context, test *model.Test) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tests[test.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *test
	r.tests[test.ID] = &cp
	return nil
}

func (r *fakeTestRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tests, id)
	return nil
}

type storedResponse struct {
	resp *model.Response
	raw  []model.RawAnswer
}

// fakeResponseRepo enforces (test, user) uniqueness the way the unique index does
type fakeResponseRepo struct {
	mu        sync.Mutex
	stored    []storedResponse
	undecoded map[string]int
	failNext  error
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{undecoded: make(map[string]int)}
}

func (r *fakeResponseRepo) Create(ctx context.Context, resp *model.Response) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return "", err
	}
	for _, s := range r.stored {
		if s.resp.TestID == resp.TestID && s.resp.UserID == resp.UserID {
			return "", repository.ErrDuplicateResponse
		}
	}

	resp.ID = newID()
	resp.CreatedAt = time.Now().UTC()
	resp.UpdatedAt = resp.CreatedAt
	raw := make([]model.RawAnswer, 0, len(resp.ClosedAnswers))
	for _, a := range resp.ClosedAnswers {
		raw = append(raw, model.RawAnswer{QuestionID: a.QuestionID, Value: int32(a.Value)})
	}
	cp := *resp
	r.stored = append(r.stored, storedResponse{resp: &cp, raw: raw})
	return resp.ID, nil
}

// insertRaw stores answers as they might exist in legacy documents
func (r *fakeResponseRepo) insertRaw(testID, userID string, raw ...model.RawAnswer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, storedResponse{
		resp: &model.Response{ID: newID(), TestID: testID, UserID: userID},
		raw:  raw,
	})
}

func (r *fakeResponseRepo) ExistsForUser(ctx context.Context, testID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stored {
		if s.resp.TestID == testID && s.resp.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeResponseRepo) GetByTest(ctx context.Context, testID string) ([]*model.Response, error) {
	return r.filter(func(resp *model.Response) bool { return resp.TestID == testID }), nil
}

func (r *fakeResponseRepo) GetByUser(ctx context.Context, userID string) ([]*model.Response, error) {
	return r.filter(func(resp *model.Response) bool { return resp.UserID == userID }), nil
}

func (r *fakeResponseRepo) filter(keep func(*model.Response) bool) []*model.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Response{}
	for _, s := range r.stored {
		if keep(s.resp) {
			cp := *s.resp
			out = append(out, &cp)
		}
	}
	return out
}

func (r *fakeResponseRepo) RawAnswersByTest(ctx context.Context, testID string) ([][]model.RawAnswer, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]model.RawAnswer
	for _, s := range r.stored {
		if s.resp.TestID == testID {
			out = append(out, append([]model.RawAnswer(nil), s.raw...))
		}
	}
	return out, r.undecoded[testID], nil
}

func (r *fakeResponseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stored)
}

type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*model.Group
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[string]*model.Group)}
}

func (r *fakeGroupRepo) Create(ctx context.Context, group *model.Group) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group.ID = newID()
	group.Members = []string{}
	group.Tests = []model.GroupTest{}
	cp := *group
	r.groups[group.ID] = &cp
	return group.ID, nil
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	cp.Members = append([]string(nil), g.Members...)
	cp.Tests = append([]model.GroupTest(nil), g.Tests...)
	return &cp, nil
}

func (r *fakeGroupRepo) List(ctx context.Context) ([]*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Group{}
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out, nil
}

func (r *fakeGroupRepo) ListByMember(ctx context.Context, userID string) ([]*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Group{}
	for _, g := range r.groups {
		if g.HasMember(userID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) Update(ctx context.Context, group *model.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[group.ID]
	if !ok {
		return repository.ErrNotFound
	}
	g.Name = group.Name
	g.Description = group.Description
	return nil
}

func (r *fakeGroupRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.groups, id)
	return nil
}

func (r *fakeGroupRepo) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if g.HasMember(userID) {
		return false, nil
	}
	g.Members = append(g.Members, userID)
	return true, nil
}

func (r *fakeGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for i, m := range g.Members {
		if m == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeGroupRepo) AssignTest(ctx context.Context, groupID string, assignment model.GroupTest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return repository.ErrNotFound
	}
	kept := g.Tests[:0]
	for _, t := range g.Tests {
		if t.TestID != assignment.TestID {
			kept = append(kept, t)
		}
	}
	g.Tests = append(kept, assignment)
	return nil
}

func (r *fakeGroupRepo) UnassignTest(ctx context.Context, groupID, testID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return repository.ErrNotFound
	}
	kept := g.Tests[:0]
	for _, t := range g.Tests {
		if t.TestID != testID {
			kept = append(kept, t)
		}
	}
	g.Tests = kept
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.ResponseSubmittedEvent
	err    error
}

func (p *fakePublisher) PublishResponseSubmitted(ctx context.Context, evt model.ResponseSubmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) published() []model.ResponseSubmittedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ResponseSubmittedEvent(nil), p.events...)
}

// fakeLock is a SubmissionLock whose outcome is fixed per test
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	err      error
	acquires int
	releases int
}

func (l *fakeLock) Acquire(ctx context.Context, testID, userID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return func() {
		l.mu.Lock()
		l.releases++
		l.mu.Unlock()
	}, true, nil
}
