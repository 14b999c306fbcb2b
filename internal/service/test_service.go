package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ipasurvey/internal/cache"
	"ipasurvey/internal/model"
	"ipasurvey/internal/repository"
)

// CreateTestInput creates a test from a template and assigns it to a group
type CreateTestInput struct {
	TemplateID  string     `json:"templateId" validate:"required,mongodb"`
	GroupID     string     `json:"groupId" validate:"required,mongodb"`
	Name        string     `json:"name" validate:"max=200"`
	Description string     `json:"description" validate:"max=2000"`
	StartsAt    time.Time  `json:"startsAt" validate:"required"`
	EndsAt      time.Time  `json:"endsAt" validate:"required,gtfield=StartsAt"`
	DueAt       *time.Time `json:"dueAt"`
}

// UpdateTestInput patches a test. Nil fields are left unchanged.
type UpdateTestInput struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	Active      *bool      `json:"active"`
}

type ListTestsInput struct {
	Page        int    `json:"page" validate:"min=1"`
	RowsPerPage int    `json:"rowPerPage" validate:"min=1,max=100"`
	Search      string `json:"search" validate:"max=100"`
}

// testLookup reads tests through the optional Redis cache
type testLookup struct {
	repo   repository.TestRepo
	cache  cache.TestCache
	logger *slog.Logger
}

func (l *testLookup) get(ctx context.Context, id string) (*model.Test, error) {
	if l.cache != nil {
		test, err := l.cache.Get(ctx, id)
		if err != nil {
			l.logger.Warn("test cache read failed", "testId", id, "error", err)
		} else if test != nil {
			return test, nil
		}
	}

	test, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test != nil && l.cache != nil {
		if err := l.cache.Set(ctx, test); err != nil {
			l.logger.Warn("test cache write failed", "testId", id, "error", err)
		}
	}
	return test, nil
}

func (l *testLookup) invalidate(ctx context.Context, id string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, id); err != nil {
		l.logger.Warn("test cache invalidation failed", "testId", id, "error", err)
	}
}

// TestService manages tests created from templates
type TestService struct {
	tests     *testLookup
	templates repository.TemplateRepo
	groups    repository.GroupRepo
	validator *Validator
	logger    *slog.Logger
}

// NewTestService creates a new test service. testCache may be nil.
func NewTestService(
	tests repository.TestRepo,
	templates repository.TemplateRepo,
	groups repository.GroupRepo,
	testCache cache.TestCache,
	validator *Validator,
	logger *slog.Logger,
) *TestService {
	return &TestService{
		tests:     &testLookup{repo: tests, cache: testCache, logger: logger},
		templates: templates,
		groups:    groups,
		validator: validator,
		logger:    logger,
	}
}

// CreateFromTemplate creates a test and assigns it to the group. Name and
// description fall back to the template's.
func (s *TestService) CreateFromTemplate(ctx context.Context, adminID string, in CreateTestInput) (*model.Test, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	tpl, err := s.templates.GetByID(ctx, in.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if tpl == nil {
		return nil, ErrTemplateNotFound
	}

	group, err := s.groups.GetByID(ctx, in.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	test := &model.Test{
		Name:        firstNonEmpty(strings.TrimSpace(in.Name), tpl.Name),
		Description: firstNonEmpty(strings.TrimSpace(in.Description), tpl.Description),
		TemplateID:  tpl.ID,
		CreatedBy:   adminID,
		StartsAt:    in.StartsAt.UTC(),
		EndsAt:      in.EndsAt.UTC(),
		Active:      true,
	}
	if _, err := s.tests.repo.Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	assignment := model.GroupTest{TestID: test.ID, AssignedAt: time.Now().UTC(), DueAt: in.DueAt}
	if err := s.groups.AssignTest(ctx, group.ID, assignment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to assign test: %w", err)
	}

	s.logger.Info("test created", "testId", test.ID, "templateId", tpl.ID, "groupId", group.ID)
	return test, nil
}

func (s *TestService) Get(ctx context.Context, id string) (*model.Test, error) {
	test, err := s.tests.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, ErrTestNotFound
	}
	return test, nil
}

// GetWithTemplate returns the test together with the questions to render
func (s *TestService) GetWithTemplate(ctx context.Context, id string) (*model.TestWithTemplate, error) {
	test, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.GetByID(ctx, test.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if tpl == nil {
		return nil, ErrTemplateNotFound
	}
	return &model.TestWithTemplate{Test: test, Template: tpl}, nil
}

// ListForGroup returns the tests assigned to a group. Non-admin callers must be members.
func (s *TestService) ListForGroup(ctx context.Context, caller *model.UserClaims, groupID string) ([]*model.Test, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	if !caller.IsAdmin() && !group.HasMember(caller.UserID) {
		return nil, ErrForbidden
	}

	ids := make([]string, 0, len(group.Tests))
	for _, t := range group.Tests {
		ids = append(ids, t.TestID)
	}
	tests, err := s.tests.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}

// List pages through all tests, newest first
func (s *TestService) List(ctx context.Context, in ListTestsInput) (*model.TestPage, error) {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.RowsPerPage == 0 {
		in.RowsPerPage = 10
	}
	in.Search = strings.TrimSpace(in.Search)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	filter := repository.TestFilter{
		Search: in.Search,
		Skip:   int64((in.Page - 1) * in.RowsPerPage),
		Limit:  int64(in.RowsPerPage),
	}
	tests, total, err := s.tests.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return &model.TestPage{Items: tests, Total: total, Page: in.Page, RowsPerPage: in.RowsPerPage}, nil
}

// Update patches the mutable fields and re-checks the window on the merged values
func (s *TestService) Update(ctx context.Context, id string, in UpdateTestInput) (*model.Test, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	test, err := s.tests.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test == nil {
		return nil, ErrTestNotFound
	}

	if in.Name != nil {
		test.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		test.Description = strings.TrimSpace(*in.Description)
	}
	if in.StartsAt != nil {
		test.StartsAt = in.StartsAt.UTC()
	}
	if in.EndsAt != nil {
		test.EndsAt = in.EndsAt.UTC()
	}
	if in.Active != nil {
		test.Active = *in.Active
	}
	if !test.EndsAt.After(test.StartsAt) {
		return nil, invalidField("endsAt", "must be after startsAt")
	}

	if err := s.tests.repo.Update(ctx, test); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to update test: %w", err)
	}
	s.tests.invalidate(ctx, id)

	s.logger.Info("test updated", "testId", id)
	return test, nil
}

// Delete removes the test and its assignment on groupID. Responses are kept.
func (s *TestService) Delete(ctx context.Context, id, groupID string) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return ErrGroupNotFound
	}

	if err := s.tests.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to delete test: %w", err)
	}
	s.tests.invalidate(ctx, id)

	if err := s.groups.UnassignTest(ctx, groupID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to unassign test: %w", err)
	}

	s.logger.Info("test deleted", "testId", id, "groupId", groupID)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
