package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ipasurvey/internal/cache"
	"ipasurvey/internal/model"
	"ipasurvey/internal/repository"
)

// ClosedAnswerInput is one rating of a closed question
type ClosedAnswerInput struct {
	QuestionID string `json:"questionId" validate:"required,mongodb"`
	Value      int    `json:"value" validate:"min=1,max=5"`
}

// SubmitAnswersInput is the body of a submission
type SubmitAnswersInput struct {
	ClosedAnswers []ClosedAnswerInput `json:"closedAnswers" validate:"required,min=1,dive"`
	OpenAnswer    *string             `json:"openAnswer" validate:"omitempty,max=5000"`
}

// AnswerService accepts submissions and serves responses and results
type AnswerService struct {
	responses  repository.ResponseRepo
	tests      *testLookup
	aggregator *AggregationService
	validator  *Validator
	lock       cache.SubmissionLock
	publisher  EventPublisher
	logger     *slog.Logger
}

// NewAnswerService creates a new answer service
func NewAnswerService(
	responses repository.ResponseRepo,
	tests repository.TestRepo,
	aggregator *AggregationService,
	validator *Validator,
	logger *slog.Logger,
) *AnswerService {
	return &AnswerService{
		responses:  responses,
		tests:      &testLookup{repo: tests, logger: logger},
		aggregator: aggregator,
		validator:  validator,
		logger:     logger,
	}
}

// SetTestCache enables cached test existence checks
func (s *AnswerService) SetTestCache(c cache.TestCache) {
	s.tests.cache = c
}

// SetSubmissionLock enables the in-flight guard for concurrent submissions
func (s *AnswerService) SetSubmissionLock(l cache.SubmissionLock) {
	s.lock = l
}

// SetPublisher sets the publisher for submission events
func (s *AnswerService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// Submit stores userID's answers for testID. At most one response per
// (test, user) is ever stored; every later attempt gets ErrAlreadySubmitted.
func (s *AnswerService) Submit(ctx context.Context, testID, userID string, in SubmitAnswersInput) (*model.Response, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	test, err := s.tests.get(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, ErrTestNotFound
	}

	// losing the lock is not a conflict; the pre-check and unique index decide
	if s.lock != nil {
		release, acquired, err := s.lock.Acquire(ctx, test.ID, userID)
		switch {
		case err != nil:
			s.logger.Warn("submission lock unavailable", "testId", test.ID, "error", err)
		case !acquired:
			s.logger.Debug("submission already in flight", "testId", test.ID, "userId", userID)
		default:
			defer release()
		}
	}

	exists, err := s.responses.ExistsForUser(ctx, test.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior submission: %w", err)
	}
	if exists {
		return nil, ErrAlreadySubmitted
	}

	resp := &model.Response{
		TestID:        test.ID,
		UserID:        userID,
		ClosedAnswers: make([]model.ClosedAnswer, 0, len(in.ClosedAnswers)),
		OpenAnswer:    normalizeOpenAnswer(in.OpenAnswer),
	}
	for _, a := range in.ClosedAnswers {
		resp.ClosedAnswers = append(resp.ClosedAnswers, model.ClosedAnswer{QuestionID: a.QuestionID, Value: a.Value})
	}

	if _, err := s.responses.Create(ctx, resp); err != nil {
		if errors.Is(err, repository.ErrDuplicateResponse) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to save response: %w", err)
	}

	s.logger.Info("response submitted", "testId", test.ID, "userId", userID, "responseId", resp.ID)
	s.publishSubmitted(ctx, resp)
	return resp, nil
}

func (s *AnswerService) publishSubmitted(ctx context.Context, resp *model.Response) {
	if s.publisher == nil {
		return
	}
	evt := model.ResponseSubmittedEvent{
		ResponseID:  resp.ID,
		TestID:      resp.TestID,
		UserID:      resp.UserID,
		AnswerCount: len(resp.ClosedAnswers),
		SubmittedAt: resp.CreatedAt,
	}
	if err := s.publisher.PublishResponseSubmitted(ctx, evt); err != nil {
		s.logger.Error("failed to publish submission event", "responseId", resp.ID, "error", err)
	}
}

// ListByTest returns every response to a test
func (s *AnswerService) ListByTest(ctx context.Context, testID string) ([]*model.Response, error) {
	responses, err := s.responses.GetByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return responses, nil
}

// ListByUser returns userID's responses. Only the user and admins may read them.
func (s *AnswerService) ListByUser(ctx context.Context, caller *model.UserClaims, userID string) ([]*model.Response, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	if !caller.IsAdmin() && caller.UserID != userID {
		return nil, ErrForbidden
	}

	responses, err := s.responses.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return responses, nil
}

// Results returns the IPA averages for a test. ErrNoResults means nothing
// could be averaged, whether or not responses exist.
func (s *AnswerService) Results(ctx context.Context, testID string) (*model.AggregateResult, error) {
	test, err := s.tests.get(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, ErrTestNotFound
	}

	result, err := s.aggregator.Aggregate(ctx, test.ID)
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, ErrNoResults
	}
	return result, nil
}

// normalizeOpenAnswer trims the answer; blank answers are stored as absent
func normalizeOpenAnswer(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
