package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"ipasurvey/internal/model"
	"ipasurvey/internal/repository"
)

// AggregationService computes IPA averages for a test. Each answer is
// classified by looking its question up in the templates at read time, so
// a later change of a question's type is reflected in every result.
type AggregationService struct {
	responses repository.ResponseRepo
	templates repository.TemplateRepo
	logger    *slog.Logger
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(responses repository.ResponseRepo, templates repository.TemplateRepo, logger *slog.Logger) *AggregationService {
	return &AggregationService{
		responses: responses,
		templates: templates,
		logger:    logger,
	}
}

// Aggregate returns the averaged importance and performance scores over all
// responses to testID. A dimension with no counted answers is nil. Malformed
// answers and answers whose question no longer exists are left out.
func (s *AggregationService) Aggregate(ctx context.Context, testID string) (*model.AggregateResult, error) {
	responses, skipped, err := s.responses.RawAnswersByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	if skipped > 0 {
		s.logger.Warn("skipped undecodable responses", "testId", testID, "count", skipped)
	}

	var (
		result       = &model.AggregateResult{ResponseCount: len(responses)}
		types        = make(map[string]model.QuestionType)
		impSum       float64
		perfSum      float64
		unclassified int
	)

	for _, answers := range responses {
		for _, a := range answers {
			if a.QuestionID == "" {
				continue
			}
			value, ok := numericValue(a.Value)
			if !ok {
				continue
			}

			qt, cached := types[a.QuestionID]
			if !cached {
				found := false
				qt, found, err = s.templates.FindQuestionType(ctx, a.QuestionID)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve question %s: %w", a.QuestionID, err)
				}
				if !found {
					qt = ""
				}
				types[a.QuestionID] = qt
			}

			switch qt {
			case model.QuestionTypeImportance:
				impSum += value
				result.ImportanceCount++
			case model.QuestionTypePerformance:
				perfSum += value
				result.PerformanceCount++
			default:
				unclassified++
			}
		}
	}

	if result.ImportanceCount > 0 {
		avg := impSum / float64(result.ImportanceCount)
		result.AvgImportance = &avg
	}
	if result.PerformanceCount > 0 {
		avg := perfSum / float64(result.PerformanceCount)
		result.AvgPerformance = &avg
	}

	s.logger.Debug("aggregated test",
		"testId", testID,
		"responses", result.ResponseCount,
		"importance", result.ImportanceCount,
		"performance", result.PerformanceCount,
		"unclassified", unclassified,
	)
	return result, nil
}

// numericValue accepts the numeric types the BSON decoder produces and
// rejects NaN and infinities
func numericValue(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
