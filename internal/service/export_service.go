package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"ipasurvey/internal/model"
	"ipasurvey/internal/repository"

	"github.com/xuri/excelize/v2"
)

const (
	responsesSheet = "Responses"
	summarySheet   = "Summary"
)

// ExportService renders a test's responses as a spreadsheet
type ExportService struct {
	tests      repository.TestRepo
	templates  repository.TemplateRepo
	responses  repository.ResponseRepo
	aggregator *AggregationService
	logger     *slog.Logger
}

// NewExportService creates a new export service
func NewExportService(
	tests repository.TestRepo,
	templates repository.TemplateRepo,
	responses repository.ResponseRepo,
	aggregator *AggregationService,
	logger *slog.Logger,
) *ExportService {
	return &ExportService{
		tests:      tests,
		templates:  templates,
		responses:  responses,
		aggregator: aggregator,
		logger:     logger,
	}
}

// ResponsesXLSX writes one row per response, one column per closed question
// of the test's template, plus a summary sheet with the IPA averages.
func (s *ExportService) ResponsesXLSX(ctx context.Context, testID string, w io.Writer) error {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("failed to get test: %w", err)
	}
	if test == nil {
		return ErrTestNotFound
	}

	tpl, err := s.templates.GetByID(ctx, test.TemplateID)
	if err != nil {
		return fmt.Errorf("failed to get template: %w", err)
	}
	if tpl == nil {
		// orphaned test: export answers without question columns
		tpl = &model.Template{}
	}

	responses, err := s.responses.GetByTest(ctx, test.ID)
	if err != nil {
		return fmt.Errorf("failed to list responses: %w", err)
	}
	result, err := s.aggregator.Aggregate(ctx, test.ID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", responsesSheet); err != nil {
		return err
	}
	if err := writeResponseRows(f, tpl, responses); err != nil {
		return err
	}
	if err := writeSummary(f, test, result); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	s.logger.Info("responses exported", "testId", test.ID, "rows", len(responses))
	return nil
}

func writeResponseRows(f *excelize.File, tpl *model.Template, responses []*model.Response) error {
	header := []interface{}{"Response ID", "User ID", "Submitted At"}
	for _, q := range tpl.ClosedQuestions {
		header = append(header, fmt.Sprintf("%s (%s)", q.Text, q.Type))
	}
	header = append(header, "Open answer")
	if err := f.SetSheetRow(responsesSheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(responsesSheet, "A1", lastCol, bold); err != nil {
		return err
	}

	for i, resp := range responses {
		values := make(map[string]int, len(resp.ClosedAnswers))
		for _, a := range resp.ClosedAnswers {
			values[a.QuestionID] = a.Value
		}

		row := []interface{}{resp.ID, resp.UserID, resp.CreatedAt}
		for _, q := range tpl.ClosedQuestions {
			if v, ok := values[q.ID]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		if resp.OpenAnswer != nil {
			row = append(row, *resp.OpenAnswer)
		} else {
			row = append(row, nil)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(responsesSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, test *model.Test, result *model.AggregateResult) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Test", test.Name},
		{"Responses", result.ResponseCount},
		{"Average importance", optionalFloat(result.AvgImportance)},
		{"Importance answers", result.ImportanceCount},
		{"Average performance", optionalFloat(result.AvgPerformance)},
		{"Performance answers", result.PerformanceCount},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return "n/a"
	}
	return *v
}
