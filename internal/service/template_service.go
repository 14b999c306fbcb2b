package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ipasurvey/internal/model"
	"ipasurvey/internal/repository"
)

type QuestionInput struct {
	Text string             `json:"text" validate:"required,max=1000"`
	Type model.QuestionType `json:"type" validate:"required,oneof=importance performance"`
}

type OpenQuestionInput struct {
	Text string `json:"text" validate:"required,max=1000"`
}

type CreateTemplateInput struct {
	Name            string             `json:"name" validate:"required,max=200"`
	Description     string             `json:"description" validate:"max=2000"`
	ClosedQuestions []QuestionInput    `json:"closedQuestions" validate:"dive"`
	OpenQuestion    *OpenQuestionInput `json:"openQuestion"`
}

// UpdateTemplateInput patches template metadata. Closed questions are
// edited through the question operations so their ids stay stable.
type UpdateTemplateInput struct {
	Name               *string            `json:"name" validate:"omitempty,min=1,max=200"`
	Description        *string            `json:"description" validate:"omitempty,max=2000"`
	OpenQuestion       *OpenQuestionInput `json:"openQuestion"`
	RemoveOpenQuestion bool               `json:"removeOpenQuestion"`
}

// TemplateService manages question templates
type TemplateService struct {
	templates repository.TemplateRepo
	validator *Validator
	logger    *slog.Logger
}

// NewTemplateService creates a new template service
func NewTemplateService(templates repository.TemplateRepo, validator *Validator, logger *slog.Logger) *TemplateService {
	return &TemplateService{
		templates: templates,
		validator: validator,
		logger:    logger,
	}
}

func (s *TemplateService) Create(ctx context.Context, adminID string, in CreateTemplateInput) (*model.Template, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	tpl := &model.Template{
		Name:            in.Name,
		Description:     strings.TrimSpace(in.Description),
		ClosedQuestions: make([]model.ClosedQuestion, 0, len(in.ClosedQuestions)),
		CreatedBy:       adminID,
	}
	for _, q := range in.ClosedQuestions {
		tpl.ClosedQuestions = append(tpl.ClosedQuestions, model.ClosedQuestion{Text: strings.TrimSpace(q.Text), Type: q.Type})
	}
	if in.OpenQuestion != nil {
		tpl.OpenQuestion = &model.OpenQuestion{Text: strings.TrimSpace(in.OpenQuestion.Text)}
	}

	if _, err := s.templates.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.logger.Info("template created", "templateId", tpl.ID, "questions", len(tpl.ClosedQuestions))
	return tpl, nil
}

func (s *TemplateService) Get(ctx context.Context, id string) (*model.Template, error) {
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if tpl == nil {
		return nil, ErrTemplateNotFound
	}
	return tpl, nil
}

func (s *TemplateService) List(ctx context.Context) ([]*model.Template, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (s *TemplateService) Update(ctx context.Context, id string, in UpdateTemplateInput) (*model.Template, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		tpl.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		tpl.Description = strings.TrimSpace(*in.Description)
	}
	if in.RemoveOpenQuestion {
		tpl.OpenQuestion = nil
	} else if in.OpenQuestion != nil {
		tpl.OpenQuestion = &model.OpenQuestion{Text: strings.TrimSpace(in.OpenQuestion.Text)}
	}

	if err := s.templates.Update(ctx, tpl); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return tpl, nil
}

// Delete removes a template. Answers to its questions stop counting in results.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("failed to delete template: %w", err)
	}
	s.logger.Info("template deleted", "templateId", id)
	return nil
}

func (s *TemplateService) AddQuestion(ctx context.Context, templateID string, in QuestionInput) (*model.ClosedQuestion, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	q := &model.ClosedQuestion{Text: in.Text, Type: in.Type}
	if err := s.templates.AddQuestion(ctx, templateID, q); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to add question: %w", err)
	}
	return q, nil
}

// UpdateQuestion changes a question's text and type. A type change applies
// to every existing answer the next time results are computed.
func (s *TemplateService) UpdateQuestion(ctx context.Context, questionID string, in QuestionInput) (*model.ClosedQuestion, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	q := &model.ClosedQuestion{ID: questionID, Text: in.Text, Type: in.Type}
	if err := s.templates.UpdateQuestion(ctx, q); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("question updated", "questionId", questionID, "type", in.Type)
	return q, nil
}

func (s *TemplateService) DeleteQuestion(ctx context.Context, questionID string) error {
	if err := s.templates.DeleteQuestion(ctx, questionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}
