package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ipasurvey/internal/app"
	"ipasurvey/internal/config"
	"ipasurvey/internal/model"
	"ipasurvey/internal/service"
)

// seed creates a demo template, group and open test, and prints tokens for
// an admin and a student so the API can be tried right away.
func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	if err := seed(ctx, a); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, a *app.App) error {
	const adminID = "admin-seed"
	const studentID = "student-seed"

	tpl, err := a.TemplateService.Create(ctx, adminID, service.CreateTemplateInput{
		Name:        "Course evaluation",
		Description: "Rate how much each aspect matters to you and how well the course delivered it.",
		ClosedQuestions: []service.QuestionInput{
			{Text: "Clear learning objectives matter to me", Type: model.QuestionTypeImportance},
			{Text: "The course stated clear learning objectives", Type: model.QuestionTypePerformance},
			{Text: "Timely feedback on assignments matters to me", Type: model.QuestionTypeImportance},
			{Text: "Assignments were graded with timely feedback", Type: model.QuestionTypePerformance},
		},
		OpenQuestion: &service.OpenQuestionInput{Text: "What one change would improve this course?"},
	})
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}

	group, err := a.GroupService.Create(ctx, adminID, service.GroupInput{
		Name:        "Demo cohort",
		Description: "Seeded group",
	})
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	if _, err := a.GroupService.Join(ctx, group.ID, studentID); err != nil {
		return fmt.Errorf("join group: %w", err)
	}

	now := time.Now().UTC()
	test, err := a.TestService.CreateFromTemplate(ctx, adminID, service.CreateTestInput{
		TemplateID: tpl.ID,
		GroupID:    group.ID,
		StartsAt:   now,
		EndsAt:     now.Add(14 * 24 * time.Hour),
	})
	if err != nil {
		return fmt.Errorf("create test: %w", err)
	}

	adminToken, err := a.AuthService.IssueToken(adminID, model.RoleAdmin)
	if err != nil {
		return err
	}
	studentToken, err := a.AuthService.IssueToken(studentID, model.RoleUser)
	if err != nil {
		return err
	}

	fmt.Printf("template: %s\n", tpl.ID)
	fmt.Printf("group:    %s\n", group.ID)
	fmt.Printf("test:     %s\n", test.ID)
	fmt.Printf("admin token:   %s\n", adminToken)
	fmt.Printf("student token: %s\n", studentToken)
	return nil
}
