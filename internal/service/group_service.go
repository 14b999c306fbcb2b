package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ipasurvey/internal/model"
	"ipasurvey/internal/repository"
)

type GroupInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type AssignTestInput struct {
	TestID string     `json:"testId" validate:"required,mongodb"`
	DueAt  *time.Time `json:"dueAt"`
}

// GroupService manages groups, memberships and test assignments
type GroupService struct {
	groups    repository.GroupRepo
	tests     repository.TestRepo
	validator *Validator
	logger    *slog.Logger
}

// NewGroupService creates a new group service
func NewGroupService(groups repository.GroupRepo, tests repository.TestRepo, validator *Validator, logger *slog.Logger) *GroupService {
	return &GroupService{
		groups:    groups,
		tests:     tests,
		validator: validator,
		logger:    logger,
	}
}

func (s *GroupService) Create(ctx context.Context, adminID string, in GroupInput) (*model.Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	group := &model.Group{Name: in.Name, Description: strings.TrimSpace(in.Description), CreatedBy: adminID}
	if _, err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	s.logger.Info("group created", "groupId", group.ID)
	return group, nil
}

func (s *GroupService) Update(ctx context.Context, id string, in GroupInput) (*model.Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	group, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Name = in.Name
	group.Description = strings.TrimSpace(in.Description)
	if err := s.groups.Update(ctx, group); err != nil {
		return nil, s.mapErr("update group", err)
	}
	return group, nil
}

func (s *GroupService) Delete(ctx context.Context, id string) error {
	if err := s.groups.Delete(ctx, id); err != nil {
		return s.mapErr("delete group", err)
	}
	s.logger.Info("group deleted", "groupId", id)
	return nil
}

func (s *GroupService) Get(ctx context.Context, id string) (*model.Group, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

func (s *GroupService) List(ctx context.Context) ([]model.GroupSummary, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return summarize(groups), nil
}

// MyGroups lists the groups userID belongs to
func (s *GroupService) MyGroups(ctx context.Context, userID string) ([]model.GroupSummary, error) {
	groups, err := s.groups.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return summarize(groups), nil
}

// Join adds userID to the group; joined is false if already a member
func (s *GroupService) Join(ctx context.Context, groupID, userID string) (joined bool, err error) {
	joined, err = s.groups.AddMember(ctx, groupID, userID)
	if err != nil {
		return false, s.mapErr("join group", err)
	}
	return joined, nil
}

// Leave removes userID from the group; left is false if not a member
func (s *GroupService) Leave(ctx context.Context, groupID, userID string) (left bool, err error) {
	left, err = s.groups.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return false, s.mapErr("leave group", err)
	}
	return left, nil
}

func (s *GroupService) AssignTest(ctx context.Context, groupID string, in AssignTestInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}

	exists, err := s.tests.Exists(ctx, in.TestID)
	if err != nil {
		return fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return ErrTestNotFound
	}

	assignment := model.GroupTest{TestID: in.TestID, AssignedAt: time.Now().UTC(), DueAt: in.DueAt}
	if err := s.groups.AssignTest(ctx, groupID, assignment); err != nil {
		return s.mapErr("assign test", err)
	}
	return nil
}

func (s *GroupService) UnassignTest(ctx context.Context, groupID, testID string) error {
	if err := s.groups.UnassignTest(ctx, groupID, testID); err != nil {
		return s.mapErr("unassign test", err)
	}
	return nil
}

func (s *GroupService) mapErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrGroupNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func summarize(groups []*model.Group) []model.GroupSummary {
	out := make([]model.GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, model.GroupSummary{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			MemberCount: len(g.Members),
			TestCount:   len(g.Tests),
			CreatedAt:   g.CreatedAt,
		})
	}
	return out
}
