// Package goals stores per-user savings goals. Goals are append-only.
package goals

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"finora/internal/ledger"
	applog "finora/internal/log"
	"finora/internal/models"

	"gorm.io/gorm"
)

const maxNameLen = 64

type Service struct {
	db  *gorm.DB
	log *applog.Logger
}

func New(db *gorm.DB, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Service{db: db, log: logger.WithComponent(applog.ComponentGoals)}
}

// Add stores g for owner and returns it with its id.
func (s *Service) Add(ctx context.Context, owner string, g models.Goal) (models.Goal, error) {
	g, err := normalize(owner, g)
	if err != nil {
		return models.Goal{}, err
	}
	if err := s.db.WithContext(ctx).Create(&g).Error; err != nil {
		return models.Goal{}, &ledger.PersistenceError{Op: "add goal", Err: err}
	}
	s.log.DebugContext(ctx, "goal added", applog.FieldUsername, owner, applog.FieldGoal, g.Name)
	return g, nil
}

// List returns owner's goals in insertion order.
func (s *Service) List(ctx context.Context, owner string) ([]models.Goal, error) {
	var out []models.Goal
	if err := s.db.WithContext(ctx).Where("username = ?", owner).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return out, nil
}

// Import adds the goals that owner does not already have. A goal matches
// when name, amounts and deadline are equal.
func (s *Service) Import(ctx context.Context, owner string, goals []models.Goal) (int, error) {
	existing, err := s.List(ctx, owner)
	if err != nil {
		return 0, err
	}
	have := make(map[string]int, len(existing))
	for _, g := range existing {
		have[goalKey(g)]++
	}

	var fresh []models.Goal
	for _, g := range goals {
		n, err := normalize(owner, g)
		if err != nil {
			return 0, err
		}
		k := goalKey(n)
		if have[k] > 0 {
			have[k]--
			continue
		}
		fresh = append(fresh, n)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).Create(&fresh).Error; err != nil {
		return 0, &ledger.PersistenceError{Op: "import goals", Err: err}
	}
	return len(fresh), nil
}

func normalize(owner string, g models.Goal) (models.Goal, error) {
	g.ID = 0
	g.CreatedAt = time.Time{}
	g.Owner = owner
	g.Name = strings.TrimSpace(g.Name)

	switch {
	case owner == "":
		return g, &ledger.ValidationError{Field: "owner", Reason: "required"}
	case g.Name == "":
		return g, &ledger.ValidationError{Field: "name", Reason: "required"}
	case utf8.RuneCountInString(g.Name) > maxNameLen:
		return g, &ledger.ValidationError{Field: "name", Reason: fmt.Sprintf("longer than %d characters", maxNameLen)}
	case !g.TargetAmount.IsPositive():
		return g, &ledger.ValidationError{Field: "target_amount", Reason: "must be greater than zero"}
	case g.SavedAmount.IsNegative():
		return g, &ledger.ValidationError{Field: "saved_amount", Reason: "must not be negative"}
	}
	if !g.Deadline.IsZero() {
		y, m, d := g.Deadline.Date()
		g.Deadline = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return g, nil
}

func goalKey(g models.Goal) string {
	return strings.Join([]string{
		g.Name,
		g.TargetAmount.StringFixed(2),
		g.SavedAmount.StringFixed(2),
		g.Deadline.UTC().Format(time.DateOnly),
	}, "\x1f")
}
