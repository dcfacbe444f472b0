// Package registry maps credentials to user profiles.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	applog "finora/internal/log"
	"finora/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxFailedAttempts = 5
	lockDuration      = 10 * time.Minute
	maxAge            = 150
)

type Registry struct {
	db   *gorm.DB
	cost int
	log  *applog.Logger
	now  func() time.Time

	// compared against when the username is unknown so that both paths
	// cost one bcrypt evaluation
	dummyHash []byte
}

// New builds a Registry hashing with the given bcrypt cost.
func New(db *gorm.DB, cost int, logger *applog.Logger) (*Registry, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	if logger == nil {
		logger = applog.Discard()
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("finora-dummy-credential"), cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Registry{
		db:        db,
		cost:      cost,
		log:       logger.WithComponent(applog.ComponentRegistry),
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register creates a user with an empty profile. Usernames are unique
// regardless of case.
func (r *Registry) Register(ctx context.Context, username, credential string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if !validUsername(username) {
		return nil, ErrInvalidUsername
	}

	taken, err := r.taken(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateUser
	}
	if !strongCredential(credential) {
		return nil, ErrWeakCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), r.cost)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	r.log.InfoContext(ctx, "user registered", applog.FieldUsername, user.Username)
	return &user, nil
}

// Authenticate checks credential against the stored hash. Five consecutive
// failures lock the account for ten minutes.
func (r *Registry) Authenticate(ctx context.Context, username, credential string) (*models.User, error) {
	user, err := r.find(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(r.dummyHash, []byte(credential))
		return nil, ErrAuthFailure
	}
	if err != nil {
		return nil, err
	}

	now := r.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		if err := r.recordFailure(ctx, user, now); err != nil {
			return nil, fmt.Errorf("record failed login: %w", err)
		}
		return nil, ErrAuthFailure
	}

	if err := r.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	return user, nil
}

// recordFailure bumps the failure counter in SQL so concurrent attempts are
// all counted, and locks the account once it reaches the limit.
func (r *Registry) recordFailure(ctx context.Context, user *models.User, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("failed_login_attempts", gorm.Expr("failed_login_attempts + 1")).Error; err != nil {
			return err
		}

		var attempts []int
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Pluck("failed_login_attempts", &attempts).Error; err != nil {
			return err
		}
		if len(attempts) == 0 || attempts[0] < maxFailedAttempts {
			return nil
		}

		r.log.WarnContext(ctx, "account locked", applog.FieldUsername, user.Username)
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"failed_login_attempts": 0,
			"locked_until":          now.Add(lockDuration),
		}).Error
	})
}

// ProfileUpdate lists the fields to overwrite; nil fields are left alone.
type ProfileUpdate struct {
	DisplayName    *string
	Age            *int
	RiskAppetite   *models.RiskAppetite
	InvestmentPlan *string
	MonthlyBudget  *decimal.Decimal
}

// UpdateProfile overwrites the supplied fields of username's row only.
func (r *Registry) UpdateProfile(ctx context.Context, username string, upd ProfileUpdate) error {
	updates := make(map[string]any)
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if len([]rune(name)) > 64 {
			return fmt.Errorf("%w: display name longer than 64 characters", ErrInvalidProfile)
		}
		updates["display_name"] = name
	}
	if upd.Age != nil {
		if *upd.Age < 0 || *upd.Age > maxAge {
			return fmt.Errorf("%w: age must be between 0 and %d", ErrInvalidProfile, maxAge)
		}
		updates["age"] = *upd.Age
	}
	if upd.RiskAppetite != nil {
		risk, ok := models.ParseRiskAppetite(string(*upd.RiskAppetite))
		if !ok {
			return fmt.Errorf("%w: risk appetite must be Low, Moderate or High", ErrInvalidProfile)
		}
		updates["risk_appetite"] = risk
	}
	if upd.InvestmentPlan != nil {
		updates["investment_plan"] = strings.TrimSpace(*upd.InvestmentPlan)
	}
	if upd.MonthlyBudget != nil {
		if upd.MonthlyBudget.IsNegative() {
			return fmt.Errorf("%w: monthly budget must not be negative", ErrInvalidProfile)
		}
		updates["monthly_budget"] = decimal.NewNullDecimal(*upd.MonthlyBudget)
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	r.log.InfoContext(ctx, "profile updated", applog.FieldUsername, username, applog.FieldCount, len(updates))
	return nil
}

// ChangeCredential replaces the credential after checking the old one.
func (r *Registry) ChangeCredential(ctx context.Context, username, oldCredential, newCredential string) error {
	user, err := r.find(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return ErrAuthFailure
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldCredential)); err != nil {
		return ErrAuthFailure
	}
	if !strongCredential(newCredential) {
		return ErrWeakCredential
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newCredential), r.cost)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

// Get returns the user with exactly this username.
func (r *Registry) Get(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// Exists reports whether username is registered, matching exactly. Ledger
// owners are always canonical usernames.
func (r *Registry) Exists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return count > 0, nil
}

// find matches the username case-insensitively.
func (r *Registry) find(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

func (r *Registry) taken(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", username).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return count > 0, nil
}
