// Package session issues and resolves login sessions. A Session value is
// passed explicitly to every user action; the zero value is anonymous.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	applog "finora/internal/log"
	"finora/internal/models"
	"finora/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidSession   = errors.New("session is invalid or expired")
	ErrNotAuthenticated = errors.New("not logged in")
)

// Session is the request-scoped login state.
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
}

// Authenticated reports whether s belongs to a logged-in user.
func (s *Session) Authenticated() bool {
	return s != nil && s.ID != "" && s.Username != ""
}

// Require returns the username or ErrNotAuthenticated.
func (s *Session) Require() (string, error) {
	if !s.Authenticated() {
		return "", ErrNotAuthenticated
	}
	return s.Username, nil
}

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type Manager struct {
	db  *gorm.DB
	cfg Config
	log *applog.Logger
	now func() time.Time
}

func NewManager(db *gorm.DB, cfg Config, logger *applog.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Manager{
		db:  db,
		cfg: cfg,
		log: logger.WithComponent(applog.ComponentSession),
		now: time.Now,
	}
}

// Start records a new session for username and returns it with its bearer token.
func (m *Manager) Start(ctx context.Context, username string) (*Session, string, error) {
	now := m.now()
	row := models.Session{
		ID:        uuid.NewString(),
		Username:  username,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	if err := m.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	token, err := util.GenerateToken(m.cfg.Secret, m.cfg.Issuer, row.ID, username, now, row.ExpiresAt)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}

	m.log.InfoContext(ctx, "session started", applog.FieldUsername, username, applog.FieldOperation, applog.OpLogin)
	return &Session{ID: row.ID, Username: username, ExpiresAt: row.ExpiresAt}, token, nil
}

// Resolve maps a bearer token back to a live session.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := util.ParseToken(m.cfg.Secret, m.cfg.Issuer, token)
	if err != nil {
		return nil, ErrInvalidSession
	}

	var row models.Session
	err = m.db.WithContext(ctx).Where("id = ?", claims.SessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if row.Revoked || !m.now().Before(row.ExpiresAt) || row.Username != claims.Username {
		return nil, ErrInvalidSession
	}
	return &Session{ID: row.ID, Username: row.Username, ExpiresAt: row.ExpiresAt}, nil
}

// End revokes the session. Ending an unknown or already ended session is a no-op.
func (m *Manager) End(ctx context.Context, id string) error {
	res := m.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("revoke session: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		m.log.InfoContext(ctx, "session ended", applog.FieldOperation, applog.OpLogout)
	}
	return nil
}
