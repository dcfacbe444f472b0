// Package app exposes the user-facing actions. Every action takes the
// caller's session explicitly; nothing is kept in ambient state.
package app

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"finora/internal/advice"
	"finora/internal/aggregate"
	"finora/internal/goals"
	"finora/internal/ledger"
	applog "finora/internal/log"
	"finora/internal/market"
	"finora/internal/models"
	"finora/internal/registry"
	"finora/internal/session"

	"github.com/shopspring/decimal"
)

// ErrProfileIncomplete means a recommendation was requested without an age
// or risk appetite, and the profile does not supply one either.
var ErrProfileIncomplete = errors.New("age and risk appetite are required; set them on the profile or pass them explicitly")

type App struct {
	users    *registry.Registry
	sessions *session.Manager
	ledger   *ledger.Store
	goals    *goals.Service
	market   market.Provider
	log      *applog.Logger
	now      func() time.Time
}

type Deps struct {
	Users    *registry.Registry
	Sessions *session.Manager
	Ledger   *ledger.Store
	Goals    *goals.Service
	Market   market.Provider
	Logger   *applog.Logger
}

func New(d Deps) *App {
	if d.Market == nil {
		d.Market = market.Unavailable{}
	}
	if d.Logger == nil {
		d.Logger = applog.Discard()
	}
	return &App{
		users:    d.Users,
		sessions: d.Sessions,
		ledger:   d.Ledger,
		goals:    d.Goals,
		market:   d.Market,
		log:      d.Logger.WithComponent(applog.ComponentApp),
		now:      time.Now,
	}
}

// Register creates the account and logs it in.
func (a *App) Register(ctx context.Context, username, credential string) (*session.Session, string, error) {
	user, err := a.users.Register(ctx, username, credential)
	if err != nil {
		return nil, "", err
	}
	return a.sessions.Start(ctx, user.Username)
}

// Login authenticates and starts a session under the canonical username.
func (a *App) Login(ctx context.Context, username, credential string) (*session.Session, string, error) {
	user, err := a.users.Authenticate(ctx, username, credential)
	if err != nil {
		return nil, "", err
	}
	return a.sessions.Start(ctx, user.Username)
}

// Logout ends s. Logging out an anonymous session is a no-op.
func (a *App) Logout(ctx context.Context, s *session.Session) error {
	if !s.Authenticated() {
		return nil
	}
	return a.sessions.End(ctx, s.ID)
}

// Profile returns the logged-in user's row.
func (a *App) Profile(ctx context.Context, s *session.Session) (*models.User, error) {
	username, err := s.Require()
	if err != nil {
		return nil, err
	}
	return a.users.Get(ctx, username)
}

func (a *App) UpdateProfile(ctx context.Context, s *session.Session, upd registry.ProfileUpdate) error {
	username, err := s.Require()
	if err != nil {
		return err
	}
	return a.users.UpdateProfile(ctx, username, upd)
}

func (a *App) ChangeCredential(ctx context.Context, s *session.Session, oldCredential, newCredential string) error {
	username, err := s.Require()
	if err != nil {
		return err
	}
	return a.users.ChangeCredential(ctx, username, oldCredential, newCredential)
}

// AddEntry appends e to the caller's ledger.
func (a *App) AddEntry(ctx context.Context, s *session.Session, e models.Entry) (ledger.EntryID, error) {
	username, err := s.Require()
	if err != nil {
		return 0, err
	}
	return a.ledger.Append(ctx, username, e)
}

// EntryFilter narrows a listing. Zero fields match everything; From and To
// are inclusive civil days.
type EntryFilter struct {
	From     time.Time
	To       time.Time
	Kind     models.EntryKind
	Category string
}

func (f EntryFilter) match(e models.Entry) bool {
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
		return false
	}
	return true
}

func (a *App) entries(s *session.Session, f EntryFilter) (iter.Seq[models.Entry], error) {
	username, err := s.Require()
	if err != nil {
		return nil, err
	}
	all := a.ledger.ListFor(username)
	return func(yield func(models.Entry) bool) {
		for e := range all {
			if f.match(e) && !yield(e) {
				return
			}
		}
	}, nil
}

// Entries lists the caller's entries by date, ties in insertion order.
func (a *App) Entries(ctx context.Context, s *session.Session, f EntryFilter) ([]models.Entry, error) {
	seq, err := a.entries(s, f)
	if err != nil {
		return nil, err
	}
	out := slices.Collect(seq)
	if out == nil {
		out = []models.Entry{}
	}
	return out, nil
}

func (a *App) AddGoal(ctx context.Context, s *session.Session, g models.Goal) (models.Goal, error) {
	username, err := s.Require()
	if err != nil {
		return models.Goal{}, err
	}
	return a.goals.Add(ctx, username, g)
}

func (a *App) Goals(ctx context.Context, s *session.Session) ([]models.Goal, error) {
	username, err := s.Require()
	if err != nil {
		return nil, err
	}
	list, err := a.goals.List(ctx, username)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Goal{}
	}
	return list, nil
}

// GetSummary computes the dashboard from the caller's current ledger.
func (a *App) GetSummary(ctx context.Context, s *session.Session) (aggregate.Summary, error) {
	user, err := a.Profile(ctx, s)
	if err != nil {
		return aggregate.Summary{}, err
	}
	entries, err := a.Entries(ctx, s, EntryFilter{})
	if err != nil {
		return aggregate.Summary{}, err
	}
	goalList, err := a.goals.List(ctx, user.Username)
	if err != nil {
		return aggregate.Summary{}, err
	}
	return aggregate.Summarize(entries, goalList, user.MonthlyBudget, a.now()), nil
}

// CategoryReport returns expense totals per category, largest first.
func (a *App) CategoryReport(ctx context.Context, s *session.Session, f EntryFilter) ([]aggregate.CategoryAmount, error) {
	seq, err := a.entries(s, f)
	if err != nil {
		return nil, err
	}
	return aggregate.SortedCategories(aggregate.ByCategory(seq)), nil
}

// Trend returns income and expense per period.
func (a *App) Trend(ctx context.Context, s *session.Session, f EntryFilter, g aggregate.Granularity, fillGaps bool) ([]aggregate.PeriodTotals, error) {
	seq, err := a.entries(s, f)
	if err != nil {
		return nil, err
	}
	periods, err := aggregate.ByPeriod(seq, g, fillGaps)
	if errors.Is(err, aggregate.ErrSpanTooLarge) {
		return nil, &ledger.ValidationError{Field: "fill", Reason: fmt.Sprintf("span exceeds %d %s periods; use a coarser granularity or a date range", aggregate.MaxFilledPeriods, g)}
	}
	return periods, err
}

// BudgetReport compares the expenses of month with the profile's monthly
// budget. ok is false when no budget is set.
func (a *App) BudgetReport(ctx context.Context, s *session.Session, month time.Time) (b aggregate.Budget, ok bool, err error) {
	user, err := a.Profile(ctx, s)
	if err != nil {
		return aggregate.Budget{}, false, err
	}
	if !user.MonthlyBudget.Valid {
		return aggregate.Budget{}, false, nil
	}
	if month.IsZero() {
		month = a.now()
	}
	seq, err := a.entries(s, EntryFilter{})
	if err != nil {
		return aggregate.Budget{}, false, err
	}
	return aggregate.BudgetStatus(seq, user.MonthlyBudget.Decimal, month), true, nil
}

// GetRecommendation blends age, risk appetite and the caller's savings
// rate. Nil arguments fall back to the profile.
func (a *App) GetRecommendation(ctx context.Context, s *session.Session, age *int, risk *models.RiskAppetite) (advice.Recommendation, error) {
	user, err := a.Profile(ctx, s)
	if err != nil {
		return advice.Recommendation{}, err
	}
	if age == nil {
		age = user.Age
	}
	if risk == nil && user.RiskAppetite != "" {
		r := user.RiskAppetite
		risk = &r
	}
	if age == nil || risk == nil {
		return advice.Recommendation{}, ErrProfileIncomplete
	}

	seq, err := a.entries(s, EntryFilter{})
	if err != nil {
		return advice.Recommendation{}, err
	}
	rate := aggregate.SavingsRate(aggregate.ComputeTotals(seq))

	rec, err := advice.Recommend(*age, *risk, rate)
	if err != nil {
		var cerr *advice.ConfigurationError
		if errors.As(err, &cerr) {
			a.log.Failure(ctx, "recommendation lookup failed", err, applog.FieldUsername, user.Username)
		}
		return advice.Recommendation{}, err
	}
	return rec, nil
}

// Quote looks up a market price. Failures surface as market.ErrUnavailable.
func (a *App) Quote(ctx context.Context, s *session.Session, symbol string) (decimal.Decimal, error) {
	if _, err := s.Require(); err != nil {
		return decimal.Zero, err
	}
	price, err := a.market.GetLastPrice(ctx, symbol)
	if err != nil {
		a.log.DebugContext(ctx, "quote unavailable", applog.FieldSymbol, symbol, applog.FieldError, err)
		if !errors.Is(err, market.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", market.ErrUnavailable, err)
		}
		return decimal.Zero, err
	}
	return price, nil
}

// ImportResult counts what a restore or import actually added.
type ImportResult struct {
	Entries int `json:"entries"`
	Goals   int `json:"goals"`
}

// Import merges entries and goals into the caller's data. Items already
// present are skipped, so importing the same data twice is harmless.
func (a *App) Import(ctx context.Context, s *session.Session, entries []models.Entry, goalList []models.Goal) (ImportResult, error) {
	username, err := s.Require()
	if err != nil {
		return ImportResult{}, err
	}
	var res ImportResult
	if len(entries) > 0 {
		if res.Entries, err = a.ledger.Import(ctx, username, entries); err != nil {
			return res, err
		}
	}
	if len(goalList) > 0 {
		if res.Goals, err = a.goals.Import(ctx, username, goalList); err != nil {
			return res, err
		}
	}
	a.log.InfoContext(ctx, "data imported", applog.FieldUsername, username,
		"entries", res.Entries, "goals", res.Goals)
	return res, nil
}
