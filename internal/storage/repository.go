package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camuig/autotrader/internal/broker"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// first returns nil, nil when no row matched.
func first[T any](q *gorm.DB) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Runs

func (r *Repository) SaveRun(ctx context.Context, run *RunLogEntry) error {
	return r.conn(ctx).Create(run).Error
}

func (r *Repository) GetRun(ctx context.Context, id string) (*RunLogEntry, error) {
	return first[RunLogEntry](r.conn(ctx).Where("id = ?", id))
}

// LastActiveRun is the most recent run that got past the gates or was
// refused for a reason other than a skip.
func (r *Repository) LastActiveRun(ctx context.Context) (*RunLogEntry, error) {
	return first[RunLogEntry](r.conn(ctx).
		Where("outcome <> ?", OutcomeSkipped).
		Order("started_at DESC"))
}

func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]RunLogEntry, error) {
	var runs []RunLogEntry
	err := r.conn(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// RunSummary counts runs per outcome started at or after since.
func (r *Repository) RunSummary(ctx context.Context, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		Count   int64
	}
	err := r.conn(ctx).Model(&RunLogEntry{}).
		Select("outcome, COUNT(*) AS count").
		Where("started_at >= ?", since).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := map[string]int64{
		OutcomeSuccess:    0,
		OutcomeNoTrades:   0,
		OutcomeNoResponse: 0,
		OutcomeSkipped:    0,
		OutcomeError:      0,
	}
	for _, row := range rows {
		out[row.Outcome] = row.Count
	}
	return out, nil
}

// Trades

func (r *Repository) SaveTrade(ctx context.Context, trade *Trade) error {
	return r.conn(ctx).Create(trade).Error
}

func (r *Repository) UpdateTrade(ctx context.Context, trade *Trade) error {
	return r.conn(ctx).Save(trade).Error
}

func (r *Repository) RecentTrades(ctx context.Context, limit int) ([]Trade, error) {
	var trades []Trade
	err := r.conn(ctx).Order("created_at DESC").Limit(limit).Find(&trades).Error
	return trades, err
}

func (r *Repository) TradesByRun(ctx context.Context, runID string) ([]Trade, error) {
	var trades []Trade
	err := r.conn(ctx).Where("run_id = ?", runID).Order("id").Find(&trades).Error
	return trades, err
}

// PendingTrades are trades whose broker order may still change.
func (r *Repository) PendingTrades(ctx context.Context) ([]Trade, error) {
	var trades []Trade
	err := r.conn(ctx).
		Where("order_id <> '' AND status IN ?", []string{
			string(broker.StatusSubmitted),
			string(broker.StatusPartiallyFilled),
		}).
		Order("created_at, id").
		Find(&trades).Error
	return trades, err
}

// CountTradesSince counts orders the broker accepted since the given time.
func (r *Repository) CountTradesSince(ctx context.Context, since time.Time) (int, error) {
	var n int64
	err := r.conn(ctx).Model(&Trade{}).
		Where("created_at >= ? AND status <> ?", since, string(broker.StatusRejected)).
		Count(&n).Error
	return int(n), err
}

// Portfolio snapshots

// SavePortfolioSnapshot stores the snapshot together with its positions.
func (r *Repository) SavePortfolioSnapshot(ctx context.Context, snapshot *PortfolioSnapshot) error {
	return r.conn(ctx).Create(snapshot).Error
}

func (r *Repository) LatestSnapshot(ctx context.Context) (*PortfolioSnapshot, error) {
	return first[PortfolioSnapshot](r.conn(ctx).
		Preload("Positions").
		Order("created_at DESC, id DESC"))
}

// Kill switch

func (r *Repository) SetKillSwitch(ctx context.Context, active bool, reason, actor string) (*KillSwitchEvent, error) {
	ev := &KillSwitchEvent{Active: active, Reason: reason, Actor: actor}
	if err := r.conn(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

// KillSwitch returns the latest event, or nil when the switch was never touched.
func (r *Repository) KillSwitch(ctx context.Context) (*KillSwitchEvent, error) {
	return first[KillSwitchEvent](r.conn(ctx).Order("created_at DESC, id DESC"))
}

func (r *Repository) KillSwitchActive(ctx context.Context) (bool, error) {
	ev, err := r.KillSwitch(ctx)
	if err != nil {
		return false, err
	}
	return ev != nil && ev.Active, nil
}

func (r *Repository) KillSwitchHistory(ctx context.Context, limit int) ([]KillSwitchEvent, error) {
	var events []KillSwitchEvent
	err := r.conn(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error
	return events, err
}

// Leases

// AcquireLease takes the named lease for holder unless another holder owns an
// unexpired one. It never waits.
func (r *Repository) AcquireLease(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error) {
	lease := Lease{Name: name, Holder: holder, ExpiresAt: now.Add(ttl).UTC()}

	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&lease)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	res = r.conn(ctx).Model(&Lease{}).
		Where("name = ? AND (holder = ? OR expires_at < ?)", name, holder, now.UTC()).
		Updates(map[string]any{"holder": holder, "expires_at": lease.ExpiresAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseLease drops the lease if holder still owns it.
func (r *Repository) ReleaseLease(ctx context.Context, name, holder string) error {
	return r.conn(ctx).Where("name = ? AND holder = ?", name, holder).Delete(&Lease{}).Error
}
