package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"growell/internal/model"
)

// ErrLeaseHeld is returned when another holder owns an unexpired lease.
var ErrLeaseHeld = errors.New("lease held by another process")

// LeaseRepository stores named leases that expire unless renewed.
type LeaseRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLeaseRepository(db *gorm.DB) *LeaseRepository {
	return &LeaseRepository{db: db, now: time.Now}
}

// Acquire takes lease for ttl, or renews it when lease.Holder already owns
// it. The check and the write are one upsert statement.
func (r *LeaseRepository) Acquire(ctx context.Context, lease model.Lease, ttl time.Duration) error {
	now := r.now()
	lease.ExpiresAt = now.Add(ttl).Unix()

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"holder", "role", "pid", "expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "leases.expires_at <= ? OR leases.holder = ?", Vars: []interface{}{now.Unix(), lease.Holder}},
		}},
	}).Create(&lease)
	if res.Error != nil {
		return fmt.Errorf("acquire lease %q: %w", lease.Name, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var current model.Lease
	if err := r.db.WithContext(ctx).First(&current, "name = ?", lease.Name).Error; err != nil {
		return fmt.Errorf("acquire lease %q: %w", lease.Name, ErrLeaseHeld)
	}
	return fmt.Errorf("acquire lease %q: %w: %s (pid %d) until %s",
		lease.Name, ErrLeaseHeld, current.Role, current.PID, time.Unix(current.ExpiresAt, 0).Format(time.RFC3339))
}

// Release gives up the lease if holder still owns it.
func (r *LeaseRepository) Release(ctx context.Context, name, holder string) error {
	if err := r.db.WithContext(ctx).
		Where("name = ? AND holder = ?", name, holder).
		Delete(&model.Lease{}).Error; err != nil {
		return fmt.Errorf("release lease %q: %w", name, err)
	}
	return nil
}
