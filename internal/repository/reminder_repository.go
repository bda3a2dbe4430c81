package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"growell/internal/model"
)

// ReminderRepository persists the ordered reminder list under one namespace.
type ReminderRepository struct {
	db        *gorm.DB
	namespace string
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db, namespace: model.RemindersNamespace}
}

// Load returns the stored list in insertion order.
func (r *ReminderRepository) Load(ctx context.Context) ([]model.Reminder, error) {
	var rows []model.Reminder
	if err := r.db.WithContext(ctx).Where("namespace = ?", r.namespace).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}
	return rows, nil
}

// Save replaces the stored list with rows, keeping their order.
func (r *ReminderRepository) Save(ctx context.Context, rows []model.Reminder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("namespace = ?", r.namespace).Delete(&model.Reminder{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		batch := make([]model.Reminder, len(rows))
		for i, row := range rows {
			row.RowID = 0
			row.Namespace = r.namespace
			row.Position = i
			batch[i] = row
		}
		return tx.Create(&batch).Error
	})
	if err != nil {
		return fmt.Errorf("save reminders: %w", err)
	}
	return nil
}

// Count returns how many reminders are stored.
func (r *ReminderRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("namespace = ?", r.namespace).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count reminders: %w", err)
	}
	return n, nil
}
