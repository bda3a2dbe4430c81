package model

import "time"

// RemindersNamespace is the single storage entry the reminder list lives under.
const RemindersNamespace = "@GroWell:reminders"

// Reminder is the persisted, flat form of a reminder.
type Reminder struct {
	RowID       uint   `gorm:"primaryKey"`
	Namespace   string `gorm:"index:idx_namespace_position"`
	Position    int    `gorm:"index:idx_namespace_position"`
	ID          string `gorm:"uniqueIndex"`
	Title       string
	Description string
	Hour        int
	Minute      int
	Frequency   string     // Once, Daily or Weekly
	Date        *time.Time // Once only
	Weekday     *int       // Weekly only, 0-6 with Sunday=0
	IsEnabled   bool
	Handle      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
