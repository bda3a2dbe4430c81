package model

// Lease marks which process may write the reminder list. A lease whose
// ExpiresAt lies in the past is free to take over.
type Lease struct {
	Name      string `gorm:"primaryKey"`
	Holder    string `gorm:"not null"`
	Role      string
	PID       int   `gorm:"column:pid"`
	ExpiresAt int64 `gorm:"not null"` // unix seconds
}
