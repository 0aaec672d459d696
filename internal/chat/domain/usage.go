package domain

import (
	"fmt"
	"time"
)

// DefaultQuotaLimit free-tier sends per period for metered actors
const DefaultQuotaLimit int64 = 100

// UsageCounter monthly send count of one metered actor
type UsageCounter struct {
	ActorID   string    `gorm:"primaryKey;size:64" json:"actor_id"`
	PeriodKey string    `gorm:"primaryKey;size:16" json:"period_key"`
	SentCount int64     `gorm:"not null;default:0" json:"sent_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName gorm table
func (UsageCounter) TableName() string {
	return "usage_counters"
}

// PeriodFunc map an instant to its metering window key
type PeriodFunc func(time.Time) string

// CalendarMonth window key "2006-01" in UTC
func CalendarMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodByName resolve the configured period policy
func PeriodByName(name string) (PeriodFunc, error) {
	switch name {
	case "", "calendar_month":
		return CalendarMonth, nil
	}
	return nil, fmt.Errorf("unknown quota period %q", name)
}
