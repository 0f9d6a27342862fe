package models

import (
	"time"
)

// CheckTrigger records what caused a check run.
type CheckTrigger string

const (
	TriggerScheduled CheckTrigger = "scheduled"
	TriggerManual    CheckTrigger = "manual"
)

// CheckRunStatus is the outcome of a single check run.
type CheckRunStatus string

const (
	CheckOK         CheckRunStatus = "ok"
	CheckFetchError CheckRunStatus = "fetch_error"
	CheckParseError CheckRunStatus = "parse_error"
)

// CheckRun records one execution of the checker against an item. Failures
// are recorded here (and on the item) instead of propagating; the next
// eligible cycle retries.
type CheckRun struct {
	ID         uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID      string         `json:"run_id" gorm:"not null;uniqueIndex"`
	ItemID     uint           `json:"item_id" gorm:"not null;index"`
	Trigger    CheckTrigger   `json:"trigger" gorm:"not null;default:'scheduled'"`
	Status     CheckRunStatus `json:"status" gorm:"not null"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at" gorm:"not null"`
	FinishedAt time.Time      `json:"finished_at"`
}
