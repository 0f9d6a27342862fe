package models

import (
	"fmt"
	"time"
)

// TargetRule is the comparison applied between an observed price and the
// target amount. The default is RuleAtOrBelow: a price equal to the target
// satisfies it.
type TargetRule string

const (
	RuleAtOrBelow TargetRule = "at_or_below"
	RuleBelow     TargetRule = "below"
)

// AllTargetRules returns the supported comparison rules.
func AllTargetRules() []TargetRule {
	return []TargetRule{RuleAtOrBelow, RuleBelow}
}

// Valid reports whether the rule is one of the supported comparisons.
func (r TargetRule) Valid() bool {
	return r == RuleAtOrBelow || r == RuleBelow
}

// Target is a user-set price threshold for an item. Satisfied only moves
// forward (false -> true) when a qualifying price is observed; it is cleared
// only by an explicit user reset.
type Target struct {
	ID               uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	ItemID           uint       `json:"item_id" gorm:"not null;index"`
	AmountCents      int64      `json:"amount_cents" gorm:"not null"`
	Rule             TargetRule `json:"rule" gorm:"not null;default:'at_or_below'"`
	Satisfied        bool       `json:"satisfied" gorm:"default:false"`
	SatisfiedAt      *time.Time `json:"satisfied_at,omitempty"`
	SatisfiedPriceID *uint      `json:"satisfied_price_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Amount returns the target threshold in major units.
func (t Target) Amount() float64 {
	return float64(t.AmountCents) / 100
}

// Matches reports whether the observed amount satisfies the target's rule.
func (t Target) Matches(amountCents int64) bool {
	switch t.Rule {
	case RuleBelow:
		return amountCents < t.AmountCents
	default:
		return amountCents <= t.AmountCents
	}
}

// Describe renders the rule for notifications, e.g. "at or below $19.99".
func (t Target) Describe() string {
	verb := "at or below"
	if t.Rule == RuleBelow {
		verb = "below"
	}
	return fmt.Sprintf("%s $%.2f", verb, t.Amount())
}
