package models

import (
	"fmt"
	"strings"
)

// Tier is one of the five recurrence categories. Each tier owns a settings
// collection (the catalog) and a checks collection (the completion log).
type Tier string

const (
	TierDaily     Tier = "daily"
	TierWeekly    Tier = "weekly"
	TierMonthly   Tier = "monthly"
	TierQuarterly Tier = "quarterly"
	TierYearly    Tier = "yearly"
)

// Tiers lists every tier in menu order.
var Tiers = []Tier{TierDaily, TierWeekly, TierMonthly, TierQuarterly, TierYearly}

// ParseTier parses a tier name (case-insensitive)
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tiers {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid tier: %q (expected daily|weekly|monthly|quarterly|yearly)", s)
}

// SettingsCollection is the record store collection holding the tier's catalog.
func (t Tier) SettingsCollection() string {
	return string(t) + "Settings"
}

// ChecksCollection is the record store collection holding the tier's completion logs.
func (t Tier) ChecksCollection() string {
	return string(t) + "Checks"
}

// SlotFields returns the slot dimensions a tier uses, in their sort precedence.
func (t Tier) SlotFields() []SlotField {
	switch t {
	case TierDaily, TierWeekly:
		return []SlotField{SlotDay}
	case TierMonthly:
		return []SlotField{SlotWeek, SlotDay}
	case TierQuarterly, TierYearly:
		return []SlotField{SlotMonth}
	default:
		return nil
	}
}

// HasSlotField reports whether f is a slot dimension of the tier.
func (t Tier) HasSlotField(f SlotField) bool {
	for _, own := range t.SlotFields() {
		if own == f {
			return true
		}
	}
	return false
}

// Title returns the display title of the tier.
func (t Tier) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// CheckPolicy decides how a run sheet initializes its checked flags from the
// stored completion logs.
type CheckPolicy string

const (
	// PolicyFromLog checks every task whose log has both a timestamp and a user.
	PolicyFromLog CheckPolicy = "from-log"
	// PolicyCleared starts every task unchecked; past logs are displayed only.
	PolicyCleared CheckPolicy = "cleared"
)

// ParseCheckPolicy parses a policy name.
func ParseCheckPolicy(s string) (CheckPolicy, error) {
	switch p := CheckPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyFromLog, PolicyCleared:
		return p, nil
	default:
		return "", fmt.Errorf("invalid check policy: %q (expected from-log|cleared)", s)
	}
}

// DefaultCheckPolicy returns the policy a tier uses when none is configured.
// Short cycles start fresh; long cycles show what is already done.
func (t Tier) DefaultCheckPolicy() CheckPolicy {
	switch t {
	case TierDaily, TierWeekly:
		return PolicyCleared
	default:
		return PolicyFromLog
	}
}
