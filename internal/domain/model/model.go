// Package model contains value types shared between the domain packages.
package model

import (
	"fmt"
	"strings"
)

// Dimension is one of the four personality dimensions a customer is scored on.
type Dimension string

// Personality dimensions, listed in tie-break order.
const (
	Analytical Dimension = "analytical"
	Driver     Dimension = "driver"
	Expressive Dimension = "expressive"
	Amiable    Dimension = "amiable"
)

// Dimensions returns every dimension in the fixed tie-break order.
func Dimensions() []Dimension {
	return []Dimension{Analytical, Driver, Expressive, Amiable}
}

// Valid reports whether d is one of the four known dimensions.
func (d Dimension) Valid() bool {
	switch d {
	case Analytical, Driver, Expressive, Amiable:
		return true
	default:
		return false
	}
}

// ParseDimension converts a case-insensitive name into a Dimension.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	if d.Valid() {
		return d, nil
	}
	return "", fmt.Errorf("unknown personality dimension %q", s)
}

// Category tags a signal with the kind of customer cue it represents.
type Category string

// Signal categories used by the default catalog. Catalogs may declare others.
const (
	CategoryFinancial      Category = "financial"
	CategoryTechnical      Category = "technical"
	CategoryCompetitive    Category = "competitive"
	CategoryEmotional      Category = "emotional"
	CategoryUrgency        Category = "urgency"
	CategoryFamily         Category = "family"
	CategoryEnvironmental  Category = "environmental"
	CategoryInfrastructure Category = "infrastructure"
	CategoryObjection      Category = "objection"
)

// CategoryPair is an unordered pair of distinct categories. Build it with
// NewCategoryPair so that (a,b) and (b,a) compare equal.
type CategoryPair struct {
	First  Category `json:"first"`
	Second Category `json:"second"`
}

// NewCategoryPair returns the canonical (lexically ordered) pair.
func NewCategoryPair(a, b Category) CategoryPair {
	if b < a {
		a, b = b, a
	}
	return CategoryPair{First: a, Second: b}
}

// Key renders the pair as "first+second".
func (p CategoryPair) Key() string {
	return string(p.First) + "+" + string(p.Second)
}

// IntentLevel is an ordinal purchase-intent tag carried by a signal.
type IntentLevel string

// Intent levels, lowest first.
const (
	IntentLow    IntentLevel = "low"
	IntentMedium IntentLevel = "medium"
	IntentHigh   IntentLevel = "high"
)

// Rank returns the ordinal position of the level, or -1 when unknown.
func (l IntentLevel) Rank() int {
	switch l {
	case IntentLow:
		return 0
	case IntentMedium:
		return 1
	case IntentHigh:
		return 2
	default:
		return -1
	}
}

// Stage is a point in the customer's progression through the sales pipeline.
type Stage string

// Pipeline stages in canonical order.
const (
	StageInitialAnalysis  Stage = "initial_analysis"
	StagePostConversation Stage = "post_conversation"
	StageTestDriveBooked  Stage = "test_drive_booked"
	StagePostTestDrive    Stage = "post_test_drive"
	StagePurchase         Stage = "purchase"
)

var stageOrder = map[Stage]int{
	StageInitialAnalysis:  0,
	StagePostConversation: 1,
	StageTestDriveBooked:  2,
	StagePostTestDrive:    3,
	StagePurchase:         4,
}

// Index returns the stage position in the canonical ordering, or -1 when unknown.
func (s Stage) Index() int {
	if i, ok := stageOrder[s]; ok {
		return i
	}
	return -1
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return s.Index() >= 0 }

// Stages returns all stages in canonical order.
func Stages() []Stage {
	return []Stage{
		StageInitialAnalysis,
		StagePostConversation,
		StageTestDriveBooked,
		StagePostTestDrive,
		StagePurchase,
	}
}
