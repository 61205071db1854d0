package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category enumerates the fixed set of journal entry kinds.
type Category string

const (
	CategoryNote       Category = "note"
	CategoryMood       Category = "mood"
	CategoryMedication Category = "medication"
	CategoryNutrition  Category = "nutrition"
	CategorySymptom    Category = "symptom"
	CategoryActivity   Category = "activity"
)

// Categories lists every valid category in declaration order.
var Categories = []Category{
	CategoryNote,
	CategoryMood,
	CategoryMedication,
	CategoryNutrition,
	CategorySymptom,
	CategoryActivity,
}

// Valid reports whether the category belongs to the closed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryNote, CategoryMood, CategoryMedication, CategoryNutrition, CategorySymptom, CategoryActivity:
		return true
	}
	return false
}

const maxIdentifierLength = 190

var (
	// ErrInvalidLogID indicates that a log identifier is empty or exceeds storage bounds.
	ErrInvalidLogID = errors.New("journal: invalid log id")
	// ErrInvalidCategory indicates a category value outside the closed set.
	ErrInvalidCategory = errors.New("journal: invalid category")
	// ErrInvalidMoodRank indicates a mood rank outside the ordinal range.
	ErrInvalidMoodRank = errors.New("journal: invalid mood rank")
	// ErrInvalidSeverity indicates a symptom severity outside [0,40] or off the step grid.
	ErrInvalidSeverity = errors.New("journal: invalid severity")
)

// LogID represents a validated log identifier.
type LogID string

// NewLogID validates raw input and returns a LogID.
func NewLogID(rawInput string) (LogID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLogID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidLogID, maxIdentifierLength)
	}
	return LogID(trimmed), nil
}

// String returns the underlying string identifier.
func (id LogID) String() string {
	return string(id)
}

// MoodRank encodes mood as a zero-based ordinal so averages are arithmetic means.
type MoodRank int

const (
	MoodRankNegative MoodRank = 0
	MoodRankNeutral  MoodRank = 1
	MoodRankPositive MoodRank = 2
)

// Valid reports whether the rank is one of the three ordinals.
func (r MoodRank) Valid() bool {
	return r >= MoodRankNegative && r <= MoodRankPositive
}

const (
	// SeverityMax bounds symptom severity; values step by SeverityStep.
	SeverityMax  = 40
	SeverityStep = 10
)

// MoodDetail carries the mood-specific payload.
type MoodDetail struct {
	Rank MoodRank
}

// MedicationDetail carries the medication-specific payload.
type MedicationDetail struct {
	MedicationID string
	Dosage       string
}

// NutritionDetail carries the nutrition-specific payload.
type NutritionDetail struct {
	NutritionID string
	Amount      string
}

// SymptomDetail carries the symptom-specific payload.
type SymptomDetail struct {
	SymptomID string
	Severity  int
}

// ActivityDetail carries the activity-specific payload.
type ActivityDetail struct {
	ActivityID      string
	DurationSeconds int64
}

// Loggable is a journal entry in one of the six fixed categories. Exactly one
// payload pointer matching Category is set for non-note entries; a mismatch is
// an integrity violation, never coerced.
type Loggable struct {
	ID          string
	Title       string
	Notes       string
	Category    Category
	DateCreated time.Time

	Mood       *MoodDetail
	Medication *MedicationDetail
	Nutrition  *NutritionDetail
	Symptom    *SymptomDetail
	Activity   *ActivityDetail
}

// Validate checks identifier, category membership, payload/category agreement
// and payload-specific bounds.
func (l Loggable) Validate() error {
	if _, err := NewLogID(l.ID); err != nil {
		return err
	}
	if !l.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, l.Category)
	}
	if err := l.checkPayload(); err != nil {
		return err
	}
	switch l.Category {
	case CategoryMood:
		if !l.Mood.Rank.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidMoodRank, l.Mood.Rank)
		}
	case CategorySymptom:
		severity := l.Symptom.Severity
		if severity < 0 || severity > SeverityMax || severity%SeverityStep != 0 {
			return fmt.Errorf("%w: %d", ErrInvalidSeverity, severity)
		}
	}
	return nil
}

func (l Loggable) checkPayload() error {
	type payloadSlot struct {
		category Category
		present  bool
	}
	slots := []payloadSlot{
		{CategoryMood, l.Mood != nil},
		{CategoryMedication, l.Medication != nil},
		{CategoryNutrition, l.Nutrition != nil},
		{CategorySymptom, l.Symptom != nil},
		{CategoryActivity, l.Activity != nil},
	}
	for _, slot := range slots {
		if slot.category == l.Category && !slot.present {
			return NewIntegrityError(l.Category, "missing "+string(slot.category)+" payload")
		}
		if slot.category != l.Category && slot.present {
			return NewIntegrityError(l.Category, "unexpected "+string(slot.category)+" payload")
		}
	}
	return nil
}
