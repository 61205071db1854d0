package cache

import (
	"encoding/json"
	"time"

	"github.com/quillhealth/quill/internal/journal"
)

type logRecord struct {
	ID               string `gorm:"column:id;primaryKey;size:190;not null"`
	Category         string `gorm:"column:category;size:32;not null;index:idx_logs_created,priority:2"`
	Title            string `gorm:"column:title;size:320;not null"`
	Notes            string `gorm:"column:notes;type:text;not null;default:''"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_logs_created,priority:1"`
	PayloadJSON      string `gorm:"column:payload_json;type:text;not null"`
}

// TableName provides the explicit table binding for GORM.
func (logRecord) TableName() string {
	return "log_records"
}

type reminderRecord struct {
	ID                  string `gorm:"column:id;primaryKey;size:190;not null"`
	ReminderDateSeconds int64  `gorm:"column:reminder_date_s;not null;index"`
	IntervalSeconds     int64  `gorm:"column:interval_s;not null;default:0"`
	TemplateJSON        string `gorm:"column:template_json;type:text;not null"`
}

// TableName provides the explicit table binding for GORM.
func (reminderRecord) TableName() string {
	return "log_reminder_records"
}

type userRecord struct {
	ID                 string `gorm:"column:id;primaryKey;size:190;not null"`
	CreatedAtSeconds   int64  `gorm:"column:created_at_s;not null"`
	LinkedAccountID    string `gorm:"column:linked_account_id;size:190;not null;default:''"`
	LinkedDisplayName  string `gorm:"column:linked_display_name;size:320;not null;default:''"`
	LinkedAccountEmail string `gorm:"column:linked_account_email;size:320;not null;default:''"`
}

// TableName provides the explicit table binding for GORM.
func (userRecord) TableName() string {
	return "active_user_records"
}

// logPayload is the category-specific slice of a log record, stored as JSON.
// Exactly the fields matching the record's category tag may be set; anything
// else is an integrity mismatch on decode.
type logPayload struct {
	MoodRank        *int   `json:"mood_rank,omitempty"`
	MedicationID    string `json:"medication_id,omitempty"`
	Dosage          string `json:"dosage,omitempty"`
	NutritionID     string `json:"nutrition_id,omitempty"`
	Amount          string `json:"amount,omitempty"`
	SymptomID       string `json:"symptom_id,omitempty"`
	Severity        *int   `json:"severity,omitempty"`
	ActivityID      string `json:"activity_id,omitempty"`
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}

func encodeLog(log journal.Loggable) (logRecord, error) {
	if err := log.Validate(); err != nil {
		return logRecord{}, err
	}
	payload := logPayload{}
	switch log.Category {
	case journal.CategoryMood:
		rank := int(log.Mood.Rank)
		payload.MoodRank = &rank
	case journal.CategoryMedication:
		payload.MedicationID = log.Medication.MedicationID
		payload.Dosage = log.Medication.Dosage
	case journal.CategoryNutrition:
		payload.NutritionID = log.Nutrition.NutritionID
		payload.Amount = log.Nutrition.Amount
	case journal.CategorySymptom:
		payload.SymptomID = log.Symptom.SymptomID
		severity := log.Symptom.Severity
		payload.Severity = &severity
	case journal.CategoryActivity:
		payload.ActivityID = log.Activity.ActivityID
		duration := log.Activity.DurationSeconds
		payload.DurationSeconds = &duration
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return logRecord{}, err
	}
	return logRecord{
		ID:               log.ID,
		Category:         string(log.Category),
		Title:            log.Title,
		Notes:            log.Notes,
		CreatedAtSeconds: log.DateCreated.UTC().Unix(),
		PayloadJSON:      string(encoded),
	}, nil
}

func decodeLog(record logRecord) (journal.Loggable, error) {
	category := journal.Category(record.Category)
	if !category.Valid() {
		return journal.Loggable{}, journal.NewIntegrityError(category, "unknown category tag on record "+record.ID)
	}
	var payload logPayload
	if err := json.Unmarshal([]byte(record.PayloadJSON), &payload); err != nil {
		return journal.Loggable{}, err
	}
	log := journal.Loggable{
		ID:          record.ID,
		Title:       record.Title,
		Notes:       record.Notes,
		Category:    category,
		DateCreated: time.Unix(record.CreatedAtSeconds, 0).UTC(),
	}
	switch category {
	case journal.CategoryMood:
		if payload.MoodRank == nil {
			return journal.Loggable{}, journal.NewIntegrityError(category, "record "+record.ID+" lacks mood payload")
		}
		log.Mood = &journal.MoodDetail{Rank: journal.MoodRank(*payload.MoodRank)}
	case journal.CategoryMedication:
		if payload.MedicationID == "" {
			return journal.Loggable{}, journal.NewIntegrityError(category, "record "+record.ID+" lacks medication payload")
		}
		log.Medication = &journal.MedicationDetail{MedicationID: payload.MedicationID, Dosage: payload.Dosage}
	case journal.CategoryNutrition:
		if payload.NutritionID == "" {
			return journal.Loggable{}, journal.NewIntegrityError(category, "record "+record.ID+" lacks nutrition payload")
		}
		log.Nutrition = &journal.NutritionDetail{NutritionID: payload.NutritionID, Amount: payload.Amount}
	case journal.CategorySymptom:
		if payload.SymptomID == "" || payload.Severity == nil {
			return journal.Loggable{}, journal.NewIntegrityError(category, "record "+record.ID+" lacks symptom payload")
		}
		log.Symptom = &journal.SymptomDetail{SymptomID: payload.SymptomID, Severity: *payload.Severity}
	case journal.CategoryActivity:
		if payload.ActivityID == "" || payload.DurationSeconds == nil {
			return journal.Loggable{}, journal.NewIntegrityError(category, "record "+record.ID+" lacks activity payload")
		}
		log.Activity = &journal.ActivityDetail{ActivityID: payload.ActivityID, DurationSeconds: *payload.DurationSeconds}
	}
	if err := log.Validate(); err != nil {
		return journal.Loggable{}, err
	}
	return log, nil
}

// loggableDoc serializes a full Loggable, used for reminder templates.
type loggableDoc struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Notes            string     `json:"notes,omitempty"`
	Category         string     `json:"category"`
	CreatedAtSeconds int64      `json:"created_at_s"`
	Payload          logPayload `json:"payload"`
}

func encodeReminder(reminder journal.LogReminder) (reminderRecord, error) {
	if err := reminder.Validate(); err != nil {
		return reminderRecord{}, err
	}
	templateRecord, err := encodeLog(reminder.Template)
	if err != nil {
		return reminderRecord{}, err
	}
	var payload logPayload
	if err := json.Unmarshal([]byte(templateRecord.PayloadJSON), &payload); err != nil {
		return reminderRecord{}, err
	}
	doc := loggableDoc{
		ID:               templateRecord.ID,
		Title:            templateRecord.Title,
		Notes:            templateRecord.Notes,
		Category:         templateRecord.Category,
		CreatedAtSeconds: templateRecord.CreatedAtSeconds,
		Payload:          payload,
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return reminderRecord{}, err
	}
	return reminderRecord{
		ID:                  reminder.ID,
		ReminderDateSeconds: reminder.ReminderDate.UTC().Unix(),
		IntervalSeconds:     int64(reminder.Interval / time.Second),
		TemplateJSON:        string(encoded),
	}, nil
}

func decodeReminder(record reminderRecord) (journal.LogReminder, error) {
	var doc loggableDoc
	if err := json.Unmarshal([]byte(record.TemplateJSON), &doc); err != nil {
		return journal.LogReminder{}, err
	}
	payloadJSON, err := json.Marshal(doc.Payload)
	if err != nil {
		return journal.LogReminder{}, err
	}
	template, err := decodeLog(logRecord{
		ID:               doc.ID,
		Title:            doc.Title,
		Notes:            doc.Notes,
		Category:         doc.Category,
		CreatedAtSeconds: doc.CreatedAtSeconds,
		PayloadJSON:      string(payloadJSON),
	})
	if err != nil {
		return journal.LogReminder{}, err
	}
	return journal.LogReminder{
		ID:           record.ID,
		ReminderDate: time.Unix(record.ReminderDateSeconds, 0).UTC(),
		Interval:     time.Duration(record.IntervalSeconds) * time.Second,
		Template:     template,
	}, nil
}

func encodeUser(user journal.User) (userRecord, error) {
	if err := user.Validate(); err != nil {
		return userRecord{}, err
	}
	record := userRecord{
		ID:               user.ID,
		CreatedAtSeconds: user.DateCreated.UTC().Unix(),
	}
	if user.LinkedAccount != nil {
		record.LinkedAccountID = user.LinkedAccount.AccountID
		record.LinkedDisplayName = user.LinkedAccount.DisplayName
		record.LinkedAccountEmail = user.LinkedAccount.Email
	}
	return record, nil
}

func decodeUser(record userRecord) journal.User {
	user := journal.User{
		ID:          record.ID,
		DateCreated: time.Unix(record.CreatedAtSeconds, 0).UTC(),
	}
	if record.LinkedAccountID != "" {
		user.LinkedAccount = &journal.ExternalAccountRef{
			AccountID:   record.LinkedAccountID,
			DisplayName: record.LinkedDisplayName,
			Email:       record.LinkedAccountEmail,
		}
	}
	return user
}
