package model

import (
	"encoding/json"
	"time"
)

type FormStatus string

const (
	StatusDraft     FormStatus = "draft"
	StatusPublished FormStatus = "published"
	StatusArchived  FormStatus = "archived"
)

func (s FormStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// FormKind selects the template preset and the public route of a form.
// It replaces lookup by title string comparison.
type FormKind string

const (
	KindStandard          FormKind = "standard"
	KindIdentityCollision FormKind = "identity-collision"
)

func (k FormKind) Valid() bool {
	return k == KindStandard || k == KindIdentityCollision
}

// PublicPath is the route template public respondents reach the form at.
func (k FormKind) PublicPath() string {
	if k == KindIdentityCollision {
		return "/identity-collision/"
	}
	return "/f/"
}

type Form struct {
	ID          string       `json:"id,omitempty"`
	OwnerID     int          `json:"-"`
	Kind        FormKind     `json:"kind"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      FormStatus   `json:"status"`
	Settings    FormSettings `json:"settings"`
	Version     int          `json:"version,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
	Fields      []FormField  `json:"fields"`
}

type FormSettings struct {
	WebhookURL string `json:"webhook_url,omitempty"`
}

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPhone    FieldType = "phone"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldRanking  FieldType = "ranking"
	FieldTextarea FieldType = "textarea"
	FieldDate     FieldType = "date"
	FieldFile     FieldType = "file"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldPhone, FieldNumber, FieldSelect, FieldCheckbox,
		FieldRadio, FieldRanking, FieldTextarea, FieldDate, FieldFile:
		return true
	}
	return false
}

// HasOptions reports whether the field type carries an option list.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldRadio || t == FieldRanking
}

type FormField struct {
	ID              string          `json:"id,omitempty"`
	FormID          string          `json:"-"`
	Type            FieldType       `json:"type"`
	Label           string          `json:"label"`
	Placeholder     string          `json:"placeholder,omitempty"`
	Required        bool            `json:"required"`
	Options         []string        `json:"options,omitempty"`
	ValidationRules json.RawMessage `json:"validation_rules,omitempty"`
	FieldOrder      int             `json:"field_order"`
}

type Submission struct {
	ID     string         `json:"id"`
	FormID string         `json:"form_id"`
	Email  string         `json:"email"`
	Time   time.Time      `json:"time"`
	IP     string         `json:"ip,omitempty"`
	Values map[string]any `json:"values,omitempty"`
}

// Report rows are written back by the external workflow system.
// Payload is either a JSON object or a bare JSON string.
type Report struct {
	ID           string          `json:"id"`
	SubmissionID string          `json:"submission_id"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Payload      json.RawMessage `json:"report_json"`
}

type Profile struct {
	UserID       int    `json:"-"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Phone        string `json:"phone"`
	Theme        string `json:"theme"`
}

type Participant struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at,omitempty"`
}

// Themes is the fixed palette a profile theme cycles through.
var Themes = []string{"light", "dark", "sunset", "forest", "ocean"}

func ValidTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}

// NextTheme returns the palette entry after the given one, wrapping around.
// Unknown names restart the cycle.
func NextTheme(name string) string {
	for i, t := range Themes {
		if t == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

// PublishTransition classifies what a form save means for its data table.
type PublishTransition int

const (
	// EditOnly saves need no table work.
	EditOnly PublishTransition = iota
	// FirstPublish provisions a dedicated data table.
	FirstPublish
	// Republish alters the existing table structure.
	Republish
)

func (t PublishTransition) String() string {
	switch t {
	case FirstPublish:
		return "first-publish"
	case Republish:
		return "republish"
	}
	return "edit"
}

// DetectTransition maps a status pair to the table side effect a save entails.
func DetectTransition(prev, next FormStatus) PublishTransition {
	switch {
	case next == StatusPublished && prev != StatusPublished:
		return FirstPublish
	case next == StatusPublished && prev == StatusPublished:
		return Republish
	}
	return EditOnly
}
