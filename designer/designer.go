// Package designer holds the in-memory field draft operations behind the
// form editor. Nothing here touches the database; persistence happens in one
// transaction when the form is saved.
package designer

import (
	"github.com/gofrs/uuid"

	"github.com/purposewaze/form-studio/model"
)

var defaultLabels = map[model.FieldType]string{
	model.FieldText:     "Text Field",
	model.FieldPhone:    "Phone",
	model.FieldNumber:   "Number",
	model.FieldSelect:   "Options List",
	model.FieldCheckbox: "Checkbox",
	model.FieldRadio:    "Multiple Choice",
	model.FieldRanking:  "Ranking Field",
	model.FieldTextarea: "Text Area",
	model.FieldDate:     "Date",
	model.FieldFile:     "File",
}

// DefaultOptions returns the placeholder option list a fresh field starts with.
func DefaultOptions(t model.FieldType) []string {
	switch t {
	case model.FieldSelect, model.FieldRadio:
		return []string{"Option 1", "Option 2"}
	case model.FieldRanking:
		return []string{"Item 1", "Item 2", "Item 3"}
	}
	return nil
}

// Draft is an ordered working copy of a form's field list.
type Draft struct {
	Fields []model.FormField
}

// AddField appends a fresh field with type-specific defaults.
func (d *Draft) AddField(t model.FieldType) model.FormField {
	field := model.FormField{
		ID:          uuid.Must(uuid.NewV4()).String(),
		Type:        t,
		Label:       defaultLabels[t],
		Placeholder: "Type here...",
		Options:     DefaultOptions(t),
		FieldOrder:  len(d.Fields),
	}
	d.Fields = append(d.Fields, field)
	return field
}

// UpdateField shallow-merges a patch into the field with the given id.
func (d *Draft) UpdateField(id string, patch FieldPatch) bool {
	for i := range d.Fields {
		if d.Fields[i].ID != id {
			continue
		}
		patch.apply(&d.Fields[i])
		return true
	}
	return false
}

// RemoveField deletes by id and closes the order gap.
func (d *Draft) RemoveField(id string) bool {
	for i := range d.Fields {
		if d.Fields[i].ID == id {
			d.Fields = append(d.Fields[:i], d.Fields[i+1:]...)
			d.Normalize()
			return true
		}
	}
	return false
}

// Reorder removes the field at from and reinserts it at to.
func (d *Draft) Reorder(from, to int) {
	if from < 0 || from >= len(d.Fields) || to < 0 || to >= len(d.Fields) {
		return
	}
	field := d.Fields[from]
	rest := append(d.Fields[:from:from], d.Fields[from+1:]...)
	d.Fields = append(rest[:to:to], append([]model.FormField{field}, rest[to:]...)...)
	d.Normalize()
}

// Normalize re-derives every order index from array position.
func (d *Draft) Normalize() {
	for i := range d.Fields {
		d.Fields[i].FieldOrder = i
	}
}

// FieldPatch carries the updatable parts of a field definition.
// Nil pointers leave the current value alone.
type FieldPatch struct {
	Type            *model.FieldType
	Label           *string
	Placeholder     *string
	Required        *bool
	Options         *[]string
	ValidationRules []byte
}

func (p FieldPatch) apply(f *model.FormField) {
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Placeholder != nil {
		f.Placeholder = *p.Placeholder
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.Options != nil {
		f.Options = *p.Options
	}
	if p.ValidationRules != nil {
		f.ValidationRules = p.ValidationRules
	}
}
