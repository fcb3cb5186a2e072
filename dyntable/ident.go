package dyntable

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/purposewaze/form-studio/model"
)

var reNoIdent = regexp.MustCompile(`\W+`)

// reservedColumns are the fixed respondent columns every data table carries.
var reservedColumns = []string{"id", "email", "name", "submitted_at", "ip_address"}

// ColumnNames derives one SQL identifier per field from its label.
// Clashes with reserved columns or duplicate labels get a __n suffix
// so the column set stays unique.
func ColumnNames(fields []model.FormField) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		name := strings.ToLower(f.Label)
		name = reNoIdent.ReplaceAllLiteralString(name, " ")
		name = strings.Join(strings.Fields(name), "_")
		if name == "" {
			name = "field"
		}

		n := 0
		for _, reserved := range reservedColumns {
			if reserved == name {
				n++
			}
		}
		for _, prev := range names[:i] {
			if prev == name || strings.HasPrefix(prev, name+"__") {
				n++
			}
		}
		if n > 0 {
			name = fmt.Sprintf("%s__%d", name, n)
		}

		names[i] = name
	}
	return names
}

func columnType(t model.FieldType) string {
	switch t {
	case model.FieldNumber:
		return "NUMERIC"
	case model.FieldCheckbox:
		return "BOOLEAN"
	case model.FieldDate:
		return "DATE"
	}
	return "TEXT"
}
