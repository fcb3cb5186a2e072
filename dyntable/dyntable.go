// Package dyntable provisions and writes the dedicated data table each
// published form gets. Table names are allocated from the form_sequence
// registry; columns are derived from field labels, so renaming a field
// changes the effective schema of future submissions. The submission index
// table keeps a stable id per row regardless.
package dyntable

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/purposewaze/form-studio/model"
)

var ErrNotProvisioned = errors.New("form has no data table")

type Tables struct {
	DB *sql.DB
}

// CreatePublished allocates a table name for the form and creates the table
// with one column per field plus the fixed respondent columns. A form that
// was published before keeps its table: re-publishing after an archive or a
// failed publish falls through to the column diff instead of recreating.
func (t Tables) CreatePublished(ctx context.Context, form model.Form) (string, error) {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	var seq int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO form_sequence (form_id) VALUES (?)
		ON CONFLICT (form_id) DO UPDATE SET form_id = form_id
		RETURNING seq`,
		form.ID,
	).Scan(&seq)
	if err != nil {
		return "", errors.Wrap(err, "allocate sequence")
	}

	tableName := fmt.Sprintf("form_data_%d", seq)
	_, err = tx.ExecContext(ctx, `
		UPDATE form_sequence SET table_name = ? WHERE form_id = ?`,
		tableName,
		form.ID,
	)
	if err != nil {
		return "", errors.Wrap(err, "register table")
	}

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		tableName,
	).Scan(&exists)
	if err != nil {
		return "", errors.Wrapf(err, "probe %s", tableName)
	}

	if exists == 0 {
		_, err = tx.ExecContext(ctx, createTableDDL(tableName, form.Fields))
		if err != nil {
			return "", errors.Wrapf(err, "create %s", tableName)
		}
	}

	err = tx.Commit()
	if err != nil {
		return "", errors.Wrap(err, "commit")
	}

	if exists > 0 {
		err = t.UpdatePublished(ctx, form)
		if err != nil {
			return "", err
		}
	}
	return tableName, nil
}

func createTableDDL(name string, fields []model.FormField) string {
	cols := []string{
		`"id" TEXT PRIMARY KEY`,
		`"email" TEXT NOT NULL`,
		`"name" TEXT`,
		`"submitted_at" TIMESTAMP NOT NULL`,
		`"ip_address" TEXT`,
	}
	for i, col := range ColumnNames(fields) {
		cols = append(cols, fmt.Sprintf("%q %s", col, columnType(fields[i].Type)))
	}
	return fmt.Sprintf("CREATE TABLE %q (%s)", name, strings.Join(cols, ", "))
}

// UpdatePublished adds columns for fields the existing table does not cover.
// SQLite cannot drop columns cheaply, so columns of removed fields stay.
func (t Tables) UpdatePublished(ctx context.Context, form model.Form) error {
	tableName, err := t.TableName(ctx, form.ID)
	if err != nil {
		return err
	}

	rows, err := t.DB.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, tableName)
	if err != nil {
		return errors.Wrapf(err, "inspect %s", tableName)
	}
	defer rows.Close()

	existing := map[string]bool{}
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return errors.Wrap(err, "scan column")
		}
		existing[name] = true
	}
	err = rows.Err()
	if err != nil {
		return errors.Wrap(err, "columns")
	}

	for i, col := range ColumnNames(form.Fields) {
		if existing[col] {
			continue
		}
		_, err = t.DB.ExecContext(ctx, fmt.Sprintf(
			"ALTER TABLE %q ADD COLUMN %q %s", tableName, col, columnType(form.Fields[i].Type),
		))
		if err != nil {
			return errors.Wrapf(err, "add column %s", col)
		}
	}
	return nil
}

// Drop removes the form's data table and its registry row, best-effort.
func (t Tables) Drop(ctx context.Context, formID string) error {
	tableName, err := t.TableName(ctx, formID)
	if err != nil && !errors.Is(err, ErrNotProvisioned) {
		return err
	}
	if tableName != "" {
		_, err = t.DB.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", tableName))
		if err != nil {
			return errors.Wrapf(err, "drop %s", tableName)
		}
	}
	_, err = t.DB.ExecContext(ctx, `DELETE FROM form_sequence WHERE form_id = ?`, formID)
	return errors.Wrap(err, "unregister")
}

// Submit writes one respondent row, values keyed by field label, plus the
// submission index row, in a single transaction. Returns the submission id.
func (t Tables) Submit(ctx context.Context, form model.Form, email, ip string, values map[string]any) (string, error) {
	tableName, err := t.TableName(ctx, form.ID)
	if err != nil {
		return "", err
	}

	submissionID := uuid.Must(uuid.NewV4()).String()
	now := time.Now().UTC()

	cols := []string{`"id"`, `"email"`, `"submitted_at"`, `"ip_address"`}
	args := []any{submissionID, email, now, ip}
	for i, col := range ColumnNames(form.Fields) {
		value, ok := values[form.Fields[i].Label]
		if !ok {
			continue
		}
		encoded, err := encodeValue(value)
		if err != nil {
			return "", errors.Wrapf(err, "encode %s", form.Fields[i].Label)
		}
		cols = append(cols, fmt.Sprintf("%q", col))
		args = append(args, encoded)
	}

	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %q (%s) VALUES (%s)", tableName, strings.Join(cols, ", "), placeholders,
	), args...)
	if err != nil {
		return "", errors.Wrapf(err, "insert into %s", tableName)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submission (id, form_id, email, time, ip) VALUES (?, ?, ?, ?, ?)`,
		submissionID,
		form.ID,
		email,
		now,
		ip,
	)
	if err != nil {
		return "", errors.Wrap(err, "index submission")
	}

	err = tx.Commit()
	if err != nil {
		return "", errors.Wrap(err, "commit")
	}
	return submissionID, nil
}

// TableName resolves the registered data table for a form.
func (t Tables) TableName(ctx context.Context, formID string) (string, error) {
	var tableName string
	err := t.DB.
		QueryRowContext(ctx, `SELECT table_name FROM form_sequence WHERE form_id = ?`, formID).
		Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && tableName == "") {
		return "", ErrNotProvisioned
	}
	if err != nil {
		return "", errors.Wrap(err, "lookup table")
	}
	return tableName, nil
}

// Verify reads the registry back after provisioning; publication is only
// confirmed once the side index row matches.
func (t Tables) Verify(ctx context.Context, formID, tableName string) error {
	registered, err := t.TableName(ctx, formID)
	if err != nil {
		return err
	}
	if registered != tableName {
		return errors.Errorf("table %s not registered for form %s", tableName, formID)
	}
	return nil
}

func encodeValue(value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool, int, int64, float64:
		return v, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}
