package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/purposewaze/form-studio/app"
	"github.com/purposewaze/form-studio/designer"
	"github.com/purposewaze/form-studio/dyntable"
	"github.com/purposewaze/form-studio/httpx"
	"github.com/purposewaze/form-studio/log"
	"github.com/purposewaze/form-studio/model"
)

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}

		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if form.Kind == "" {
			form.Kind = model.KindStandard
		}
		if !form.Kind.Valid() {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "form.kind", "unknown form kind %q", form.Kind)
			return
		}
		// template preset
		if form.Kind == model.KindIdentityCollision && form.Title == "" {
			form.Title = "Identity Collision Assessment"
		}
		if form.Title == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "form.title", "title is required")
			return
		}

		// new forms always start as drafts; publication is a save-time transition
		form.ID = uuid.Must(uuid.NewV4()).String()
		form.OwnerID = ownerID
		form.Status = model.StatusDraft
		normalizeFields(&form)

		settings, err := json.Marshal(form.Settings)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form.settings", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		now := time.Now().UTC()
		_, err = tx.ExecContext(r.Context(), `
		INSERT INTO form (id, owner_id, kind, title, description, status, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			form.ID,
			form.OwnerID,
			form.Kind,
			form.Title,
			form.Description,
			form.Status,
			string(settings),
			now,
			now,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		err = insertFields(r.Context(), tx, form.ID, form.Fields)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form.fields", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": form.ID,
		})
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}

		query := `
		SELECT f.id, f.kind, f.title, f.description, f.status, f.settings, f.version, f.created_at, f.updated_at
		FROM form f
		WHERE f.owner_id = ?`
		args := []any{ownerID}

		if search := r.URL.Query().Get("search"); search != "" {
			query += ` AND (f.title LIKE ? OR f.description LIKE ?)`
			like := "%" + search + "%"
			args = append(args, like, like)
		}
		query += ` ORDER BY f.updated_at DESC`

		rows, err := app.QueryContext(r.Context(), query, args...)
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}
		defer rows.Close()

		forms := []model.Form{}
		for rows.Next() {
			f, err := scanForm(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_forms.scan", err)
				return
			}
			forms = append(forms, f)
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}
		formID := chi.URLParam(r, "id")

		form, err := loadForm(r.Context(), app.DB, formID, ownerID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_form", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}
		formID := chi.URLParam(r, "id")

		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if !form.Status.Valid() {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "form.status", "unknown status %q", form.Status)
			return
		}
		form.ID = formID
		normalizeFields(&form)

		settings, err := json.Marshal(form.Settings)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.settings", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var prevStatus model.FormStatus
		err = tx.QueryRowContext(r.Context(), `
			SELECT status FROM form WHERE id = ? AND owner_id = ?`,
			formID,
			ownerID,
		).Scan(&prevStatus)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "update_form", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.status", err)
			return
		}

		// full field replace: metadata update, delete all, reinsert, one transaction
		res, err := tx.ExecContext(r.Context(), `
			UPDATE form
			SET
				title = ?,
				description = ?,
				status = ?,
				settings = ?,
				version = version+1,
				updated_at = ?
			WHERE	id = ?
				AND version = ?`,
			form.Title,
			form.Description,
			form.Status,
			string(settings),
			time.Now().UTC(),
			formID,
			form.Version,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form", err)
			return
		}
		// optimistic lock
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_form.verify.conflict")
			return
		}

		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM form_field
			WHERE form_id = ?`,
			formID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.delete_fields", err)
			return
		}

		err = insertFields(r.Context(), tx, formID, form.Fields)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.fields", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.commit", err)
			return
		}

		result := map[string]any{"status": form.Status}

		switch model.DetectTransition(prevStatus, form.Status) {
		case model.FirstPublish:
			tableName, err := provisionTable(r.Context(), app, form)
			if err != nil {
				// compensate: the form goes back to draft before the error surfaces
				revertToDraft(app, formID)
				log.Errorf("publish.create_table: %s", err)
				httpx.LogStatusMsg(w, http.StatusBadGateway, log.ErrorLevel, "publish.create_table",
					"could not provision the data table; form reverted to draft")
				return
			}
			result["table_name"] = tableName

		case model.Republish:
			err = app.Tables.UpdatePublished(r.Context(), form)
			if err != nil {
				log.Errorf("publish.update_table: %s", err)
				httpx.LogStatusMsg(w, http.StatusBadGateway, log.ErrorLevel, "publish.update_table",
					"could not update the data table structure")
				return
			}
		}

		render.JSON(w, r, result)
	}
}

func provisionTable(ctx context.Context, app app.App, form model.Form) (string, error) {
	tableName, err := app.Tables.CreatePublished(ctx, form)
	if err != nil {
		return "", err
	}
	// confirm the side index row before declaring the form published
	err = app.Tables.Verify(ctx, form.ID, tableName)
	if err != nil {
		return "", err
	}
	return tableName, nil
}

func revertToDraft(app app.App, formID string) {
	// request context may already be gone; compensation must still run
	_, err := app.ExecContext(context.Background(), `
		UPDATE form SET status = ?, version = version+1 WHERE id = ?`,
		model.StatusDraft,
		formID,
	)
	if err != nil {
		log.Errorf("publish.revert: %s", err)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}
		formID := chi.URLParam(r, "id")

		// drop the data table first, best-effort: the form row goes either way
		err := app.Tables.Drop(r.Context(), formID)
		if err != nil && !errors.Is(err, dyntable.ErrNotProvisioned) {
			log.Warnf("delete_form.drop_table: %s", err)
		}

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM form WHERE id = ? AND owner_id = ?`,
			formID,
			ownerID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_form", formID)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DuplicateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}
		formID := chi.URLParam(r, "id")

		form, err := loadForm(r.Context(), app.DB, formID, ownerID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "duplicate_form", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.duplicate_form", err)
			return
		}

		// deep copy with fresh ids; the copy is always a draft
		copyID := uuid.Must(uuid.NewV4()).String()
		settings, err := json.Marshal(form.Settings)
		if err != nil {
			httpx.LogInternalError(w, "db.duplicate_form.settings", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		now := time.Now().UTC()
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO form (id, owner_id, kind, title, description, status, settings, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			copyID,
			ownerID,
			form.Kind,
			form.Title+" (Copy)",
			form.Description,
			model.StatusDraft,
			string(settings),
			now,
			now,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.duplicate_form.insert", err)
			return
		}

		fields := make([]model.FormField, len(form.Fields))
		copy(fields, form.Fields)
		for i := range fields {
			fields[i].ID = uuid.Must(uuid.NewV4()).String()
		}
		err = insertFields(r.Context(), tx, copyID, fields)
		if err != nil {
			httpx.LogInternalError(w, "db.duplicate_form.fields", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.duplicate_form.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": copyID,
		})
	}
}

func ShareForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}
		formID := chi.URLParam(r, "id")

		form, err := loadForm(r.Context(), app.DB, formID, ownerID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "share_form", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.share_form", err)
			return
		}

		// the route template follows the form kind
		url := app.PublicBaseURL + form.Kind.PublicPath() + form.ID
		embed := fmt.Sprintf(`<iframe src=%q width="100%%" height="600" frameborder="0"></iframe>`, url)

		render.JSON(w, r, map[string]any{
			"url":        url,
			"embed_code": embed,
		})
	}
}

func FormAnalytics(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}
		formID := chi.URLParam(r, "id")

		form, err := loadForm(r.Context(), app.DB, formID, ownerID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "form_analytics", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.form_analytics", err)
			return
		}

		var count int
		var last sql.NullTime
		err = app.QueryRowContext(r.Context(), `
			SELECT COUNT(*), MAX(time) FROM submission WHERE form_id = ?`,
			formID,
		).Scan(&count, &last)
		if err != nil {
			httpx.LogInternalError(w, "db.form_analytics.count", err)
			return
		}

		tableName, err := app.Tables.TableName(r.Context(), formID)
		if err != nil && !errors.Is(err, dyntable.ErrNotProvisioned) {
			httpx.LogInternalError(w, "db.form_analytics.table", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT date(time), COUNT(*)
			FROM submission
			WHERE form_id = ?
			GROUP BY date(time)
			ORDER BY date(time)`,
			formID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.form_analytics.daily", err)
			return
		}
		defer rows.Close()

		daily := []map[string]any{}
		for rows.Next() {
			var day string
			var n int
			err = rows.Scan(&day, &n)
			if err != nil {
				httpx.LogInternalError(w, "db.form_analytics.daily", err)
				return
			}
			daily = append(daily, map[string]any{"date": day, "count": n})
		}

		result := map[string]any{
			"status":      form.Status,
			"submissions": count,
			"daily":       daily,
			"table_name":  tableName,
		}
		if last.Valid {
			result["last_submission"] = last.Time
		}
		render.JSON(w, r, result)
	}
}

func ListSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}
		formID := chi.URLParam(r, "id")

		_, err := loadForm(r.Context(), app.DB, formID, ownerID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_submissions", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_submissions", err)
			return
		}

		tableName, err := app.Tables.TableName(r.Context(), formID)
		if errors.Is(err, dyntable.ErrNotProvisioned) {
			render.JSON(w, r, map[string]any{
				"submissions": []any{},
			})
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_submissions.table", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), fmt.Sprintf(
			`SELECT * FROM %q ORDER BY "submitted_at"`, tableName,
		))
		if err != nil {
			httpx.LogInternalError(w, "db.get_submissions.query", err)
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			httpx.LogInternalError(w, "db.get_submissions.columns", err)
			return
		}

		submissions := []map[string]any{}
		for rows.Next() {
			values := make([]any, len(cols))
			targets := make([]any, len(cols))
			for i := range values {
				targets[i] = &values[i]
			}
			err = rows.Scan(targets...)
			if err != nil {
				httpx.LogInternalError(w, "db.get_submissions.scan", err)
				return
			}

			row := map[string]any{}
			for i, col := range cols {
				if b, ok := values[i].([]byte); ok {
					row[col] = string(b)
				} else {
					row[col] = values[i]
				}
			}
			submissions = append(submissions, row)
		}

		render.JSON(w, r, map[string]any{
			"submissions": submissions,
		})
	}
}

// --- shared helpers ---

// normalizeFields assigns missing field ids and re-derives order indices.
func normalizeFields(form *model.Form) {
	for i := range form.Fields {
		if form.Fields[i].ID == "" {
			form.Fields[i].ID = uuid.Must(uuid.NewV4()).String()
		}
	}
	draft := designer.Draft{Fields: form.Fields}
	draft.Normalize()
	form.Fields = draft.Fields
}

func insertFields(ctx context.Context, tx *sql.Tx, formID string, fields []model.FormField) error {
	if len(fields) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO form_field (id, form_id, type, label, placeholder, required, options, validation_rules, field_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, f := range fields {
		if !f.Type.Valid() {
			return errors.Errorf("unknown field type %q", f.Type)
		}

		var optionsJson []byte
		if f.Options != nil {
			optionsJson, err = json.Marshal(f.Options)
			if err != nil {
				return errors.Wrap(err, "options")
			}
		}
		_, err = stmt.ExecContext(ctx,
			f.ID, formID, f.Type, f.Label, f.Placeholder, f.Required,
			string(optionsJson), string(f.ValidationRules), f.FieldOrder,
		)
		if err != nil {
			return errors.Wrap(err, "insert")
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (model.Form, error) {
	f := model.Form{}
	var settings string
	err := row.Scan(
		&f.ID, &f.Kind, &f.Title, &f.Description, &f.Status, &settings,
		&f.Version, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return f, err
	}

	if settings != "" {
		err = json.Unmarshal([]byte(settings), &f.Settings)
		if err != nil {
			return f, errors.Wrap(err, "settings")
		}
	}
	return f, nil
}

// loadForm reads a form and its ordered fields. An ownerID < 0 skips the
// ownership check for public reads.
func loadForm(ctx context.Context, db *sql.DB, formID string, ownerID int) (model.Form, error) {
	query := `
		SELECT f.id, f.kind, f.title, f.description, f.status, f.settings, f.version, f.created_at, f.updated_at
		FROM form f
		WHERE f.id = ?`
	args := []any{formID}
	if ownerID >= 0 {
		query += ` AND f.owner_id = ?`
		args = append(args, ownerID)
	}

	form, err := scanForm(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return form, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, type, label, placeholder, required, options, validation_rules, field_order
		FROM form_field
		WHERE form_id = ?
		ORDER BY field_order`,
		formID,
	)
	if err != nil {
		return form, errors.Wrap(err, "fields")
	}
	defer rows.Close()

	for rows.Next() {
		f := model.FormField{FormID: formID}
		var opts, rules sql.NullString
		err = rows.Scan(&f.ID, &f.Type, &f.Label, &f.Placeholder, &f.Required, &opts, &rules, &f.FieldOrder)
		if err != nil {
			return form, errors.Wrap(err, "scan field")
		}

		if opts.String != "" {
			err = json.Unmarshal([]byte(opts.String), &f.Options)
			if err != nil {
				return form, errors.Wrap(err, "options")
			}
		}
		if rules.String != "" {
			f.ValidationRules = json.RawMessage(rules.String)
		}

		form.Fields = append(form.Fields, f)
	}
	return form, rows.Err()
}
