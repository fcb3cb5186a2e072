package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/purposewaze/form-studio/model"
)

// Store reads and writes form_report rows. Rows normally arrive from the
// external workflow system through the ingestion endpoint.
type Store struct {
	DB *sql.DB
}

func (s Store) Insert(ctx context.Context, submissionID string, payload json.RawMessage) (string, error) {
	id := uuid.Must(uuid.NewV4()).String()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO form_report (id, submission_id, report_json, generated_at)
		VALUES (?, ?, ?, ?)`,
		id,
		submissionID,
		string(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return "", errors.Wrap(err, "insert report")
	}
	return id, nil
}

// Latest returns the most recent report row for a submission, or nil when
// none exists yet.
func (s Store) Latest(ctx context.Context, submissionID string) (*model.Report, error) {
	r := model.Report{}
	var payload string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, submission_id, report_json, generated_at
		FROM form_report
		WHERE submission_id = ?
		ORDER BY generated_at DESC
		LIMIT 1`,
		submissionID,
	).Scan(&r.ID, &r.SubmissionID, &payload, &r.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "latest report")
	}
	r.Payload = json.RawMessage(payload)
	return &r, nil
}

func (s Store) ByID(ctx context.Context, id string) (*model.Report, error) {
	r := model.Report{}
	var payload string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, submission_id, report_json, generated_at
		FROM form_report
		WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.SubmissionID, &payload, &r.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "report by id")
	}
	r.Payload = json.RawMessage(payload)
	return &r, nil
}
