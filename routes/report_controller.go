package routes

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/purposewaze/form-studio/app"
	"github.com/purposewaze/form-studio/httpx"
	"github.com/purposewaze/form-studio/log"
	"github.com/purposewaze/form-studio/metrics"
	"github.com/purposewaze/form-studio/model"
	"github.com/purposewaze/form-studio/report"
)

// IngestReport is the write-back endpoint the workflow system posts
// generated reports to. The payload shape is not validated here; shape
// resolution happens at read time.
func IngestReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			SubmissionID string          `json:"submissionId"`
			Report       json.RawMessage `json:"report"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil || body.SubmissionID == "" || len(body.Report) == 0 {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		var formID string
		err = app.QueryRowContext(r.Context(), `
			SELECT form_id FROM submission WHERE id = ?`,
			body.SubmissionID,
		).Scan(&formID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "report.ingest", body.SubmissionID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.report.ingest", err)
			return
		}

		id, err := app.Reports.Insert(r.Context(), body.SubmissionID, body.Report)
		if err != nil {
			httpx.LogInternalError(w, "db.report.ingest", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": id,
		})
	}
}

// ReportPage renders a stored report as a standalone HTML page.
func ReportPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := chi.URLParam(r, "id")

		rep, err := app.Reports.ByID(r.Context(), reportID)
		if err != nil {
			httpx.LogInternalError(w, "db.report.page", err)
			return
		}
		if rep == nil {
			httpx.LogNotFound(w, "report.page", reportID)
			return
		}

		var title string
		err = app.QueryRowContext(r.Context(), `
			SELECT f.title
			FROM submission s JOIN form f ON f.id = s.form_id
			WHERE s.id = ?`,
			rep.SubmissionID,
		).Scan(&title)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			httpx.LogInternalError(w, "db.report.page", err)
			return
		}
		if title == "" {
			title = "Your Report"
		}

		payload := reportDecoded(rep)
		metrics.ReportsServed.WithLabelValues(string(payload.Kind)).Inc()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = report.RenderHTML(w, title, payload)
		if err != nil {
			log.Errorf("report.page.render: %s", err)
		}
	}
}

func reportDecoded(rep *model.Report) report.Payload {
	return report.Decode(rep.Payload)
}
