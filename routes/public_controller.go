package routes

import (
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/purposewaze/form-studio/app"
	"github.com/purposewaze/form-studio/flow"
	"github.com/purposewaze/form-studio/httpx"
	"github.com/purposewaze/form-studio/log"
	"github.com/purposewaze/form-studio/metrics"
	"github.com/purposewaze/form-studio/model"
	"github.com/purposewaze/form-studio/webhook"
)

// PublicGetForm serves a form definition to respondents. Only published
// forms are visible here; drafts and archived forms read as missing.
func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "id")

		form, err := loadForm(r.Context(), app.DB, formID, -1)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "public.get_form", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.public.get_form", err)
			return
		}
		if form.Status != model.StatusPublished {
			httpx.LogNotFound(w, "public.get_form", formID)
			return
		}

		render.JSON(w, r, form)
	}
}

// ValidateEmail is the email gate at the start of the respondent flow.
// With RequireRegisteredEmail set, only registered participants pass.
func ValidateEmail(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "id")

		body := struct {
			Email string `json:"email"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil || body.Email == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		var status model.FormStatus
		err = app.QueryRowContext(r.Context(), `
			SELECT status FROM form WHERE id = ?`,
			formID,
		).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && status != model.StatusPublished) {
			httpx.LogNotFound(w, "public.validate_email", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.public.validate_email", err)
			return
		}

		if !app.RequireRegisteredEmail {
			render.JSON(w, r, map[string]any{
				"valid": true,
				"step":  flow.StepForm,
			})
			return
		}

		var name string
		err = app.QueryRowContext(r.Context(), `
			SELECT name FROM form_participant WHERE email = ?`,
			body.Email,
		).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, "public.validate_email.unregistered",
				"email %s is not registered for this form", body.Email)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.public.validate_email", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"valid": true,
			"name":  name,
			"step":  flow.StepForm,
		})
	}
}

// SubmitForm accepts a respondent's answers keyed by field id, writes them
// into the form's data table and fires the webhook notification.
func SubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "id")

		body := struct {
			Email  string         `json:"email"`
			Values map[string]any `json:"values"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if body.Email == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "public.submit.email", "email is required")
			return
		}

		form, err := loadForm(r.Context(), app.DB, formID, -1)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "public.submit", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.public.submit", err)
			return
		}
		if form.Status != model.StatusPublished {
			httpx.LogNotFound(w, "public.submit", formID)
			return
		}

		if missing := flow.MissingRequired(form.Fields, body.Values); len(missing) > 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, map[string]any{
				"error":   "public.submit.required",
				"missing": missing,
			})
			return
		}

		// storage is keyed by label, the wire format by field id
		labeled := map[string]any{}
		for _, f := range form.Fields {
			if v, ok := body.Values[f.ID]; ok {
				labeled[f.Label] = v
			}
		}

		submissionID, err := app.Tables.Submit(r.Context(), form, body.Email, clientIP(r), labeled)
		if err != nil {
			httpx.LogInternalError(w, "db.public.submit", err)
			return
		}
		metrics.SubmissionsTotal.WithLabelValues(form.ID).Inc()

		url := form.Settings.WebhookURL
		if url == "" {
			url = app.DefaultWebhookURL
		}
		app.Notifier.NotifyAsync(url, webhook.Notification{
			FormID:              form.ID,
			FormTitle:           form.Title,
			UserEmail:           body.Email,
			SubmissionID:        submissionID,
			SubmissionTimestamp: time.Now().UTC(),
			FormResponses:       labeled,
			Metadata: webhook.Metadata{
				TotalQuestions:   len(form.Fields),
				SubmissionSource: "web",
				UserAgent:        r.UserAgent(),
			},
		})

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"submissionId": submissionID,
			"step":         flow.StepLoading,
		})
	}
}

// UploadFile forwards a file-field upload to the external file sink.
// Files never touch local storage.
func UploadFile(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "id")

		err := r.ParseMultipartForm(16 << 20)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_multipart")
			return
		}

		fieldID := r.FormValue("fieldId")
		email := r.FormValue("email")
		file, header, err := r.FormFile("file")
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "public.upload.file", "missing file part")
			return
		}
		defer file.Close()

		err = app.Notifier.ForwardFile(r.Context(), formID, fieldID, email, header.Filename, file)
		if err != nil {
			log.Errorf("public.upload: %s", err)
			httpx.LogStatusMsg(w, http.StatusBadGateway, log.ErrorLevel, "public.upload.forward",
				"file forwarding failed")
			return
		}

		render.JSON(w, r, map[string]any{
			"forwarded": true,
			"filename":  header.Filename,
		})
	}
}

// GetSubmissionReport reports on the asynchronous report generation.
// A plain GET probes once; ?wait=true blocks in the bounded await loop.
// The loop ending without a report is a success-degrade, not an error.
func GetSubmissionReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submissionID := chi.URLParam(r, "id")

		var exists int
		err := app.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM submission WHERE id = ?`,
			submissionID,
		).Scan(&exists)
		if err != nil {
			httpx.LogInternalError(w, "db.public.report", err)
			return
		}
		if exists == 0 {
			httpx.LogNotFound(w, "public.report", submissionID)
			return
		}

		var rep *model.Report
		if r.URL.Query().Get("wait") == "true" {
			// the await loop outlives the server write timeout; push the
			// write deadline past the polling ceiling or the response is
			// cut off before the terminal payload
			deadline := time.Now().
				Add(app.PollInterval * time.Duration(app.PollMaxAttempts)).
				Add(10 * time.Second)
			err = http.NewResponseController(w).SetWriteDeadline(deadline)
			if err != nil {
				log.Debugf("public.report.deadline: %s", err)
			}
			rep, err = app.Poller.Await(r.Context(), submissionID)
		} else {
			rep, err = app.Reports.Latest(r.Context(), submissionID)
		}
		if err != nil {
			httpx.LogInternalError(w, "db.public.report", err)
			return
		}

		if rep == nil {
			step := flow.StepLoading
			status := "pending"
			if r.URL.Query().Get("wait") == "true" {
				// polling ceiling reached: degrade to the plain thank-you
				step = flow.StepSuccess
				status = "success"
			}
			render.JSON(w, r, map[string]any{
				"status": status,
				"step":   step,
			})
			return
		}

		payload := reportDecoded(rep)
		metrics.ReportsServed.WithLabelValues(string(payload.Kind)).Inc()
		render.JSON(w, r, map[string]any{
			"status":   "report",
			"step":     flow.StepReport,
			"kind":     payload.Kind,
			"reportId": rep.ID,
			"report":   rep.Payload,
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
