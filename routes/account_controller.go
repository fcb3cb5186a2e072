package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/purposewaze/form-studio/app"
	"github.com/purposewaze/form-studio/httpx"
	"github.com/purposewaze/form-studio/log"
	"github.com/purposewaze/form-studio/model"
)

func Signup(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil || body.Email == "" || body.Password == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.LogInternalError(w, "signup.hash", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var userID int
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO user (email, password_hash)
			VALUES (?, ?)
			RETURNING id`,
			body.Email,
			string(hash),
		).Scan(&userID)
		if isUniqueViolation(err) {
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "signup.duplicate",
				"email %s is already registered", body.Email)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.signup", err)
			return
		}

		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO profile (user_id, name, organization, phone, theme)
			VALUES (?, ?, '', '', 'light')`,
			userID,
			body.Name,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.signup.profile", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.signup.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": userID,
		})
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// RequestPasswordReset issues a reset token. The response never reveals
// whether the email exists; delivery happens over the webhook channel.
func RequestPasswordReset(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Email string `json:"email"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil || body.Email == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		var exists int
		err = app.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM user WHERE email = ?`,
			body.Email,
		).Scan(&exists)
		if err != nil {
			httpx.LogInternalError(w, "db.password_reset", err)
			return
		}

		if exists > 0 {
			token := uuid.Must(uuid.NewV4()).String()
			_, err = app.ExecContext(r.Context(), `
				INSERT INTO password_reset (email, token, expiration)
				VALUES (?, ?, ?)`,
				body.Email,
				token,
				time.Now().UTC().Add(time.Hour),
			)
			if err != nil {
				httpx.LogInternalError(w, "db.password_reset", err)
				return
			}
			log.Infof("password reset requested for %s", body.Email)
		}

		render.JSON(w, r, map[string]any{
			"requested": true,
		})
	}
}

func ConfirmPasswordReset(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil || body.Token == "" || body.Password == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var email string
		var expiration time.Time
		err = tx.QueryRowContext(r.Context(), `
			SELECT email, expiration FROM password_reset WHERE token = ?`,
			body.Token,
		).Scan(&email, &expiration)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "password_reset.token")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.password_reset.confirm", err)
			return
		}
		if time.Now().After(expiration) {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "password_reset.expired")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.LogInternalError(w, "password_reset.hash", err)
			return
		}

		_, err = tx.ExecContext(r.Context(), `
			UPDATE user SET password_hash = ? WHERE email = ?`,
			string(hash),
			email,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.password_reset.update", err)
			return
		}

		// a used token is gone, and so are any live sessions
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM password_reset WHERE email = ?`,
			email,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.password_reset.cleanup", err)
			return
		}
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM token WHERE email = ?`,
			email,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.password_reset.tokens", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.password_reset.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := userEmail(w, r)
		if !ok {
			return
		}

		_, err := app.ExecContext(r.Context(), `
			DELETE FROM token WHERE email = ?`,
			email,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.logout", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetProfile(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}

		p := model.Profile{UserID: ownerID}
		err := app.QueryRowContext(r.Context(), `
			SELECT name, organization, phone, theme FROM profile WHERE user_id = ?`,
			ownerID,
		).Scan(&p.Name, &p.Organization, &p.Phone, &p.Theme)
		if errors.Is(err, sql.ErrNoRows) {
			p.Theme = model.Themes[0]
		} else if err != nil {
			httpx.LogInternalError(w, "db.get_profile", err)
			return
		}

		render.JSON(w, r, p)
	}
}

func UpdateProfile(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}

		p := model.Profile{}
		err := render.DecodeJSON(r.Body, &p)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if p.Theme == "" {
			p.Theme = model.Themes[0]
		}
		if !model.ValidTheme(p.Theme) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "profile.theme",
				"unknown theme %q", p.Theme)
			return
		}

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO profile (user_id, name, organization, phone, theme)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				name = excluded.name,
				organization = excluded.organization,
				phone = excluded.phone,
				theme = excluded.theme`,
			ownerID,
			p.Name,
			p.Organization,
			p.Phone,
			p.Theme,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_profile", err)
			return
		}

		p.UserID = ownerID
		render.JSON(w, r, p)
	}
}

// CycleTheme advances the profile theme to the next palette entry.
func CycleTheme(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := userID(w, r)
		if !ok {
			return
		}

		var current string
		err := app.QueryRowContext(r.Context(), `
			SELECT theme FROM profile WHERE user_id = ?`,
			ownerID,
		).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			httpx.LogInternalError(w, "db.cycle_theme", err)
			return
		}

		next := model.NextTheme(current)
		_, err = app.ExecContext(r.Context(), `
			INSERT INTO profile (user_id, name, organization, phone, theme)
			VALUES (?, '', '', '', ?)
			ON CONFLICT (user_id) DO UPDATE SET theme = excluded.theme`,
			ownerID,
			next,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.cycle_theme", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"theme": next,
		})
	}
}

func ListParticipants(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, ok := userID(w, r)
		if !ok {
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT email, name, registered_at FROM form_participant ORDER BY registered_at DESC`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_participants", err)
			return
		}
		defer rows.Close()

		participants := []model.Participant{}
		for rows.Next() {
			p := model.Participant{}
			err = rows.Scan(&p.Email, &p.Name, &p.RegisteredAt)
			if err != nil {
				httpx.LogInternalError(w, "db.get_participants.scan", err)
				return
			}
			participants = append(participants, p)
		}

		render.JSON(w, r, map[string]any{
			"participants": participants,
		})
	}
}

// RegisterParticipant adds an email to the registration roster. The
// registration opens every published form at once, so the reply carries
// the count of forms the participant can now respond to.
func RegisterParticipant(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, ok := userID(w, r)
		if !ok {
			return
		}

		p := model.Participant{}
		err := render.DecodeJSON(r.Body, &p)
		if err != nil || p.Email == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO form_participant (email, name, registered_at)
			VALUES (?, ?, ?)
			ON CONFLICT (email) DO UPDATE SET name = excluded.name`,
			p.Email,
			p.Name,
			time.Now().UTC(),
		)
		if err != nil {
			httpx.LogInternalError(w, "db.register_participant", err)
			return
		}

		var published int
		err = app.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM form WHERE status = ?`,
			model.StatusPublished,
		).Scan(&published)
		if err != nil {
			httpx.LogInternalError(w, "db.register_participant.count", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"email":            p.Email,
			"forms_accessible": published,
		})
	}
}
