package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/oauth"
	"github.com/stretchr/testify/assert"
)

func asOwner(r *http.Request) *http.Request {
	claims := map[string]string{
		"user_id": "42",
		"email":   "owner@example.com",
		"roles":   "owner",
	}
	return r.WithContext(context.WithValue(r.Context(), oauth.ClaimsContext, claims))
}

func TestUpdateFormVersionConflict(t *testing.T) {
	app, mock := testApp(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM form WHERE id = \? AND owner_id = \?`).
		WithArgs("f1", 42).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("draft"))
	mock.ExpectExec(`UPDATE form`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	w := httptest.NewRecorder()
	r := asOwner(request("PUT", "/api/admin/forms/f1",
		`{"title":"Onboarding","status":"draft","version":3,"fields":[]}`,
		map[string]string{"id": "f1"}))
	UpdateForm(app)(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFormRejectsUnknownStatus(t *testing.T) {
	app, _ := testApp(t)

	w := httptest.NewRecorder()
	r := asOwner(request("PUT", "/api/admin/forms/f1",
		`{"title":"Onboarding","status":"live","version":1}`,
		map[string]string{"id": "f1"}))
	UpdateForm(app)(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShareFormURLFollowsKind(t *testing.T) {
	app, mock := testApp(t)

	rows := sqlmock.NewRows([]string{
		"id", "kind", "title", "description", "status", "settings", "version", "created_at", "updated_at",
	}).AddRow("f1", "identity-collision", "Identity Collision Assessment", "", "published", "{}", 1, time.Now(), time.Now())

	mock.ExpectQuery(`SELECT f\.id, .* FROM form f\s+WHERE f\.id = \? AND f\.owner_id = \?`).
		WithArgs("f1", 42).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT id, type, label, .* FROM form_field`).
		WithArgs("f1").
		WillReturnRows(fieldRows())

	w := httptest.NewRecorder()
	r := asOwner(request("GET", "/api/admin/forms/f1/share", "", map[string]string{"id": "f1"}))
	ShareForm(app)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://forms.example.com/identity-collision/f1")
	assert.Contains(t, w.Body.String(), "iframe")
}

func TestDuplicateFormCopiesFieldsAndForcesDraft(t *testing.T) {
	app, mock := testApp(t)

	source := sqlmock.NewRows([]string{
		"id", "kind", "title", "description", "status", "settings", "version", "created_at", "updated_at",
	}).AddRow("f1", "standard", "Onboarding", "Desc", "published", "{}", 3, time.Now(), time.Now())
	sourceFields := sqlmock.NewRows([]string{
		"id", "type", "label", "placeholder", "required", "options", "validation_rules", "field_order",
	}).
		AddRow("fld1", "text", "Name", "Type here...", true, "", "", 0).
		AddRow("fld2", "select", "Color", "", false, `["Red","Blue"]`, "", 1)

	mock.ExpectQuery(`SELECT f\.id, .* FROM form f\s+WHERE f\.id = \? AND f\.owner_id = \?`).
		WithArgs("f1", 42).
		WillReturnRows(source)
	mock.ExpectQuery(`SELECT id, type, label, .* FROM form_field`).
		WithArgs("f1").
		WillReturnRows(sourceFields)

	mock.ExpectBegin()
	// copy is a draft no matter the source status
	mock.ExpectExec(`INSERT INTO form`).
		WithArgs(sqlmock.AnyArg(), 42, "standard", "Onboarding (Copy)", "Desc", "draft",
			"{}", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// identical definitions, fresh ids, same order
	prep := mock.ExpectPrepare(`INSERT INTO form_field`)
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "text", "Name", "Type here...", true, "", "", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "select", "Color", "", false, `["Red","Blue"]`, "", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	r := asOwner(request("POST", "/api/admin/forms/f1/duplicate", "", map[string]string{"id": "f1"}))
	DuplicateForm(app)(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFormRejectsUnknownKind(t *testing.T) {
	app, _ := testApp(t)

	w := httptest.NewRecorder()
	r := asOwner(request("POST", "/api/admin/forms",
		`{"title":"X","kind":"wizard"}`, nil))
	CreateForm(app)(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
