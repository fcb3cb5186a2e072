package dyntable

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purposewaze/form-studio/model"
)

func TestColumnNames(t *testing.T) {
	fields := []model.FormField{
		{Label: "Your Name"},
		{Label: "E-mail (work)"},
		{Label: "Your name"},
		{Label: "your NAME"},
		{Label: "!!!"},
	}

	assert.Equal(t,
		[]string{"your_name", "e_mail_work", "your_name__1", "your_name__2", "field"},
		ColumnNames(fields))
}

func TestColumnType(t *testing.T) {
	assert.Equal(t, "NUMERIC", columnType(model.FieldNumber))
	assert.Equal(t, "BOOLEAN", columnType(model.FieldCheckbox))
	assert.Equal(t, "DATE", columnType(model.FieldDate))
	assert.Equal(t, "TEXT", columnType(model.FieldRanking))
}

func TestCreateTableDDL(t *testing.T) {
	ddl := createTableDDL("form_data_7", []model.FormField{
		{Label: "Name", Type: model.FieldText},
		{Label: "Age", Type: model.FieldNumber},
	})

	assert.Equal(t,
		`CREATE TABLE "form_data_7" (`+
			`"id" TEXT PRIMARY KEY, `+
			`"email" TEXT NOT NULL, `+
			`"name" TEXT, `+
			`"submitted_at" TIMESTAMP NOT NULL, `+
			`"ip_address" TEXT, `+
			`"name__1" TEXT, `+
			`"age" NUMERIC)`,
		ddl)
}

func TestCreatePublished(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	form := model.Form{
		ID: "f1",
		Fields: []model.FormField{
			{Label: "Name", Type: model.FieldText},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO form_sequence (form_id) VALUES (?)")).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE form_sequence SET table_name = ? WHERE form_id = ?")).
		WithArgs("form_data_7", "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sqlite_master")).
		WithArgs("form_data_7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "form_data_7"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tableName, err := Tables{DB: db}.CreatePublished(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "form_data_7", tableName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePublishedAgainKeepsTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// publish -> archive -> publish again: the table survives the cycle,
	// so the second publish must diff columns instead of recreating
	form := model.Form{
		ID: "f1",
		Fields: []model.FormField{
			{Label: "Name", Type: model.FieldText},
			{Label: "Age", Type: model.FieldNumber},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO form_sequence (form_id) VALUES (?)")).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE form_sequence SET table_name = ? WHERE form_id = ?")).
		WithArgs("form_data_7", "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sqlite_master")).
		WithArgs("form_data_7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	// column diff: "age" is new, everything else already there
	mock.ExpectQuery(regexp.QuoteMeta("SELECT table_name FROM form_sequence")).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("form_data_7"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM pragma_table_info(?)")).
		WithArgs("form_data_7").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("id").AddRow("email").AddRow("name").
			AddRow("submitted_at").AddRow("ip_address").AddRow("name__1"))
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "form_data_7" ADD COLUMN "age" NUMERIC`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tableName, err := Tables{DB: db}.CreatePublished(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "form_data_7", tableName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitWritesDataAndIndexRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	form := model.Form{
		ID: "f1",
		Fields: []model.FormField{
			{Label: "Name", Type: model.FieldText},
			{Label: "Fears", Type: model.FieldRanking},
		},
	}
	values := map[string]any{
		"Name":  "Jane",
		"Fears": []string{"b", "a"},
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT table_name FROM form_sequence")).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("form_data_7"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "form_data_7" ("id", "email", "submitted_at", "ip_address", "name__1", "fears")`)).
		WithArgs(sqlmock.AnyArg(), "a@b.com", sqlmock.AnyArg(), "1.2.3.4", "Jane", `["b","a"]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submission (id, form_id, email, time, ip)")).
		WithArgs(sqlmock.AnyArg(), "f1", "a@b.com", sqlmock.AnyArg(), "1.2.3.4").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := Tables{DB: db}.Submit(context.Background(), form, "a@b.com", "1.2.3.4", values)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitWithoutTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT table_name FROM form_sequence")).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	_, err = Tables{DB: db}.Submit(context.Background(), model.Form{ID: "f1"}, "a@b.com", "", nil)
	assert.ErrorIs(t, err, ErrNotProvisioned)
}

func TestVerifyMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT table_name FROM form_sequence")).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("form_data_9"))

	err = Tables{DB: db}.Verify(context.Background(), "f1", "form_data_7")
	assert.Error(t, err)
}
