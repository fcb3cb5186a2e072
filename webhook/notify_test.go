package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyPayloadShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"), "deliveries are unauthenticated")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "")
	err := n.Notify(context.Background(), srv.URL, Notification{
		FormID:              "f1",
		FormTitle:           "Onboarding",
		UserEmail:           "jane@example.com",
		SubmissionID:        "s1",
		SubmissionTimestamp: time.Now(),
		FormResponses:       map[string]any{"Name": "Jane"},
		Metadata: Metadata{
			TotalQuestions:   1,
			SubmissionSource: "web",
			UserAgent:        "test",
		},
	})
	require.NoError(t, err)

	for _, key := range []string{
		"formId", "formTitle", "userEmail", "submissionId",
		"submissionTimestamp", "formResponses", "metadata",
	} {
		assert.Contains(t, got, key)
	}
	meta := got["metadata"].(map[string]any)
	assert.Contains(t, meta, "totalQuestions")
	assert.Contains(t, meta, "submissionSource")
	assert.Contains(t, meta, "userAgent")
	assert.Equal(t, "Jane", got["formResponses"].(map[string]any)["Name"])
}

func TestNotifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "")
	err := n.Notify(context.Background(), srv.URL, Notification{})
	assert.Error(t, err)
}

func TestNotifySkippedWithoutURL(t *testing.T) {
	n := NewNotifier("", "")
	err := n.Notify(context.Background(), "", Notification{})
	assert.NoError(t, err, "missing URL skips delivery silently")
}

func TestForwardFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "f1", r.FormValue("formId"))
		assert.Equal(t, "field-7", r.FormValue("fieldId"))
		assert.Equal(t, "jane@example.com", r.FormValue("userEmail"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "cv.pdf", header.Filename)
	}))
	defer srv.Close()

	n := NewNotifier("", srv.URL)
	err := n.ForwardFile(context.Background(), "f1", "field-7", "jane@example.com", "cv.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
}
