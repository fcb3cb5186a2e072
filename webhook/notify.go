// Package webhook delivers outbound notifications to the external
// workflow-automation system. Deliveries are fire-and-forget: a failure is
// logged and counted, never surfaced to the respondent flow.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/purposewaze/form-studio/log"
	"github.com/purposewaze/form-studio/metrics"
)

// Notification is the submission payload the workflow system receives.
type Notification struct {
	FormID              string         `json:"formId"`
	FormTitle           string         `json:"formTitle"`
	UserEmail           string         `json:"userEmail"`
	SubmissionID        string         `json:"submissionId"`
	SubmissionTimestamp time.Time      `json:"submissionTimestamp"`
	FormResponses       map[string]any `json:"formResponses"`
	Metadata            Metadata       `json:"metadata"`
}

type Metadata struct {
	TotalQuestions   int    `json:"totalQuestions"`
	SubmissionSource string `json:"submissionSource"`
	UserAgent        string `json:"userAgent"`
}

type Notifier struct {
	Client     *http.Client
	DefaultURL string
	FilesURL   string
}

func NewNotifier(defaultURL, filesURL string) Notifier {
	return Notifier{
		Client:     &http.Client{Timeout: 15 * time.Second},
		DefaultURL: defaultURL,
		FilesURL:   filesURL,
	}
}

// NotifyAsync dispatches the notification on its own goroutine. The caller's
// request lifetime does not bound the delivery.
func (n Notifier) NotifyAsync(url string, note Notification) {
	go func() {
		err := n.Notify(context.Background(), url, note)
		if err != nil {
			log.Warnf("webhook.notify: %s", err)
		}
	}()
}

// Notify posts the notification as JSON. No auth header, no retry.
func (n Notifier) Notify(ctx context.Context, url string, note Notification) error {
	if url == "" {
		url = n.DefaultURL
	}
	if url == "" {
		metrics.WebhookDeliveries.WithLabelValues("skipped").Inc()
		return nil
	}

	body, err := json.Marshal(note)
	if err != nil {
		return errors.Wrap(err, "encode notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		return errors.Wrap(err, "deliver")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		return errors.Errorf("deliver: %s replied %d", url, resp.StatusCode)
	}

	metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
	log.Debugf("webhook.notify: %s -> %d", url, resp.StatusCode)
	return nil
}

// ForwardFile streams an uploaded file to the files webhook as multipart
// form data, out-of-band from the main submission write.
func (n Notifier) ForwardFile(ctx context.Context, formID, fieldID, userEmail, filename string, file io.Reader) error {
	if n.FilesURL == "" {
		return errors.New("no files webhook configured")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return errors.Wrap(err, "multipart file")
	}
	_, err = io.Copy(part, file)
	if err != nil {
		return errors.Wrap(err, "copy file")
	}
	mw.WriteField("fieldId", fieldID)
	mw.WriteField("formId", formID)
	mw.WriteField("userEmail", userEmail)
	err = mw.Close()
	if err != nil {
		return errors.Wrap(err, "finish multipart")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.FilesURL, &body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := n.Client.Do(req)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		return errors.Wrap(err, "deliver file")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		return errors.Errorf("deliver file: %s replied %d", n.FilesURL, resp.StatusCode)
	}

	metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
	log.Debugf("webhook.forward_file: %s -> %d", filename, resp.StatusCode)
	return nil
}
