// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/perfwatch/internal/archive"
	"github.com/tomtom215/perfwatch/internal/models"
)

func testAlert() models.Alert {
	return models.Alert{
		ID:          "alert-1",
		RuleID:      "high_error_rate",
		RuleName:    "High Error Rate",
		Severity:    models.SeverityCritical,
		Message:     "Error rate 8.00% exceeds 5.00%",
		Channels:    []models.ChannelKind{models.ChannelWebhook, models.ChannelSlack, models.ChannelEmail},
		TriggeredAt: time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC),
		Status:      models.AlertActive,
	}
}

type mockChannel struct {
	kind  models.ChannelKind
	err   error
	calls atomic.Int32
	block chan struct{}
}

func (m *mockChannel) Kind() models.ChannelKind { return m.kind }

func (m *mockChannel) Send(ctx context.Context, _ *models.Alert) error {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func statusByChannel(records []models.NotificationRecord) map[models.ChannelKind]models.NotificationStatus {
	out := make(map[models.ChannelKind]models.NotificationStatus, len(records))
	for _, r := range records {
		out[r.Channel] = r.Status
	}
	return out
}

func TestDispatchIsolatesFailures(t *testing.T) {
	failing := &mockChannel{kind: models.ChannelSlack, err: &TransportError{Channel: models.ChannelSlack, Code: ErrorCodeServerError, Err: errors.New("always fails")}}
	webhook := &mockChannel{kind: models.ChannelWebhook}
	email := &mockChannel{kind: models.ChannelEmail}

	d := NewDispatcher(NewRecordStore(0, nil), DispatcherConfig{}, webhook, failing, email)
	alert := testAlert()
	if n := d.Dispatch(context.Background(), alert, alert.Channels); n != 3 {
		t.Fatalf("Dispatch() started %d sends, want 3", n)
	}
	d.Wait()

	records := d.Records().ForAlert(alert.ID)
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	status := statusByChannel(records)
	if status[models.ChannelWebhook] != models.NotificationSent || status[models.ChannelEmail] != models.NotificationSent {
		t.Errorf("healthy channels not sent: %v", status)
	}
	if status[models.ChannelSlack] != models.NotificationFailed {
		t.Errorf("slack status = %s, want failed", status[models.ChannelSlack])
	}
	for _, r := range records {
		if r.Channel == models.ChannelSlack && r.ErrorCode != ErrorCodeServerError {
			t.Errorf("slack ErrorCode = %q, want %q", r.ErrorCode, ErrorCodeServerError)
		}
	}

	// A second alert is unaffected by the first one's failure.
	second := testAlert()
	second.ID = "alert-2"
	d.Dispatch(context.Background(), second, []models.ChannelKind{models.ChannelWebhook})
	d.Wait()
	if got := d.Records().ForAlert("alert-2"); len(got) != 1 || got[0].Status != models.NotificationSent {
		t.Errorf("second alert records = %+v", got)
	}
}

func TestDispatchDoesNotBlock(t *testing.T) {
	slow := &mockChannel{kind: models.ChannelWebhook, block: make(chan struct{})}
	d := NewDispatcher(nil, DispatcherConfig{}, slow)

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), testAlert(), []models.ChannelKind{models.ChannelWebhook})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch() blocked on a slow channel")
	}
	if d.Records().Len() != 0 {
		t.Error("record written before the send finished")
	}

	close(slow.block)
	d.Wait()
	if d.Records().Len() != 1 {
		t.Errorf("records after Wait = %d, want 1", d.Records().Len())
	}
}

func TestDispatchDedupesChannels(t *testing.T) {
	webhook := &mockChannel{kind: models.ChannelWebhook}
	d := NewDispatcher(nil, DispatcherConfig{}, webhook)

	n := d.Dispatch(context.Background(), testAlert(), []models.ChannelKind{
		models.ChannelWebhook, models.ChannelWebhook, models.ChannelWebhook,
	})
	d.Wait()
	if n != 1 || webhook.calls.Load() != 1 {
		t.Errorf("duplicate channels sent %d times (started %d), want 1", webhook.calls.Load(), n)
	}
}

func TestDispatchUnregisteredChannel(t *testing.T) {
	d := NewDispatcher(nil, DispatcherConfig{})
	d.Dispatch(context.Background(), testAlert(), []models.ChannelKind{models.ChannelEmail})
	d.Wait()

	records := d.Records().Records()
	if len(records) != 1 || records[0].Status != models.NotificationFailed || records[0].ErrorCode != ErrorCodeInvalidConfig {
		t.Errorf("records = %+v, want one INVALID_CONFIG failure", records)
	}
}

func TestDispatchSurvivesCancelledContext(t *testing.T) {
	webhook := &mockChannel{kind: models.ChannelWebhook}
	d := NewDispatcher(nil, DispatcherConfig{}, webhook)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, testAlert(), []models.ChannelKind{models.ChannelWebhook})
	d.Wait()

	if got := d.Records().Records(); len(got) != 1 || got[0].Status != models.NotificationSent {
		t.Errorf("records = %+v; a cancelled tick context must not abort sends", got)
	}
}

func TestDispatcherShutdownTimeout(t *testing.T) {
	slow := &mockChannel{kind: models.ChannelWebhook, block: make(chan struct{})}
	d := NewDispatcher(nil, DispatcherConfig{}, slow)
	d.Dispatch(context.Background(), testAlert(), []models.ChannelKind{models.ChannelWebhook})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); err == nil {
		t.Error("Shutdown() should report in-flight sends")
	}

	close(slow.block)
	if err := d.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() after drain error = %v", err)
	}
}

func TestWebhookChannelSend(t *testing.T) {
	var (
		mu      sync.Mutex
		payload WebhookPayload
		auth    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		_ = json.Unmarshal(body, &payload)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(WebhookConfig{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer t"}})
	alert := testAlert()
	if err := ch.Send(context.Background(), &alert); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if payload.Alert == nil || payload.Alert.ID != alert.ID {
		t.Errorf("payload alert = %+v", payload.Alert)
	}
	if payload.EventType != "performance_alert" || payload.Source != "perfwatch" {
		t.Errorf("payload envelope = %+v", payload)
	}
	if auth != "Bearer t" {
		t.Errorf("Authorization header = %q", auth)
	}
}

func TestWebhookChannelErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	alert := testAlert()

	var cfgErr *ConfigurationError
	if err := NewWebhookChannel(WebhookConfig{}).Send(context.Background(), &alert); !errors.As(err, &cfgErr) {
		t.Errorf("missing URL error = %v, want ConfigurationError", err)
	}

	var tErr *TransportError
	err := NewWebhookChannel(WebhookConfig{URL: srv.URL}).Send(context.Background(), &alert)
	if !errors.As(err, &tErr) {
		t.Fatalf("5xx error = %v, want TransportError", err)
	}
	if tErr.StatusCode != http.StatusServiceUnavailable || ErrorCode(err) != ErrorCodeServerError {
		t.Errorf("TransportError = %+v", tErr)
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	if err := NewWebhookChannel(WebhookConfig{URL: url}).Send(context.Background(), &alert); !errors.As(err, &tErr) {
		t.Errorf("unreachable endpoint error = %v, want TransportError", err)
	}
}

func TestSlackChannelPayload(t *testing.T) {
	var got SlackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	alert := testAlert()
	if err := NewSlackChannel(SlackConfig{WebhookURL: srv.URL}).Send(context.Background(), &alert); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(got.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(got.Attachments))
	}
	att := got.Attachments[0]
	if att.Color != ColorCritical || att.Title != "High Error Rate" {
		t.Errorf("attachment = %+v", att)
	}
	if len(att.Fields) != 2 || att.Fields[0].Value != "critical" || att.Fields[1].Value != "2026-06-01T08:30:00Z" {
		t.Errorf("fields = %+v", att.Fields)
	}
}

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		severity models.Severity
		want     string
	}{
		{models.SeverityCritical, "#dc3545"},
		{models.SeverityWarning, "#ffc107"},
		{models.SeverityInfo, "#28a745"},
		{models.Severity("unknown"), "#007bff"},
	}
	for _, tt := range tests {
		if got := SeverityColor(tt.severity); got != tt.want {
			t.Errorf("SeverityColor(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestEmailChannel(t *testing.T) {
	alert := testAlert()
	if err := NewEmailChannel("ops@example.com").Send(context.Background(), &alert); err != nil {
		t.Errorf("Send() error = %v", err)
	}

	var cfgErr *ConfigurationError
	if err := NewEmailChannel("").Send(context.Background(), &alert); !errors.As(err, &cfgErr) {
		t.Errorf("missing target error = %v, want ConfigurationError", err)
	}
	if got := Subject(&alert); got != "[critical] High Error Rate" {
		t.Errorf("Subject() = %q", got)
	}
}

func TestRecordStoreConcurrentWriters(t *testing.T) {
	store := NewRecordStore(0, nil)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				store.Add(models.NotificationRecord{AlertID: "a", Channel: models.ChannelWebhook, Status: models.NotificationSent})
			}
			_ = store.Records()
		}()
	}
	wg.Wait()
	if store.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", store.Len())
	}
}

func TestRecordStoreCapAndArchive(t *testing.T) {
	arch, err := archive.Open(archive.Options{})
	if err != nil {
		t.Fatalf("archive.Open() error = %v", err)
	}
	defer arch.Close()

	store := NewRecordStore(2, arch)
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		store.Add(models.NotificationRecord{
			AlertID:   "a",
			Channel:   models.ChannelWebhook,
			Status:    models.NotificationSent,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}
	if store.Len() != 2 {
		t.Errorf("in-memory records = %d, want 2", store.Len())
	}
	archived, err := arch.Notifications("a")
	if err != nil {
		t.Fatalf("Notifications() error = %v", err)
	}
	if len(archived) != 3 {
		t.Errorf("archived records = %d, want 3", len(archived))
	}
}

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://hooks.example.com/x", false},
		{"http://localhost:9000", false},
		{"", true},
		{"ftp://example.com", true},
		{"https://", true},
	}
	for _, tt := range tests {
		if err := ValidateWebhookURL(tt.url); (err != nil) != tt.wantErr {
			t.Errorf("ValidateWebhookURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}
