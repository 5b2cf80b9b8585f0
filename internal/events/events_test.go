// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/metrics"
	"github.com/tomtom215/perfwatch/internal/models"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker[int]("test_fanout", 4)
	a, cancelA := b.Subscribe()
	c, cancelC := b.Subscribe()
	defer cancelA()
	defer cancelC()

	if n := b.Publish(7); n != 2 {
		t.Fatalf("Publish() delivered to %d, want 2", n)
	}
	if got := <-a; got != 7 {
		t.Errorf("subscriber a got %d", got)
	}
	if got := <-c; got != 7 {
		t.Errorf("subscriber c got %d", got)
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker[int]("test_slow", 1)
	ch, cancel := b.Subscribe()
	defer cancel()

	before := testutil.ToFloat64(metrics.EventsDropped.WithLabelValues("test_slow"))
	b.Publish(1)
	if n := b.Publish(2); n != 0 {
		t.Errorf("Publish() to full buffer delivered %d", n)
	}
	if got := testutil.ToFloat64(metrics.EventsDropped.WithLabelValues("test_slow")) - before; got != 1 {
		t.Errorf("dropped delta = %v, want 1", got)
	}
	if got := <-ch; got != 1 {
		t.Errorf("received %d, want the first value", got)
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker[string]("test_unsub", 1)
	ch, cancel := b.Subscribe()
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", b.Subscribers())
	}
	if n := b.Publish("x"); n != 0 {
		t.Errorf("Publish() after unsubscribe delivered %d", n)
	}
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker[int]("test_close", 1)
	ch, cancel := b.Subscribe()
	b.Close()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed by Close")
	}
	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribing after Close should return a closed channel")
	}
	if n := b.Publish(1); n != 0 {
		t.Error("Publish() after Close should be a no-op")
	}
}

func TestBrokerConcurrentUse(t *testing.T) {
	b := NewBroker[int]("test_concurrent", 8)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, cancel := b.Subscribe()
			defer cancel()
			for range 20 {
				b.Publish(1)
				select {
				case <-ch:
				default:
				}
			}
		}()
	}
	wg.Wait()
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after all cancelled", b.Subscribers())
	}
}

func TestPublisherGoChannel(t *testing.T) {
	p, err := NewPublisher(DefaultPublisherConfig())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	defer p.Close()

	if p.Backend() != "gochannel" {
		t.Fatalf("Backend() = %q", p.Backend())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, err := p.Subscriber().Subscribe(ctx, TopicAlertTriggered)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	alert := models.Alert{ID: "a-1", RuleID: "high_error_rate", Severity: models.SeverityCritical}
	pubCtx := logging.ContextWithCorrelationID(ctx, "corr-1")
	if err := p.PublishJSON(pubCtx, TopicAlertTriggered, alert.ID, alert); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		if msg.UUID != "a-1" {
			t.Errorf("message UUID = %q", msg.UUID)
		}
		if got := msg.Metadata.Get("correlation_id"); got != "corr-1" {
			t.Errorf("correlation_id = %q", got)
		}
		var got models.Alert
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if got.RuleID != alert.RuleID {
			t.Errorf("payload rule = %q", got.RuleID)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestPublisherClosed(t *testing.T) {
	p, err := NewPublisher(DefaultPublisherConfig())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	err = p.PublishJSON(context.Background(), TopicTickCompleted, "", struct{}{})
	if !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("PublishJSON() after Close error = %v", err)
	}
}
