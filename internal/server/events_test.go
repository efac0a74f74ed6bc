package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MockingJay1710/buddyai/internal/bus"
)

func TestEventsStreamsBusEvents(t *testing.T) {
	srv, b, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Wait for the subscription to land before publishing.
	deadline := time.Now().Add(time.Second)
	for b.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.SubscriberCount() == 0 {
		t.Fatal("subscriber never registered")
	}

	b.Publish(bus.TopicReminderFired, bus.ReminderFiredEvent{
		ReminderID: "r1",
		Message:    "stretch",
	})

	var ev wireEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Topic != bus.TopicReminderFired {
		t.Fatalf("topic = %q", ev.Topic)
	}
	payload, ok := ev.Payload.(map[string]any)
	if !ok || payload["message"] != "stretch" {
		t.Fatalf("payload = %v", ev.Payload)
	}
}

func TestEventsTopicFilter(t *testing.T) {
	srv, b, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events?topic=reminder"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	deadline := time.Now().Add(time.Second)
	for b.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	// Filtered out, then delivered.
	b.Publish(bus.TopicCommandExecuted, bus.CommandEvent{Command: "echo"})
	b.Publish(bus.TopicReminderFired, bus.ReminderFiredEvent{ReminderID: "r2", Message: "hi"})

	var ev wireEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Topic != bus.TopicReminderFired {
		t.Fatalf("command event leaked through filter: %+v", ev)
	}
}

func TestEventsUnsubscribesOnClientClose(t *testing.T) {
	srv, b, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events?topic=reminder"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for b.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.SubscriberCount() == 0 {
		t.Fatal("subscriber never registered")
	}

	// An idle client closing must tear down the subscription even though
	// the handler has nothing to write.
	conn.Close(websocket.StatusNormalClosure, "done")

	deadline = time.Now().Add(time.Second)
	for b.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Fatalf("SubscriberCount() = %d after client close, want 0", n)
	}
}
