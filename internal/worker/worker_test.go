package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"attendboard/internal/attendance"
	"attendboard/internal/queue"
)

func TestHandleOutcomes(t *testing.T) {
	ctx := context.Background()
	mem := attendance.NewMemoryStore()
	svc := attendance.NewService(mem, time.UTC, time.Minute)
	if _, err := svc.CreateStudent(ctx, attendance.StudentInput{IndexNumber: "S1"}); err != nil {
		t.Fatalf("create student: %v", err)
	}
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	checkIn := func(c attendance.CheckIn) queue.Message {
		msg, err := queue.NewMessage(queue.TypeCheckIn, c)
		if err != nil {
			t.Fatalf("new message: %v", err)
		}
		return msg
	}

	tests := []struct {
		name string
		msg  queue.Message
		want string
	}{
		{name: "recorded", msg: checkIn(attendance.CheckIn{IndexNumber: "s1", Status: "entered", DeviceID: "gate", At: at}), want: "recorded"},
		{name: "unknown student", msg: checkIn(attendance.CheckIn{IndexNumber: "S404", Status: "entered", DeviceID: "gate", At: at}), want: "unknown_student"},
		{name: "invalid status", msg: checkIn(attendance.CheckIn{IndexNumber: "S1", Status: "absent", DeviceID: "gate", At: at}), want: "invalid"},
		{name: "malformed", msg: queue.Message{Type: queue.TypeCheckIn, Body: json.RawMessage(`"nope"`)}, want: "malformed"},
		{name: "other type", msg: queue.Message{Type: "enroll"}, want: "ignored"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Handle(ctx, svc, tt.msg); got != tt.want {
				t.Fatalf("Handle() = %q, want %q", got, tt.want)
			}
		})
	}

	events, _ := mem.ListEventsForDay(ctx, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	if len(events) != 1 {
		t.Fatalf("expected one recorded event, got %d", len(events))
	}
}

func TestRunDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := attendance.NewMemoryStore()
	svc := attendance.NewService(mem, time.UTC, time.Minute)
	if _, err := svc.CreateStudent(ctx, attendance.StudentInput{IndexNumber: "S1"}); err != nil {
		t.Fatalf("create student: %v", err)
	}

	q := queue.NewInMemory(4)
	done := make(chan error, 1)
	go func() { done <- Run(ctx, q, svc) }()

	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	msg, _ := queue.NewMessage(queue.TypeCheckIn, attendance.CheckIn{IndexNumber: "S1", Status: "late", DeviceID: "gate", At: at})
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		events, _ := mem.ListEventsForDay(ctx, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
		if len(events) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("check-in was not recorded")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}
}
