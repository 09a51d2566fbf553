package db

import (
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/models"
)

type recordingPublisher struct {
	events []models.TaskEvent
}

func (p *recordingPublisher) Publish(event models.TaskEvent) {
	p.events = append(p.events, event)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func TestHandleNotification(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"valid", `{"action":"create","task_id":7,"audit_id":1,"user_id":"alice","timestamp":"2026-01-01T00:00:00Z"}`, 1},
		{"missing user", `{"action":"create","task_id":7}`, 0},
		{"malformed", `{not json`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			b := NewNotifyBridge(quietLogger(), nil, pub)

			b.handleNotification(&pgconn.Notification{Channel: NotifyChannel, Payload: tt.payload})

			if len(pub.events) != tt.want {
				t.Fatalf("published %d events, want %d", len(pub.events), tt.want)
			}

			if tt.want == 1 {
				got := pub.events[0]
				if got.UserID != "alice" || got.TaskID != 7 || got.Action != models.ActionCreate {
					t.Errorf("unexpected event: %+v", got)
				}
			}
		})
	}
}

func TestNextBackoff(t *testing.T) {
	for _, current := range []time.Duration{time.Second, 10 * time.Second, maxBackoff} {
		next := nextBackoff(current)

		upper := current * backoffMultiplier
		if upper > maxBackoff {
			upper = maxBackoff
		}

		lo := time.Duration(float64(upper) * 0.75)
		hi := time.Duration(float64(upper) * 1.25)
		if next < lo || next > hi {
			t.Errorf("nextBackoff(%v) = %v, want within [%v, %v]", current, next, lo, hi)
		}
	}
}

func TestSchemaVersion(t *testing.T) {
	if got := SchemaVersion(goose.DialectPostgres); got != 2 {
		t.Errorf("postgres schema version = %d, want 2", got)
	}

	if got := SchemaVersion(goose.DialectSQLite3); got != 2 {
		t.Errorf("sqlite schema version = %d, want 2", got)
	}

	if got := SchemaVersion(goose.DialectMySQL); got != 0 {
		t.Errorf("unknown dialect schema version = %d, want 0", got)
	}
}
