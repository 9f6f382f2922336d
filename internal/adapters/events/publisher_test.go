package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/requirement-validator/internal/core/domain"
)

func TestNewPublisherUnreachable(t *testing.T) {
	// port 1 is never a NATS server
	_, err := NewPublisher("nats://127.0.0.1:1", "", zerolog.Nop())
	assert.ErrorContains(t, err, "failed to connect to nats")
}

func TestPublishWithoutConnection(t *testing.T) {
	p := &Publisher{subject: DefaultSubject}
	err := p.PublishValidation(context.Background(), &domain.Record{ID: "x"})
	assert.EqualError(t, err, "nats not connected")
	p.Close()
}

func runServer(t *testing.T) string {
	t.Helper()
	s := natsserver.RunRandClientPortServer()
	t.Cleanup(s.Shutdown)
	return s.ClientURL()
}

func subscribe(t *testing.T, url, subject string) chan *nats.Msg {
	t.Helper()
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	msgs := make(chan *nats.Msg, 4)
	_, err = nc.ChanSubscribe(subject, msgs)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
	return msgs
}

func receive(t *testing.T, msgs chan *nats.Msg) *nats.Msg {
	t.Helper()
	select {
	case m := <-msgs:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestPublishValidation(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{"default subject", "", DefaultSubject},
		{"configured subject", "reqval.audit", "reqval.audit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := runServer(t)
			msgs := subscribe(t, url, tt.want)

			p, err := NewPublisher(url, tt.subject, zerolog.Nop())
			require.NoError(t, err)

			rec := &domain.Record{
				ID:           "0b6f7a2e",
				IsFunctional: true,
				CreatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
				Result: domain.Validation{
					ID:           "0b6f7a2e",
					OriginalText: "El sistema debe registrar cada venta",
					IsValid:      true,
					Errors:       []domain.Issue{},
					Suggestions:  []domain.Suggestion{},
				},
			}
			require.NoError(t, p.PublishValidation(context.Background(), rec))
			p.Close()

			m := receive(t, msgs)
			assert.Equal(t, tt.want, m.Subject)
			var got domain.Record
			require.NoError(t, json.Unmarshal(m.Data, &got))
			assert.Equal(t, *rec, got)
		})
	}
}

func TestCloseDeliversPendingMessages(t *testing.T) {
	url := runServer(t)
	msgs := subscribe(t, url, DefaultSubject)

	p, err := NewPublisher(url, "", zerolog.Nop())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, p.PublishValidation(context.Background(), &domain.Record{ID: fmt.Sprint(i)}))
	}
	p.Close()
	p.Close()

	for i := 0; i < 3; i++ {
		m := receive(t, msgs)
		var got domain.Record
		require.NoError(t, json.Unmarshal(m.Data, &got))
		assert.Equal(t, fmt.Sprint(i), got.ID)
	}
	assert.ErrorContains(t, p.PublishValidation(context.Background(), &domain.Record{ID: "late"}), "nats not connected")
}
