package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplates(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		data        map[string]any
		wantSubject string
		wantPlain   string
	}{
		{
			name:        "approved",
			template:    TemplateEventApproved,
			data:        map[string]any{"EventName": "Beach cleanup"},
			wantSubject: "Your event Beach cleanup is live",
			wantPlain:   "approved",
		},
		{
			name:        "rejected",
			template:    TemplateEventRejected,
			data:        map[string]any{"EventName": "Beach cleanup"},
			wantSubject: "Your event Beach cleanup was not approved",
			wantPlain:   "not approved",
		},
		{
			name:     "confirmed",
			template: TemplateRegistrationConfirmed,
			data: map[string]any{
				"Name": "Ana", "EventName": "Beach cleanup", "StartDate": "Mon Jun 1", "Location": "North shore",
			},
			wantSubject: "You're registered for Beach cleanup",
			wantPlain:   "North shore",
		},
		{
			name:     "reminder plural",
			template: TemplateEventReminder,
			data: map[string]any{
				"Name": "Ana", "EventName": "Beach cleanup", "StartDate": "Mon Jun 1", "Location": "North shore", "Days": 5,
			},
			wantSubject: "Reminder: Beach cleanup is in 5 days",
			wantPlain:   "Hello Ana",
		},
		{
			name:     "reminder singular",
			template: TemplateEventReminder,
			data: map[string]any{
				"Name": "Ana", "EventName": "Beach cleanup", "StartDate": "Mon Jun 1", "Location": "North shore", "Days": 1,
			},
			wantSubject: "Reminder: Beach cleanup is in 1 day",
			wantPlain:   "Mon Jun 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Render(tt.template, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, msg.Subject)
			assert.Contains(t, msg.Plain, tt.wantPlain)
			assert.NotEmpty(t, msg.HTML)
		})
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	msg, err := Render(TemplateEventApproved, map[string]any{"EventName": "<script>x</script>"})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.Plain, "<script>")
}

func TestRenderErrors(t *testing.T) {
	_, err := Render("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = Render(TemplateEventReminder, map[string]any{"EventName": "x"})
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender()
	assert.NoError(t, s.Send(context.Background(), "a@example.com", TemplateEventApproved, map[string]any{"EventName": "x"}))
	assert.ErrorIs(t, s.Send(context.Background(), "a@example.com", "nope", nil), ErrUnknownTemplate)
}

// blockingNotifier holds every send until release is closed
type blockingNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	got     []string
}

func (b *blockingNotifier) Send(ctx context.Context, address, template string, data map[string]any) error {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, address)
	return nil
}

func TestAsyncDoesNotBlockAndDrainsOnClose(t *testing.T) {
	next := &blockingNotifier{release: make(chan struct{})}
	a := NewAsync(next, 2)

	done := make(chan struct{})
	go func() {
		for _, addr := range []string{"a@x", "b@x", "c@x"} {
			assert.NoError(t, a.Send(context.Background(), addr, TemplateEventApproved, nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on delivery")
	}

	close(next.release)
	a.Close()

	assert.ElementsMatch(t, []string{"a@x", "b@x", "c@x"}, next.got)
	assert.ErrorIs(t, a.Send(context.Background(), "d@x", TemplateEventApproved, nil), ErrClosed)
}

func TestAsyncSurvivesCanceledCaller(t *testing.T) {
	rec := NewRecorder()
	a := NewAsync(rec, 1)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Send(ctx, "a@x", TemplateEventApproved, map[string]any{"EventName": "x"}))
	cancel()
	a.Close()

	assert.Len(t, rec.Sent(), 1)
}

func TestRecorderFailures(t *testing.T) {
	rec := NewRecorder()
	boom := errors.New("mailbox unavailable")
	rec.Fail["bad@x"] = boom

	data := map[string]any{"EventName": "x"}
	assert.ErrorIs(t, rec.Send(context.Background(), "bad@x", TemplateEventApproved, data), boom)
	assert.NoError(t, rec.Send(context.Background(), "good@x", TemplateEventApproved, data))
	assert.Len(t, rec.SentWith(TemplateEventApproved), 1)
}
