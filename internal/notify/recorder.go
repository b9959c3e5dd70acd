package notify

import (
	"context"
	"sync"
)

// Sent is one notification captured by a Recorder
type Sent struct {
	Address  string
	Template string
	Data     map[string]any
}

// Recorder is an in-memory Notifier that keeps every message it is given.
// Addresses listed in Fail get the mapped error instead.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Fail map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{Fail: make(map[string]error)}
}

func (r *Recorder) Send(ctx context.Context, address, template string, data map[string]any) error {
	if _, err := Render(template, data); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail[address]; err != nil {
		return err
	}
	r.sent = append(r.sent, Sent{Address: address, Template: template, Data: data})
	return nil
}

// Sent returns a copy of the messages recorded so far
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// SentWith returns the recorded messages using template
func (r *Recorder) SentWith(template string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Template == template {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets all recorded messages
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
