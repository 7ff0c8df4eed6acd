package listing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"joeunedu/pkg/domain"
)

// FallbackNewsEvent substitutes when the news feed returns zero documents
// or an unrecognized shape.
func FallbackNewsEvent() domain.NewsEvent {
	return domain.NewsEvent{
		ID:      "default-1",
		Title:   "Welcome to Joeun Education Consultancy",
		Type:    "news",
		Content: "We help students achieve their study abroad dreams",
		Date:    time.Now().UTC(),
		Status:  domain.NewsPublished,
	}
}

// ErrUnrecognizedEnvelope reports a news payload in none of the tolerated
// shapes.
var ErrUnrecognizedEnvelope = errors.New("unrecognized news-events envelope")

// DecodeNewsEnvelope decodes a news-events payload, tolerating the legacy
// response shapes ({documents}, bare array, {newsEvents}, {data}). This is
// a compatibility shim for old feed consumers; the server itself only
// emits the documented {documents} envelope.
func DecodeNewsEnvelope(raw []byte) ([]domain.NewsEvent, error) {
	var envelope struct {
		Documents  []domain.NewsEvent `json:"documents"`
		NewsEvents []domain.NewsEvent `json:"newsEvents"`
		Data       []domain.NewsEvent `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Documents != nil:
			return envelope.Documents, nil
		case envelope.NewsEvents != nil:
			return envelope.NewsEvents, nil
		case envelope.Data != nil:
			return envelope.Data, nil
		}
	}
	var bare []domain.NewsEvent
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}
	return nil, ErrUnrecognizedEnvelope
}

// Ticker rotates a current index over news events on a fixed interval,
// wrapping to 0 at the end. With zero events it presents the hardcoded
// fallback item.
type Ticker struct {
	mu       sync.Mutex
	events   []domain.NewsEvent
	index    int
	interval time.Duration
}

// NewTicker builds a ticker over the given events.
func NewTicker(events []domain.NewsEvent, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := &Ticker{interval: interval}
	t.SetEvents(events)
	return t
}

// SetEvents replaces the rotation set and resets the index.
func (t *Ticker) SetEvents(events []domain.NewsEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(events) == 0 {
		t.events = []domain.NewsEvent{FallbackNewsEvent()}
	} else {
		t.events = append([]domain.NewsEvent(nil), events...)
	}
	t.index = 0
}

// Current returns the event at the current index.
func (t *Ticker) Current() domain.NewsEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events[t.index]
}

// Advance moves the index forward by one, wrapping at the end.
func (t *Ticker) Advance() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) < 2 {
		return
	}
	t.index = (t.index + 1) % len(t.events)
}

// Run advances on the configured interval until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Advance()
		}
	}
}
