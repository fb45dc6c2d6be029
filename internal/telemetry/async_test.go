package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*Event
	emitErr error
	done    chan struct{}
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	EmitAsync(nil, &Event{Type: "login"})
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEventEmitter{}
	EmitAsync(emitter, nil)
	time.Sleep(10 * time.Millisecond)
	if n := len(emitter.getEvents()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestEmitAsync_Delivers(t *testing.T) {
	emitter := &mockEventEmitter{done: make(chan struct{}, 1)}
	EmitAsync(emitter, &Event{Type: "login", UserID: "u1"})

	select {
	case <-emitter.done:
	case <-time.After(time.Second):
		t.Fatal("emit was not called")
	}
	events := emitter.getEvents()
	if len(events) != 1 || events[0].Type != "login" || events[0].UserID != "u1" {
		t.Errorf("events = %+v", events)
	}
}

func TestEmitAsync_ErrorIsSwallowed(t *testing.T) {
	emitter := &mockEventEmitter{emitErr: errors.New("boom"), done: make(chan struct{}, 1)}
	EmitAsync(emitter, &Event{Type: "logout"})
	select {
	case <-emitter.done:
	case <-time.After(time.Second):
		t.Fatal("emit was not called")
	}
}

func TestShutdownDrainDuration(t *testing.T) {
	if ShutdownDrainDuration < emitTimeout {
		t.Errorf("ShutdownDrainDuration %v must be >= emitTimeout %v", ShutdownDrainDuration, emitTimeout)
	}
}
