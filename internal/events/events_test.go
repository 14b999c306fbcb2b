package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ipasurvey/internal/model"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestBus_PublishReachesSubscriber(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.Subscribe(ctx, model.TopicResponseSubmitted)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	evt := model.ResponseSubmittedEvent{ResponseID: "r1", TestID: "t1", UserID: "u1", AnswerCount: 3}
	if err := bus.PublishResponseSubmitted(ctx, evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-messages:
		var got model.ResponseSubmittedEvent
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		msg.Ack()
		if got.ResponseID != "r1" || got.AnswerCount != 3 {
			t.Errorf("unexpected event %+v", got)
		}
		if msg.Metadata.Get("test_id") != "t1" {
			t.Errorf("expected test_id metadata, got %q", msg.Metadata.Get("test_id"))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	got  []string
	once sync.Once
	done chan struct{}
}

func (b *recordingBroadcaster) BroadcastToTest(testID string, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, testID+":"+msgType)
	b.once.Do(func() { close(b.done) })
}

func TestSubmissionRelay_ForwardsToBroadcaster(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recordingBroadcaster{done: make(chan struct{})}
	relay := NewSubmissionRelay(bus, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	go func() { _ = relay.Run(ctx) }()

	// the relay subscribes asynchronously, so keep publishing until it sees one
	deadline := time.After(2 * time.Second)
	for {
		_ = bus.PublishResponseSubmitted(ctx, model.ResponseSubmittedEvent{ResponseID: "r1", TestID: "t9"})
		select {
		case <-rec.done:
			rec.mu.Lock()
			defer rec.mu.Unlock()
			if rec.got[0] != "t9:"+MsgResponseSubmitted {
				t.Errorf("unexpected broadcast %v", rec.got)
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("relay never broadcast")
		}
	}
}
