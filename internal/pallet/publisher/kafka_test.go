package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishKeysByPallet(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w, logger.NewNop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []model.PalletEvent{
		{ID: "PAL-1-scan-1", PalletID: "PAL-1", Type: model.EventScan, At: at, Actor: "Scanner-03", Source: model.SourceScanner},
		{ID: "PAL-2-loaded-1", PalletID: "PAL-2", Type: model.EventLoaded, At: at, Actor: "Dock-02", Source: model.SourceScanner},
	}
	if err := p.Publish(context.Background(), events); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("messages = %d", len(w.msgs))
	}

	msg := w.msgs[1]
	if string(msg.Key) != "PAL-2" {
		t.Errorf("key = %s", msg.Key)
	}
	var got model.PalletEvent
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "PAL-2-loaded-1" || got.Type != model.EventLoaded || !got.At.Equal(at) {
		t.Errorf("decoded = %+v", got)
	}
	if len(msg.Headers) == 0 || msg.Headers[0].Key != "event_type" || string(msg.Headers[0].Value) != "loaded" {
		t.Errorf("headers = %+v", msg.Headers)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Error("close not forwarded")
	}
}

func TestPublishError(t *testing.T) {
	p := NewPublisher(&fakeWriter{err: errors.New("broker down")}, logger.NewNop())
	if err := p.Publish(context.Background(), []model.PalletEvent{{ID: "x", PalletID: "P"}}); err == nil {
		t.Fatal("expected writer error")
	}
}
