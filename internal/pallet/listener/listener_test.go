package listener

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/metrics"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/usecase"
	"github.com/segmentio/kafka-go"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memRepo []model.Pallet

func (r memRepo) LoadPallets(ctx context.Context) ([]model.Pallet, error) {
	return model.ClonePallets(r), nil
}

// scriptedReader hands out its messages and then blocks until ctx ends.
type scriptedReader struct {
	msgs []kafka.Message
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		return m, nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) Close() error { return nil }

func newStore(t *testing.T) pallet.UseCase {
	t.Helper()
	grid, _ := location.NewGrid(location.DefaultLayout())
	uc, err := usecase.NewPalletUseCase(context.Background(), memRepo{
		{ID: "PAL-00001", Status: model.StatusStored, Urgency: model.UrgencyLow, LastScannedAt: fixedNow.Add(-time.Hour),
			LogicalAddress: location.NewLocation("A", 1, 1, 1)},
	}, grid, logger.NewNop(),
		usecase.WithClock(func() time.Time { return fixedNow }),
		usecase.WithRand(rand.New(rand.NewSource(1))),
	)
	if err != nil {
		t.Fatal(err)
	}
	return uc
}

func TestProcessMessage(t *testing.T) {
	uc := newStore(t)
	l := NewScannerListener(&scriptedReader{}, uc, metrics.New(), logger.NewNop())
	ctx := context.Background()

	tests := []struct {
		payload string
		want    string
	}{
		{`not json`, "malformed"},
		{`{"device_id":"HH-7"}`, "malformed"},
		{`{"pallet_id":"PAL-00001","action":"set_status"}`, "unsupported"},
		{`{"pallet_id":"PAL-00001","action":"teleport"}`, "unsupported"},
		{`{"pallet_id":"PAL-99999"}`, "pallet_not_found"},
		{`{"pallet_id":"PAL-00001","device_id":"HH-7"}`, "applied"},
		{`{"pallet_id":"PAL-00001","action":"pick"}`, "applied"},
	}
	for _, tt := range tests {
		if got := l.processMessage(ctx, []byte(tt.payload)); got != tt.want {
			t.Errorf("%s -> %s, want %s", tt.payload, got, tt.want)
		}
	}

	p, _ := uc.GetPallet("PAL-00001")
	if p.Status != model.StatusTransit || !p.LastScannedAt.Equal(fixedNow) {
		t.Errorf("pallet = %+v", p)
	}
}

func TestStartConsumesUntilCancelled(t *testing.T) {
	uc := newStore(t)
	reader := &scriptedReader{msgs: []kafka.Message{
		{Value: []byte(`{"pallet_id":"PAL-00001","action":"delay"}`)},
	}}
	l := NewScannerListener(reader, uc, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if p, _ := uc.GetPallet("PAL-00001"); p.Status == model.StatusDelayed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("message not applied")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
