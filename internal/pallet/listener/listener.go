package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/metrics"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/dto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewKafkaReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  500 * time.Millisecond,
	})
}

// ScannerListener applies handheld scanner messages to the pallet store.
type ScannerListener struct {
	reader  MessageReader
	uc      pallet.UseCase
	metrics *metrics.Metrics
	logger  logger.ZapLogger
}

func NewScannerListener(reader MessageReader, uc pallet.UseCase, m *metrics.Metrics, log logger.ZapLogger) *ScannerListener {
	return &ScannerListener{
		reader:  reader,
		uc:      uc,
		metrics: m,
		logger:  log,
	}
}

func (l *ScannerListener) Start(ctx context.Context) {
	l.logger.Info("Starting scanner Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping scanner Kafka listener")
			return
		default:
			msg, err := l.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.metrics.ObserveScannerMessage(l.processMessage(ctx, msg.Value))
		}
	}
}

// processMessage returns a short result label for metrics.
func (l *ScannerListener) processMessage(ctx context.Context, value []byte) string {
	var msg dto.ScannerMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		l.logger.Error("Failed to unmarshal scanner message", zap.Error(err))
		return "malformed"
	}
	if msg.PalletID == "" {
		l.logger.Warn("Scanner message without pallet id", zap.String("device_id", msg.DeviceID))
		return "malformed"
	}

	action := model.ActionScan
	if msg.Action != "" {
		parsed, err := model.ParseAction(msg.Action)
		if err != nil || !scannerAction(parsed) {
			l.logger.Warn("Unsupported scanner action",
				zap.String("pallet_id", msg.PalletID),
				zap.String("action", msg.Action),
				zap.String("device_id", msg.DeviceID),
			)
			return "unsupported"
		}
		action = parsed
	}

	res, err := l.uc.ApplyAction(ctx, msg.PalletID, action, dto.Overrides{})
	if err != nil {
		l.logger.Error("Failed to apply scanner action",
			zap.String("pallet_id", msg.PalletID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return "failed"
	}
	if !res.Applied {
		l.logger.Warn("Scanner action not applied",
			zap.String("pallet_id", msg.PalletID),
			zap.String("action", string(action)),
			zap.String("outcome", string(res.Outcome)),
		)
	}
	return string(res.Outcome)
}

// scannerAction reports whether a device may trigger action. Status and
// destination overrides need operator input and are console-only.
func scannerAction(a model.Action) bool {
	switch a {
	case model.ActionReceive, model.ActionPutaway, model.ActionScan, model.ActionRelocate,
		model.ActionPick, model.ActionLoad, model.ActionDelay:
		return true
	}
	return false
}

func (l *ScannerListener) Close() error {
	return l.reader.Close()
}
