package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// simulation is the handle of the periodic tick driver. Each store owns
// exactly one.
type simulation struct {
	mu     sync.Mutex
	period time.Duration
	ticker *time.Ticker
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *simulation) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// StartSimulation starts ticking until StopSimulation is called or ctx ends.
// It reports false if the driver was already running.
func (uc *palletUseCase) StartSimulation(ctx context.Context) bool {
	s := uc.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(s.period)
	done := make(chan struct{})
	s.ticker, s.cancel, s.done = ticker, cancel, done

	go uc.runSimulation(runCtx, ticker, done)

	uc.logger.Info("Simulation started", zap.Duration("period", s.period))
	return true
}

func (uc *palletUseCase) runSimulation(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := uc.SimulateTick(ctx)
			if err != nil {
				uc.logger.Error("Simulation tick failed", zap.Error(err))
				continue
			}
			uc.logger.Debug("Simulation tick",
				zap.String("pallet_id", res.PalletID),
				zap.String("outcome", string(res.Outcome)),
			)
		}
	}
}

// StopSimulation stops the driver and waits for an in-progress tick to
// finish. It reports false if nothing was running.
func (uc *palletUseCase) StopSimulation() bool {
	s := uc.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return false
	}
	wasRunning := s.runningLocked()
	s.cancel()
	<-s.done
	s.ticker, s.cancel, s.done = nil, nil, nil

	if wasRunning {
		uc.logger.Info("Simulation stopped")
	}
	return wasRunning
}

// SetSimulationPeriod changes the tick period. A running driver keeps its
// goroutine; only the ticker is reset, so no tick is doubled.
func (uc *palletUseCase) SetSimulationPeriod(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("simulation period must be positive, got %s", d)
	}
	s := uc.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	s.period = d
	if s.runningLocked() {
		s.ticker.Reset(d)
	}
	return nil
}

func (uc *palletUseCase) SimulationRunning() bool {
	s := uc.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}
