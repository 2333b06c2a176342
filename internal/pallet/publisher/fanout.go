package publisher

import (
	"context"
	"errors"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet"
)

// Fanout forwards events to every sink. A failing sink does not stop the
// others; all errors are returned joined.
type Fanout []pallet.EventPublisher

func (f Fanout) Publish(ctx context.Context, events []model.PalletEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
