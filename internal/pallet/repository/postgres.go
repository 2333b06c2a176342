package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

type palletRow struct {
	ID            string    `db:"id"`
	Destination   string    `db:"destination"`
	Status        string    `db:"status"`
	Urgency       string    `db:"urgency"`
	WeightKg      float64   `db:"weight_kg"`
	LastScannedAt time.Time `db:"last_scanned_at"`
	model.StorageLocation
}

func (r *PGRepository) LoadPallets(ctx context.Context) ([]model.Pallet, error) {
	query := `
		SELECT id, destination, status, urgency, weight_kg, last_scanned_at,
		       COALESCE(location_id, '') AS location_id, zone, aisle, bay, level
		FROM pallets
		ORDER BY id`

	var rows []palletRow
	if err := r.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	pallets := make([]model.Pallet, 0, len(rows))
	for _, row := range rows {
		pallets = append(pallets, model.Pallet{
			ID:             row.ID,
			Destination:    row.Destination,
			Status:         model.Status(row.Status),
			Urgency:        model.Urgency(row.Urgency),
			WeightKg:       row.WeightKg,
			LastScannedAt:  row.LastScannedAt.UTC(),
			LogicalAddress: row.StorageLocation,
		})
	}
	if err := normalizeAll(pallets); err != nil {
		return nil, err
	}
	return pallets, nil
}

func toRow(p model.Pallet) palletRow {
	return palletRow{
		ID:              p.ID,
		Destination:     p.Destination,
		Status:          string(p.Status),
		Urgency:         string(p.Urgency),
		WeightKg:        p.WeightKg,
		LastScannedAt:   p.LastScannedAt.UTC(),
		StorageLocation: p.LogicalAddress,
	}
}

// SavePallets upserts the current state of every pallet in one transaction.
func (r *PGRepository) SavePallets(ctx context.Context, pallets []model.Pallet) error {
	if len(pallets) == 0 {
		return nil
	}
	query := `
		INSERT INTO pallets (
			id, destination, status, urgency, weight_kg, last_scanned_at,
			location_id, zone, aisle, bay, level
		)
		VALUES (
			:id, :destination, :status, :urgency, :weight_kg, :last_scanned_at,
			:location_id, :zone, :aisle, :bay, :level
		)
		ON CONFLICT (id)
		DO UPDATE SET
			destination = EXCLUDED.destination,
			status = EXCLUDED.status,
			urgency = EXCLUDED.urgency,
			weight_kg = EXCLUDED.weight_kg,
			last_scanned_at = EXCLUDED.last_scanned_at,
			location_id = EXCLUDED.location_id,
			zone = EXCLUDED.zone,
			aisle = EXCLUDED.aisle,
			bay = EXCLUDED.bay,
			level = EXCLUDED.level
	`
	rows := make([]palletRow, len(pallets))
	for i, p := range pallets {
		rows[i] = toRow(p)
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("upsert pallets: %w", err)
	}
	return tx.Commit()
}

type eventRow struct {
	ID       string    `db:"id"`
	PalletID string    `db:"pallet_id"`
	Type     string    `db:"event_type"`
	At       time.Time `db:"occurred_at"`
	Actor    string    `db:"actor"`
	Source   string    `db:"source"`
	Note     string    `db:"note"`
}

func toEventRow(ev model.PalletEvent) eventRow {
	return eventRow{
		ID:       ev.ID,
		PalletID: ev.PalletID,
		Type:     string(ev.Type),
		At:       ev.At.UTC(),
		Actor:    ev.Actor,
		Source:   string(ev.Source),
		Note:     ev.Note,
	}
}

// Publish appends events to the pallet_events ledger. Re-published ids are
// ignored, so redo after undo does not duplicate rows.
func (r *PGRepository) Publish(ctx context.Context, events []model.PalletEvent) error {
	if len(events) == 0 {
		return nil
	}
	query := `
		INSERT INTO pallet_events (id, pallet_id, event_type, occurred_at, actor, source, note)
		VALUES (:id, :pallet_id, :event_type, :occurred_at, :actor, :source, :note)
		ON CONFLICT (id) DO NOTHING
	`
	rows := make([]eventRow, len(events))
	for i, ev := range events {
		rows[i] = toEventRow(ev)
	}
	if _, err := r.DB.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("insert pallet events: %w", err)
	}
	return nil
}
