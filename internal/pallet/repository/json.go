package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

// JSONRepository reads the flat pallets.json dataset.
type JSONRepository struct {
	Path string
}

func NewJSONRepository(path string) *JSONRepository {
	return &JSONRepository{Path: path}
}

func (r *JSONRepository) LoadPallets(ctx context.Context) ([]model.Pallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.Path, err)
	}
	return DecodePallets(raw)
}

// DecodePallets parses and validates a JSON array of pallet records.
func DecodePallets(raw []byte) ([]model.Pallet, error) {
	var pallets []model.Pallet
	if err := json.Unmarshal(raw, &pallets); err != nil {
		return nil, fmt.Errorf("decode pallets: %w", err)
	}
	if err := normalizeAll(pallets); err != nil {
		return nil, err
	}
	return pallets, nil
}

// SavePallets writes pallets back in the format LoadPallets reads. The file
// is replaced through a temporary sibling so readers never see a partial
// write.
func (r *JSONRepository) SavePallets(ctx context.Context, pallets []model.Pallet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(pallets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pallets: %w", err)
	}
	tmp := r.Path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.Path); err != nil {
		return fmt.Errorf("replace %s: %w", r.Path, err)
	}
	return nil
}
