package inventory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// SeedData is the shape of a seed file: the suppliers and initial stock
// loaded into empty collections on startup
type SeedData struct {
	Proveedores []Supplier `json:"proveedores"`
	Stock       []Item     `json:"stock"`
}

// LoadSeed reads a seed file from disk
func LoadSeed(path string) (*SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &seed, nil
}

// Bootstrap fills empty collections from seed data. Collections that
// already hold records are left alone, so restarting with a seed file
// never clobbers live data.
func (s *Service) Bootstrap(seed *SeedData) error {
	proveedores, err := s.db.ListSuppliers()
	if err != nil {
		return fmt.Errorf("loading suppliers: %w", err)
	}
	if len(proveedores) == 0 && len(seed.Proveedores) > 0 {
		if err := s.db.ReplaceSuppliers(seed.Proveedores); err != nil {
			return fmt.Errorf("seeding suppliers: %w", err)
		}
		slog.Info("Seeded suppliers", "count", len(seed.Proveedores))
	}

	stock, err := s.db.ListStock()
	if err != nil {
		return fmt.Errorf("loading stock: %w", err)
	}
	if len(stock) == 0 && len(seed.Stock) > 0 {
		if err := s.db.ReplaceStock(seed.Stock); err != nil {
			return fmt.Errorf("seeding stock: %w", err)
		}
		slog.Info("Seeded stock", "count", len(seed.Stock))
	}
	return nil
}
