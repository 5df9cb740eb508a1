package items

import (
	"strings"

	"github.com/supplyhub/supplyhub/internal/shared"
)

func (s *Service) validate(item Item) error {
	errs := make(shared.FieldErrors)
	if strings.TrimSpace(item.StockNumber) == "" {
		errs["stock_number"] = "required"
	}
	if strings.TrimSpace(item.Name) == "" {
		errs["name"] = "required"
	}
	if strings.TrimSpace(item.Unit) == "" {
		errs["unit"] = "required"
	}
	if item.UnitCost.IsNegative() {
		errs["unit_cost"] = "must not be negative"
	}
	if item.StockLevel < 0 {
		errs["stock_level"] = "must not be negative"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
