package suppliers

import (
	"strings"

	"github.com/supplyhub/supplyhub/internal/shared"
)

func (s *Service) validate(sup Supplier) error {
	errs := make(shared.FieldErrors)
	if strings.TrimSpace(sup.Code) == "" {
		errs["code"] = "required"
	}
	if strings.TrimSpace(sup.Name) == "" {
		errs["name"] = "required"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
