package categories

import (
	"strings"

	"github.com/supplyhub/supplyhub/internal/shared"
)

func (s *Service) validate(c Category) error {
	errs := make(shared.FieldErrors)
	if strings.TrimSpace(c.Code) == "" {
		errs["code"] = "required"
	}
	if strings.TrimSpace(c.Name) == "" {
		errs["name"] = "required"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
