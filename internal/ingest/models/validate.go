package models

import (
	"fmt"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/go-playground/validator/v10"
)

// validate caches struct metadata; it is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", e.ErrInvalidInput, err.Error())
	}
	return nil
}
