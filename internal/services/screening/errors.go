package screening

import (
	"errors"
	"fmt"

	"RiskScreen/internal/domain/models"
)

var (
	// ErrSchema is returned when a query needs an identity column the panel lacks.
	ErrSchema = errors.New("screening: required column missing")
	// ErrUnorderablePeriod is returned when a period key cannot be placed in a sort order.
	ErrUnorderablePeriod = errors.New("screening: unorderable period key")
)

// identityColumns are required by every query.
var identityColumns = []string{models.ColEntity, models.ColPeriod}

// RequireColumns fails with ErrSchema naming the first missing column.
func RequireColumns(p *models.Panel, cols ...string) error {
	for _, c := range cols {
		if !p.Has(c) {
			return fmt.Errorf("%w: %s", ErrSchema, c)
		}
	}
	return nil
}

// RequireIdentity checks the entity and period columns.
func RequireIdentity(p *models.Panel) error {
	return RequireColumns(p, identityColumns...)
}
