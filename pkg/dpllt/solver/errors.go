package solver

import (
	"github.com/pkg/errors"

	"dpllt/pkg/dpllt/aggregate"
)

func errUnknownSet(externalID int) error {
	return errors.Errorf("solver: unknown set id %d", externalID)
}

func errUnknownAgg(id aggregate.AggID) error {
	return errors.Errorf("solver: unknown aggregate id %d", id)
}
