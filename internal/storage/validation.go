// Package storage provides the deal store and its persistence backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/service"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrCorruptedData = errors.New("stored data is corrupted")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateID rejects ids that can never exist.
func validateID(id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: deal %d", common.ErrNotFound, id)
	}
	return nil
}

// validateStoredDeal checks a record read back from a backend.
func validateStoredDeal(d model.Deal) error {
	if d.ID <= 0 {
		return fmt.Errorf("%w: deal id %d", ErrCorruptedData, d.ID)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: deal %d has no title", ErrCorruptedData, d.ID)
	}
	if !d.Stage.Valid() {
		return fmt.Errorf("%w: deal %d has stage %q", ErrCorruptedData, d.ID, d.Stage)
	}
	if d.Value < 0 {
		return fmt.Errorf("%w: deal %d has negative value", ErrCorruptedData, d.ID)
	}
	if d.UpdatedAt.Before(d.CreatedAt) {
		return fmt.Errorf("%w: deal %d updated before it was created", ErrCorruptedData, d.ID)
	}
	return nil
}

// validateSnapshot checks every record and id uniqueness.
func validateSnapshot(snap service.Snapshot) error {
	if snap.Version > service.SnapshotVersion {
		return fmt.Errorf("%w: %d", common.ErrUnsupportedVersion, snap.Version)
	}
	seen := make(map[int]struct{}, len(snap.Deals))
	for _, d := range snap.Deals {
		if err := validateStoredDeal(d); err != nil {
			return err
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: duplicate deal id %d", ErrCorruptedData, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}
