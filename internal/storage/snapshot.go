package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/service"
)

// EncodeSnapshot serializes a snapshot stamped with the current version.
func EncodeSnapshot(snap service.Snapshot) ([]byte, error) {
	snap.Version = service.SnapshotVersion
	if snap.Deals == nil {
		snap.Deals = cloneDeals(nil)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a stored snapshot. A bare JSON array is accepted as
// the unversioned layout (version 0) written by earlier tools.
func DecodeSnapshot(data []byte) (service.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return service.Snapshot{Version: service.SnapshotVersion}, nil
	}

	if trimmed[0] == '[' {
		deals, err := parseFixtureJSON(trimmed)
		if err != nil {
			return service.Snapshot{}, err
		}
		return service.Snapshot{Version: 0, Deals: deals, LastID: maxDealID(deals)}, nil
	}

	var snap service.Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return service.Snapshot{}, fmt.Errorf("%w: %w", ErrCorruptedData, err)
	}
	if snap.Version > service.SnapshotVersion {
		return service.Snapshot{}, fmt.Errorf("%w: %d", common.ErrUnsupportedVersion, snap.Version)
	}
	return snap, nil
}
