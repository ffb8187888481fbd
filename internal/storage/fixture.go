package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// fixtureDeal mirrors the loosely typed records of hand-written fixture
// files. Dates may be RFC 3339 timestamps or plain YYYY-MM-DD dates, and
// TOML files may use native datetimes.
type fixtureDeal struct {
	ExpectedCloseDate any    `json:"expectedCloseDate" toml:"expectedCloseDate"`
	CreatedAt         any    `json:"createdAt" toml:"createdAt"`
	UpdatedAt         any    `json:"updatedAt" toml:"updatedAt"`
	Value             any    `json:"value" toml:"value"`
	Title             string `json:"title" toml:"title"`
	Company           string `json:"company" toml:"company"`
	Contact           string `json:"contact" toml:"contact"`
	Stage             string `json:"stage" toml:"stage"`
	Priority          string `json:"priority" toml:"priority"`
	Description       string `json:"description" toml:"description"`
	ID                int    `json:"id" toml:"id"`
}

type tomlFixture struct {
	Deals []fixtureDeal `toml:"deals"`
}

// LoadFixtureFile reads deals from a .json or .toml fixture.
func LoadFixtureFile(path string) ([]model.Deal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ParseFixture(f, format)
}

// ParseFixture decodes deals in the given format ("json" or "toml"). JSON
// input may be a bare array or a versioned snapshot.
func ParseFixture(r io.Reader, format string) ([]model.Deal, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	switch format {
	case "json", "":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			snap, err := DecodeSnapshot(trimmed)
			if err != nil {
				return nil, err
			}
			return snap.Deals, nil
		}
		return parseFixtureJSON(trimmed)
	case "toml":
		var doc tomlFixture
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse TOML fixture: %w", err)
		}
		return convertFixture(doc.Deals)
	default:
		return nil, fmt.Errorf("unsupported fixture format %q", format)
	}
}

func parseFixtureJSON(data []byte) ([]model.Deal, error) {
	var raw []fixtureDeal
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON fixture: %w", err)
	}
	return convertFixture(raw)
}

func convertFixture(raw []fixtureDeal) ([]model.Deal, error) {
	deals := make([]model.Deal, 0, len(raw))
	for i, r := range raw {
		d, err := r.toDeal()
		if err != nil {
			return nil, fmt.Errorf("fixture record %d: %w", i, err)
		}
		deals = append(deals, d)
	}
	return deals, nil
}

func (r fixtureDeal) toDeal() (model.Deal, error) {
	d := model.Deal{
		ID:          r.ID,
		Title:       strings.TrimSpace(r.Title),
		Company:     r.Company,
		Contact:     r.Contact,
		Description: r.Description,
	}

	if r.Stage != "" {
		stage, err := model.ParseStage(r.Stage)
		if err != nil {
			return d, err
		}
		d.Stage = stage
	}
	if r.Priority != "" {
		p, err := model.ParsePriority(r.Priority)
		if err != nil {
			return d, err
		}
		d.Priority = p
	}

	value, err := fixtureValue(r.Value)
	if err != nil {
		return d, err
	}
	d.Value = value

	if d.ExpectedCloseDate, err = fixtureTime(r.ExpectedCloseDate); err != nil {
		return d, fmt.Errorf("expectedCloseDate: %w", err)
	}
	created, err := fixtureTime(r.CreatedAt)
	if err != nil {
		return d, fmt.Errorf("createdAt: %w", err)
	}
	if created != nil {
		d.CreatedAt = *created
	}
	updated, err := fixtureTime(r.UpdatedAt)
	if err != nil {
		return d, fmt.Errorf("updatedAt: %w", err)
	}
	if updated != nil {
		d.UpdatedAt = *updated
	}
	if d.UpdatedAt.Before(d.CreatedAt) {
		d.UpdatedAt = d.CreatedAt
	}
	return d, nil
}

func fixtureValue(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return roundValue(n)
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("%w: invalid value %d, must not be negative", common.ErrValidation, n)
		}
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid value %q", common.ErrValidation, n)
		}
		return roundValue(f)
	default:
		return 0, fmt.Errorf("%w: invalid value %v", common.ErrValidation, v)
	}
}

// roundValue rounds f to whole currency units, rejecting amounts an int64
// cannot hold.
func roundValue(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: invalid value %v", common.ErrValidation, f)
	}
	r := math.Round(f)
	if r < 0 {
		return 0, fmt.Errorf("%w: invalid value %v, must not be negative", common.ErrValidation, f)
	}
	if r >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: invalid value %v, too large", common.ErrValidation, f)
	}
	return int64(r), nil
}

var fixtureTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func fixtureTime(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		u := t.UTC()
		return &u, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		for _, layout := range fixtureTimeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				u := parsed.UTC()
				return &u, nil
			}
		}
		return nil, fmt.Errorf("unrecognised date %q", t)
	default:
		return nil, fmt.Errorf("unrecognised date %v", v)
	}
}
