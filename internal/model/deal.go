// Package model defines the core domain types of the deal pipeline.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
)

// Priority is a display/sorting hint; it never affects pipeline logic.
type Priority string

const (
	// PriorityLow marks a low priority deal.
	PriorityLow Priority = "low"
	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"
	// PriorityHigh marks a high priority deal.
	PriorityHigh Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts user input into a Priority. Empty input yields
// PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", common.ErrValidation, s)
	}
	return p, nil
}

// Deal is a single opportunity in the pipeline. Value is stored in whole
// currency units.
type Deal struct {
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	Title             string     `json:"title"`
	Company           string     `json:"company"`
	Contact           string     `json:"contact"`
	Stage             StageID    `json:"stage"`
	Priority          Priority   `json:"priority"`
	Description       string     `json:"description,omitempty"`
	ID                int        `json:"id"`
	Value             int64      `json:"value"`
}

// Clone returns a structural copy that shares no memory with d.
func (d Deal) Clone() Deal {
	if d.ExpectedCloseDate != nil {
		t := *d.ExpectedCloseDate
		d.ExpectedCloseDate = &t
	}
	return d
}

// AgedDeal is a Deal decorated with its derived age bucket.
type AgedDeal struct {
	Age      DealAge `json:"age"`
	AgeColor string  `json:"ageColor"`
	Deal
}

// Decorate computes the age fields of d relative to now.
func Decorate(d Deal, now time.Time) AgedDeal {
	age := ClassifyAge(d.CreatedAt, now)
	return AgedDeal{
		Deal:     d.Clone(),
		Age:      age,
		AgeColor: age.Color(),
	}
}

// Clone returns a structural copy of a.
func (a AgedDeal) Clone() AgedDeal {
	a.Deal = a.Deal.Clone()
	return a
}

// CloneAged deep-copies a slice of aged deals.
func CloneAged(deals []AgedDeal) []AgedDeal {
	if deals == nil {
		return nil
	}
	out := make([]AgedDeal, len(deals))
	for i, d := range deals {
		out[i] = d.Clone()
	}
	return out
}

// Undecorate strips the derived fields.
func Undecorate(deals []AgedDeal) []Deal {
	out := make([]Deal, len(deals))
	for i, d := range deals {
		out[i] = d.Deal.Clone()
	}
	return out
}

// DealInput is the payload for creating a deal. A zero Stage means
// StageLead and a zero Priority means PriorityMedium.
type DealInput struct {
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty" toml:"expectedCloseDate"`
	Title             string     `json:"title" toml:"title"`
	Company           string     `json:"company" toml:"company"`
	Contact           string     `json:"contact" toml:"contact"`
	Stage             StageID    `json:"stage" toml:"stage"`
	Priority          Priority   `json:"priority" toml:"priority"`
	Description       string     `json:"description" toml:"description"`
	Value             int64      `json:"value" toml:"value"`
}

// Validate checks the required fields and enumerations of a create payload.
func (in DealInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: missing title", common.ErrValidation)
	}
	if in.Value < 0 {
		return fmt.Errorf("%w: value must not be negative", common.ErrValidation)
	}
	if in.Stage != "" && !in.Stage.Valid() {
		return fmt.Errorf("%w: %w: %q", common.ErrValidation, common.ErrInvalidStage, in.Stage)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", common.ErrValidation, in.Priority)
	}
	return nil
}

// DealPatch is a partial update. Nil fields are left untouched.
type DealPatch struct {
	Title             *string
	Company           *string
	Contact           *string
	Value             *int64
	Stage             *StageID
	Priority          *Priority
	Description       *string
	ExpectedCloseDate *time.Time
	ClearCloseDate    bool
}

// IsEmpty reports whether the patch changes nothing.
func (p DealPatch) IsEmpty() bool {
	return p.Title == nil && p.Company == nil && p.Contact == nil &&
		p.Value == nil && p.Stage == nil && p.Priority == nil &&
		p.Description == nil && p.ExpectedCloseDate == nil && !p.ClearCloseDate
}

// Validate checks the fields the patch sets.
func (p DealPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title cannot be blank", common.ErrValidation)
	}
	if p.Value != nil && *p.Value < 0 {
		return fmt.Errorf("%w: value must not be negative", common.ErrValidation)
	}
	if p.Stage != nil && !p.Stage.Valid() {
		return fmt.Errorf("%w: %w: %q", common.ErrValidation, common.ErrInvalidStage, *p.Stage)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", common.ErrValidation, *p.Priority)
	}
	return nil
}

// Apply merges the patch onto d. ID and CreatedAt are never touched.
func (p DealPatch) Apply(d Deal) Deal {
	d = d.Clone()
	if p.Title != nil {
		d.Title = strings.TrimSpace(*p.Title)
	}
	if p.Company != nil {
		d.Company = *p.Company
	}
	if p.Contact != nil {
		d.Contact = *p.Contact
	}
	if p.Value != nil {
		d.Value = *p.Value
	}
	if p.Stage != nil {
		d.Stage = *p.Stage
	}
	if p.Priority != nil {
		d.Priority = *p.Priority
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	switch {
	case p.ClearCloseDate:
		d.ExpectedCloseDate = nil
	case p.ExpectedCloseDate != nil:
		t := *p.ExpectedCloseDate
		d.ExpectedCloseDate = &t
	}
	return d
}

// StagePatch builds a patch that only moves the deal.
func StagePatch(stage StageID) DealPatch {
	return DealPatch{Stage: &stage}
}
