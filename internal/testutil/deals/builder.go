// Package deals builds deal fixtures for tests.
//
// Example usage:
//
//	seed := deals.NewBuilder().
//		WithScenarioA().
//		WithDeal("Renewal", model.StageClosed, 900).
//		Build()
package deals

import (
	"time"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// DefaultCreatedAt is the creation time of built deals unless overridden.
var DefaultCreatedAt = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

// Option adjusts one built deal.
type Option func(*model.Deal)

// WithCompany sets the company.
func WithCompany(company string) Option {
	return func(d *model.Deal) {
		d.Company = company
	}
}

// WithPriority sets the priority.
func WithPriority(p model.Priority) Option {
	return func(d *model.Deal) {
		d.Priority = p
	}
}

// CreatedAt sets both timestamps.
func CreatedAt(t time.Time) Option {
	return func(d *model.Deal) {
		d.CreatedAt = t
		d.UpdatedAt = t
	}
}

// Builder accumulates deals with sequential ids starting at 1.
type Builder struct {
	deals []model.Deal
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithDeal adds a deal.
func (b *Builder) WithDeal(title string, stage model.StageID, value int64, opts ...Option) *Builder {
	d := model.Deal{
		ID:        len(b.deals) + 1,
		Title:     title,
		Value:     value,
		Stage:     stage,
		Priority:  model.PriorityMedium,
		CreatedAt: DefaultCreatedAt,
		UpdatedAt: DefaultCreatedAt,
	}
	for _, opt := range opts {
		opt(&d)
	}
	b.deals = append(b.deals, d)
	return b
}

// WithScenarioA adds three leads worth 100, 200 and 300 and two qualified
// deals worth 1000 and 3000.
func (b *Builder) WithScenarioA() *Builder {
	return b.
		WithDeal("Website revamp", model.StageLead, 100, WithCompany("Acme")).
		WithDeal("Data platform", model.StageLead, 200, WithCompany("Globex")).
		WithDeal("Security audit", model.StageLead, 300, WithCompany("Initech")).
		WithDeal("CRM rollout", model.StageQualified, 1000, WithCompany("Umbrella")).
		WithDeal("Support plan", model.StageQualified, 3000, WithCompany("Hooli"))
}

// Build returns a copy of the accumulated deals.
func (b *Builder) Build() []model.Deal {
	out := make([]model.Deal, len(b.deals))
	copy(out, b.deals)
	return out
}
