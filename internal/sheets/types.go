package sheets

import (
	"context"
	"sort"
	"time"

	"github.com/Veraticus/the-deals-must-flow/internal/analytics"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// ReportWriter publishes a pipeline report somewhere.
type ReportWriter interface {
	Write(ctx context.Context, report PipelineReport) error
}

// StageRow is one line of the per-stage analytics table.
type StageRow struct {
	Stage          string
	TotalDeals     int
	TotalValue     int64
	AvgDealSize    float64
	ConversionRate float64
}

// DealRow is one line of the deal table.
type DealRow struct {
	ExpectedClose *time.Time
	UpdatedAt     time.Time
	Title         string
	Company       string
	Contact       string
	Stage         string
	Priority      string
	Age           string
	ID            int
	Value         int64
}

// PipelineReport is everything written to the sheet.
type PipelineReport struct {
	GeneratedAt time.Time
	Stages      []StageRow
	Deals       []DealRow
	TotalDeals  int
	TotalValue  int64
}

// BuildReport assembles a report from the current deals. Stage rows follow
// pipeline order; deals are grouped by stage, highest value first.
func BuildReport(deals []model.AgedDeal, generatedAt time.Time) PipelineReport {
	p := analytics.ComputePipeline(deals)
	summary := analytics.Summarize(deals)

	report := PipelineReport{
		GeneratedAt: generatedAt,
		TotalDeals:  summary.TotalDeals,
		TotalValue:  summary.TotalValue,
		Stages:      make([]StageRow, 0, len(model.Stages())),
		Deals:       make([]DealRow, 0, len(deals)),
	}

	order := make(map[model.StageID]int, len(model.Stages()))
	for i, stage := range model.Stages() {
		order[stage.ID] = i
		a := p.Stage(stage.ID)
		report.Stages = append(report.Stages, StageRow{
			Stage:          stage.Name,
			TotalDeals:     a.TotalDeals,
			TotalValue:     a.TotalValue,
			AvgDealSize:    a.AvgDealSize,
			ConversionRate: a.ConversionRate,
		})
	}

	sorted := model.CloneAged(deals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if order[sorted[i].Stage] != order[sorted[j].Stage] {
			return order[sorted[i].Stage] < order[sorted[j].Stage]
		}
		return sorted[i].Value > sorted[j].Value
	})

	for _, d := range sorted {
		report.Deals = append(report.Deals, DealRow{
			ID:            d.ID,
			Title:         d.Title,
			Company:       d.Company,
			Contact:       d.Contact,
			Stage:         d.Stage.Name(),
			Priority:      string(d.Priority),
			Value:         d.Value,
			Age:           string(d.Age),
			ExpectedClose: d.ExpectedCloseDate,
			UpdatedAt:     d.UpdatedAt,
		})
	}

	return report
}
