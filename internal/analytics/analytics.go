// Package analytics derives per-stage pipeline metrics from a deal list.
// Everything here is pure and recomputed on demand.
package analytics

import (
	"fmt"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// StageAnalytics summarizes the deals sitting in one stage.
type StageAnalytics struct {
	TotalDeals     int     `json:"totalDeals"`
	TotalValue     int64   `json:"totalValue"`
	AvgDealSize    float64 `json:"avgDealSize"`
	ConversionRate float64 `json:"conversionRate"`
}

// Pipeline maps every catalogue stage to its analytics.
type Pipeline map[model.StageID]StageAnalytics

// ComputeStageAnalytics computes the metrics of one stage.
//
// ConversionRate counts the deals currently in any later stage relative to
// the deals in this one, capped at 100. It is not a historical funnel: a
// deal that skipped this stage still counts as converted.
//
// An unknown stage panics.
func ComputeStageAnalytics(deals []model.AgedDeal, stage model.StageID) StageAnalytics {
	if !stage.Valid() {
		panic(fmt.Sprintf("analytics: unknown stage %q", stage))
	}

	downstream := make(map[model.StageID]struct{})
	for _, id := range model.DownstreamOf(stage) {
		downstream[id] = struct{}{}
	}

	var (
		out       StageAnalytics
		converted int
	)
	for _, d := range deals {
		if d.Stage == stage {
			out.TotalDeals++
			out.TotalValue += d.Value
		}
		if _, ok := downstream[d.Stage]; ok {
			converted++
		}
	}

	if out.TotalDeals == 0 {
		return out
	}
	out.AvgDealSize = float64(out.TotalValue) / float64(out.TotalDeals)
	out.ConversionRate = min(100, float64(converted)/float64(out.TotalDeals)*100)
	return out
}

// ComputePipeline computes the analytics of every stage.
func ComputePipeline(deals []model.AgedDeal) Pipeline {
	out := make(Pipeline, len(model.StageIDs()))
	for _, id := range model.StageIDs() {
		out[id] = ComputeStageAnalytics(deals, id)
	}
	return out
}

// Stage returns the analytics of one stage; missing stages read as zero.
func (p Pipeline) Stage(id model.StageID) StageAnalytics {
	return p[id]
}

// Summary is the headline of a deal list: how many deals and their worth.
type Summary struct {
	TotalDeals int   `json:"totalDeals"`
	TotalValue int64 `json:"totalValue"`
}

// Summarize totals a deal list.
func Summarize(deals []model.AgedDeal) Summary {
	s := Summary{TotalDeals: len(deals)}
	for _, d := range deals {
		s.TotalValue += d.Value
	}
	return s
}
