package analytics

import (
	"strings"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// Matches reports whether the deal's title, company or description contains
// term, ignoring case. A blank term matches everything.
func Matches(d model.AgedDeal, term string) bool {
	if strings.TrimSpace(term) == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(d.Title), term) ||
		strings.Contains(strings.ToLower(d.Company), term) ||
		strings.Contains(strings.ToLower(d.Description), term)
}

// Filter returns the deals matching term, in order.
func Filter(deals []model.AgedDeal, term string) []model.AgedDeal {
	if strings.TrimSpace(term) == "" {
		return deals
	}
	var out []model.AgedDeal
	for _, d := range deals {
		if Matches(d, term) {
			out = append(out, d)
		}
	}
	return out
}

// InStage returns the deals of one stage, in order.
func InStage(deals []model.AgedDeal, stage model.StageID) []model.AgedDeal {
	var out []model.AgedDeal
	for _, d := range deals {
		if d.Stage == stage {
			out = append(out, d)
		}
	}
	return out
}
