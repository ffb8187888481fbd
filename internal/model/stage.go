package model

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
)

// StageID identifies one of the fixed pipeline stages.
type StageID string

const (
	// StageLead is the entry stage for every new deal.
	StageLead StageID = "lead"
	// StageQualified marks a lead that has been vetted.
	StageQualified StageID = "qualified"
	// StageProposal means a proposal has been sent.
	StageProposal StageID = "proposal"
	// StageNegotiation means terms are being negotiated.
	StageNegotiation StageID = "negotiation"
	// StageClosed is the terminal "closed won" stage.
	StageClosed StageID = "closed"
)

// Stage describes a pipeline column. Order defines which stages are
// downstream of each other for conversion accounting.
type Stage struct {
	ID    StageID
	Name  string
	Order int
}

var stageCatalogue = [...]Stage{
	{ID: StageLead, Name: "Lead", Order: 1},
	{ID: StageQualified, Name: "Qualified", Order: 2},
	{ID: StageProposal, Name: "Proposal", Order: 3},
	{ID: StageNegotiation, Name: "Negotiation", Order: 4},
	{ID: StageClosed, Name: "Closed Won", Order: 5},
}

// Stages returns the stage catalogue ordered by Order. The slice is a copy.
func Stages() []Stage {
	out := make([]Stage, len(stageCatalogue))
	copy(out, stageCatalogue[:])
	return out
}

// StageIDs returns the catalogue ids in order.
func StageIDs() []StageID {
	ids := make([]StageID, len(stageCatalogue))
	for i, s := range stageCatalogue {
		ids[i] = s.ID
	}
	return ids
}

// LookupStage returns the catalogue entry for id.
func LookupStage(id StageID) (Stage, bool) {
	for _, s := range stageCatalogue {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// Valid reports whether id is a member of the catalogue.
func (id StageID) Valid() bool {
	_, ok := LookupStage(id)
	return ok
}

// Name returns the display name, or the raw id for unknown stages.
func (id StageID) Name() string {
	if s, ok := LookupStage(id); ok {
		return s.Name
	}
	return string(id)
}

// ParseStage converts user input into a StageID. Matching ignores case and
// surrounding whitespace.
func ParseStage(s string) (StageID, error) {
	id := StageID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q (want one of %s)", common.ErrInvalidStage, s, stageList())
	}
	return id, nil
}

// DownstreamOf returns the ids of all stages with a higher order than id.
func DownstreamOf(id StageID) []StageID {
	stage, ok := LookupStage(id)
	if !ok {
		return nil
	}
	var out []StageID
	for _, s := range stageCatalogue {
		if s.Order > stage.Order {
			out = append(out, s.ID)
		}
	}
	return out
}

// NextStage returns the stage after id, if any.
func NextStage(id StageID) (StageID, bool) {
	return neighbour(id, 1)
}

// PreviousStage returns the stage before id, if any.
func PreviousStage(id StageID) (StageID, bool) {
	return neighbour(id, -1)
}

func neighbour(id StageID, delta int) (StageID, bool) {
	stage, ok := LookupStage(id)
	if !ok {
		return "", false
	}
	idx := stage.Order - 1 + delta
	if idx < 0 || idx >= len(stageCatalogue) {
		return "", false
	}
	return stageCatalogue[idx].ID, true
}

func stageList() string {
	names := make([]string, len(stageCatalogue))
	for i, s := range stageCatalogue {
		names[i] = string(s.ID)
	}
	return strings.Join(names, ", ")
}
