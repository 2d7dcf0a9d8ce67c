package pipeline

import (
	"time"

	"github.com/kris-hansen/tagup/utils/extract"
	"github.com/kris-hansen/tagup/utils/models"
)

// StageRecord is the outcome of one generation call
type StageRecord struct {
	Name      string         `json:"name"`
	Prompt    string         `json:"prompt"`
	Output    models.Output  `json:"output"`
	Extracted extract.Result `json:"extracted,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// State accumulates the results of the stages of one run. It is owned by a
// single Run call and not safe for concurrent use.
type State struct {
	Stages    []StageRecord     `json:"stages"`
	Variables map[string]string `json:"variables"`
}

// NewState starts an empty run
func NewState() *State {
	return &State{Variables: make(map[string]string)}
}

// Record stores a finished stage and merges its extracted fields into the
// variables seeded into later stages
func (s *State) Record(rec StageRecord) {
	s.Stages = append(s.Stages, rec)
	for k, v := range rec.Extracted {
		s.Variables[k] = v
	}
}

// Seeded returns a copy of the accumulated variables
func (s *State) Seeded() map[string]string {
	out := make(map[string]string, len(s.Variables))
	for k, v := range s.Variables {
		out[k] = v
	}
	return out
}

// Get returns an accumulated variable or ""
func (s *State) Get(field string) string {
	return s.Variables[field]
}

// Last returns the most recent stage record
func (s *State) Last() (StageRecord, bool) {
	if len(s.Stages) == 0 {
		return StageRecord{}, false
	}
	return s.Stages[len(s.Stages)-1], true
}
