package match

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/flysch/matchd/internal/model"
)

// ErrInvalidInputs indicates the request is missing a budget or training
// goals. Maps to HTTP 400.
var ErrInvalidInputs = eris.New("match: maxBudget and trainingGoals are required")

// ErrNoSchools indicates the store returned an empty school listing. Maps to
// HTTP 404.
var ErrNoSchools = eris.New("match: no schools available")

// FilterBreakdown counts how many schools passed each hard constraint
// independently.
type FilterBreakdown struct {
	BudgetMatches   int `json:"budgetMatches"`
	ProgramMatches  int `json:"programMatches"`
	LocationMatches int `json:"locationMatches"`
}

// Diagnostics explains why the candidate pool came up empty.
type Diagnostics struct {
	TotalSchools      int                 `json:"totalSchools"`
	MinBudgetNeeded   float64             `json:"minBudgetNeeded"`
	AvailablePrograms []model.ProgramType `json:"availablePrograms"`
	MissingPrograms   []model.ProgramType `json:"missingPrograms"`
	SchoolsInRadius   int                 `json:"schoolsInRadius"`
	FilterBreakdown   FilterBreakdown     `json:"filterBreakdown"`
}

// NoCandidatesError reports that every school failed the hard constraints,
// with diagnostics for the caller. Maps to HTTP 404.
type NoCandidatesError struct {
	Diagnostics Diagnostics
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("match: no schools matched the criteria (%d considered)", e.Diagnostics.TotalSchools)
}
