package dispatcher

import (
	"time"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/google/uuid"
)

// State is a step of the per-result state machine.
type State string

const (
	StateReceived          State = "Received"
	StateRouted            State = "Routed"
	StateListingsProcessed State = "ListingsProcessed"
	StateDetailProcessed   State = "DetailProcessed"
	StateCompanyProcessed  State = "CompanyProcessed"
	StateRejected          State = "Rejected"
	StateReported          State = "Reported"
)

// Status is the verdict carried by a Reported result.
type Status string

const (
	// StatusSucceeded means every item was processed or skipped.
	StatusSucceeded Status = "succeeded"
	// StatusPartial means a listing batch finished with failed items.
	StatusPartial Status = "partial"
	// StatusFailed means a single-entity command failed as a whole.
	StatusFailed Status = "failed"
	// StatusRejected means the result was not routed to the engine.
	StatusRejected Status = "rejected"
)

// Report is the terminal acknowledgement of one ScrapingResult.
type Report struct {
	ResultID    uuid.UUID          `json:"resultId"`
	CommandID   uuid.UUID          `json:"commandId"`
	CommandType models.CommandType `json:"commandType"`
	Source      models.Source      `json:"source"`
	Status      Status             `json:"status"`
	// States is the path taken, always ending in Reported.
	States []State `json:"states"`

	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	Message   string        `json:"message,omitempty"`
	ErrorKind e.Kind        `json:"errorKind,omitempty"`
	Duration  time.Duration `json:"durationNs"`

	// Err is the cause of a rejected or failed result.
	Err error `json:"-"`
}

// State returns the last state reached.
func (r *Report) State() State {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}

func (r *Report) advance(s State) {
	r.States = append(r.States, s)
}

func (r *Report) count(outcome models.Outcome) {
	r.Processed++
	switch outcome {
	case models.OutcomeCreated:
		r.Created++
	case models.OutcomeUpdated:
		r.Updated++
	default:
		r.Unchanged++
	}
}

func (r *Report) fail(status Status, err error) {
	r.Status = status
	r.Err = err
	r.ErrorKind = e.KindOf(err)
	r.Message = err.Error()
}
