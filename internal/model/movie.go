// Package model defines the core data types for the movie recommendation service.
// In Go, we use structs instead of classes. Struct tags (the `json:"..."` and
// `db:"..."` annotations) tell serialization libraries how to map fields.
package model

import "time"

// Movie is a single recommendation parsed out of a model reply.
// Year and Reason are pointers so "absent" serializes as null instead of "".
type Movie struct {
	Title  string  `json:"title"`
	Year   *string `json:"year"`
	Reason *string `json:"reason"`
}

// Outcome is the audited result of one recommendation request.
// Go doesn't have enums: we use typed string constants.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeValidation  Outcome = "validation"
	OutcomeTransport   Outcome = "transport"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeAuth        Outcome = "auth"
	OutcomeQuota       Outcome = "quota"
	OutcomeParse       Outcome = "parse"
	OutcomeCanceled    Outcome = "canceled"
)

// AllOutcomes is the ordered list of outcomes, used for stats reporting.
var AllOutcomes = []Outcome{
	OutcomeSuccess,
	OutcomeValidation,
	OutcomeTransport,
	OutcomeRateLimited,
	OutcomeAuth,
	OutcomeQuota,
	OutcomeParse,
	OutcomeCanceled,
}

// CompletionCall tracks each recommendation request for cost and failure monitoring.
// The user's query text is never stored.
type CompletionCall struct {
	ID         int64     `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"request_id"`
	Provider   string    `db:"provider" json:"provider"`
	Model      string    `db:"model" json:"model"`
	Outcome    Outcome   `db:"outcome" json:"outcome"`
	MovieCount int       `db:"movie_count" json:"movie_count"`
	Attempts   int       `db:"attempts" json:"attempts"`
	DurationMs *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
