package domain

// Status is the single current lifecycle value of a need. History lives in
// the event log, not here.
type Status string

const (
	StatusInReview  Status = "in_review"
	StatusNew       Status = "new"
	StatusActive    Status = "active"
	StatusMatched   Status = "matched"
	StatusClaimed   Status = "claimed"
	StatusFulfilled Status = "fulfilled"
	StatusMet       Status = "met"
	StatusClosed    Status = "closed"
)

// Canonical collapses the equivalent pairs: claimed folds into matched and
// met into fulfilled. Canonical values are what gets persisted.
func (s Status) Canonical() Status {
	switch s {
	case StatusClaimed:
		return StatusMatched
	case StatusMet:
		return StatusFulfilled
	default:
		return s
	}
}

// Rank orders statuses along the lifecycle. A transition whose target rank
// does not exceed the current rank is a no-op; status never regresses.
func (s Status) Rank() int {
	switch s.Canonical() {
	case StatusInReview:
		return 0
	case StatusNew:
		return 1
	case StatusActive:
		return 2
	case StatusMatched:
		return 3
	case StatusFulfilled:
		return 4
	case StatusClosed:
		return 5
	default:
		return -1
	}
}

func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Terminal reports whether no further transition can apply.
func (s Status) Terminal() bool {
	return s.Canonical() == StatusClosed
}

// transitionSources lists the legal source statuses per canonical target.
var transitionSources = map[Status][]Status{
	StatusNew:       {StatusInReview},
	StatusActive:    {StatusNew},
	StatusMatched:   {StatusNew, StatusActive},
	StatusFulfilled: {StatusMatched},
	StatusClosed:    {StatusInReview, StatusNew, StatusActive, StatusMatched, StatusFulfilled},
}

// CanTransition reports whether an edge exists from the current status to
// the canonical target.
func CanTransition(from, to Status) bool {
	sources, ok := transitionSources[to.Canonical()]
	if !ok {
		return false
	}
	from = from.Canonical()
	for _, s := range sources {
		if s == from {
			return true
		}
	}
	return false
}
