package search

import "github.com/hyperjump/yobidashi/internal/models"

// Observer receives session events. Methods are called from pool and timer goroutines,
// one event at a time per session, and must not block for long.
type Observer interface {
	// Started is called synchronously from Query before any handler runs.
	Started(s *Session)
	// ResultsReady is called once when the UX timeout elapses with the current ordered
	// list, however many handlers have finished. Not called for invalidated sessions.
	ResultsReady(s *Session, results []models.Candidate)
	// ResultsChanged is called, rate limited, when candidates arrive after ResultsReady
	// and before Finished.
	ResultsChanged(s *Session, results []models.Candidate)
	// Finished is called once after every handler returned, with the final list. Not called
	// for invalidated sessions.
	Finished(s *Session, results []models.Candidate)
}

// ObserverFuncs adapts optional functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStarted        func(s *Session)
	OnResultsReady   func(s *Session, results []models.Candidate)
	OnResultsChanged func(s *Session, results []models.Candidate)
	OnFinished       func(s *Session, results []models.Candidate)
}

// Started implements Observer.
func (o ObserverFuncs) Started(s *Session) {
	if o.OnStarted != nil {
		o.OnStarted(s)
	}
}

// ResultsReady implements Observer.
func (o ObserverFuncs) ResultsReady(s *Session, results []models.Candidate) {
	if o.OnResultsReady != nil {
		o.OnResultsReady(s, results)
	}
}

// ResultsChanged implements Observer.
func (o ObserverFuncs) ResultsChanged(s *Session, results []models.Candidate) {
	if o.OnResultsChanged != nil {
		o.OnResultsChanged(s, results)
	}
}

// Finished implements Observer.
func (o ObserverFuncs) Finished(s *Session, results []models.Candidate) {
	if o.OnFinished != nil {
		o.OnFinished(s, results)
	}
}
