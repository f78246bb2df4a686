package status

import "time"

// RefreshPhase is the outcome of the latest refresh of a location
type RefreshPhase string

const (
	// RefreshPhaseRefreshing means a refresh is in progress
	RefreshPhaseRefreshing RefreshPhase = "Refreshing"

	// RefreshPhaseComplete means the last refresh stored at least one component
	RefreshPhaseComplete RefreshPhase = "Complete"

	// RefreshPhaseFailed means the last refresh failed
	RefreshPhaseFailed RefreshPhase = "Failed"
)

// LocationStatus is the refresh state of one location
type LocationStatus struct {
	// Phase is the current refresh phase
	Phase RefreshPhase `json:"phase"`

	// Message describes the last failure, if any
	Message string `json:"message,omitempty"`

	// LastAttempt is when the last refresh started
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of failed attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastRefreshTime is when the location last refreshed successfully
	LastRefreshTime *time.Time `json:"lastRefreshTime,omitempty"`

	// ComponentCount is the number of components stored by the last successful refresh
	ComponentCount int `json:"componentCount,omitempty"`

	// ErrorCount is the number of document errors seen by the last refresh
	ErrorCount int `json:"errorCount,omitempty"`
}

// MarkRefreshing records the start of an attempt
func (s *LocationStatus) MarkRefreshing(now time.Time) {
	s.Phase = RefreshPhaseRefreshing
	s.LastAttempt = &now
}

// MarkComplete records a successful refresh
func (s *LocationStatus) MarkComplete(now time.Time, components, documentErrors int) {
	s.Phase = RefreshPhaseComplete
	s.Message = ""
	s.AttemptCount = 0
	s.LastRefreshTime = &now
	s.ComponentCount = components
	s.ErrorCount = documentErrors
}

// MarkFailed records a failed refresh. The last successful refresh time is kept.
func (s *LocationStatus) MarkFailed(message string, documentErrors int) {
	s.Phase = RefreshPhaseFailed
	s.Message = message
	s.AttemptCount++
	s.ErrorCount = documentErrors
}
