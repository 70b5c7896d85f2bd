package rating

import "fmt"

// InvalidMatchError reports a malformed or undecided match. It is never
// worth retrying with the same input.
type InvalidMatchError struct {
	MatchID string
	Reason  string
}

func (e *InvalidMatchError) Error() string {
	if e.MatchID == "" {
		return fmt.Sprintf("invalid match: %s", e.Reason)
	}
	return fmt.Sprintf("invalid match %s: %s", e.MatchID, e.Reason)
}

// InvalidStatError reports a statistic or rating state outside its domain.
type InvalidStatError struct {
	PlayerID string
	Field    string
	Value    float64
}

func (e *InvalidStatError) Error() string {
	return fmt.Sprintf("invalid %s for player %s: %v", e.Field, e.PlayerID, e.Value)
}

func invalidMatch(matchID, format string, args ...interface{}) error {
	return &InvalidMatchError{
		MatchID: matchID,
		Reason:  fmt.Sprintf(format, args...),
	}
}
