package domain

import "fmt"

// Interval is a half-open [Start, End) range within one day.
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

func (i Interval) String() string {
	return fmt.Sprintf("%s-%s", i.Start, i.End)
}
