package qlearn

import "fmt"

// LookupError is raised (via panic) when a reward or Q-table lookup falls
// outside the enumerated domain. It always means a programming error.
type LookupError struct {
	Table string
	Key   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("qlearn: no %s entry for %s", e.Table, e.Key)
}
