package htmlinclude

import "golang.org/x/net/html"

// State is the terminal state of one include directive
type State int

const (
	// StatePending means the directive has not finished; never present in a
	// returned Report
	StatePending State = iota

	// StatePopulated means the element holds the fetched fragment
	StatePopulated

	// StateFailed means the element holds the error placeholder
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePopulated:
		return "populated"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Result is the outcome of one include directive
type Result struct {
	Path    string
	State   State
	Err     error
	Element *html.Node
}

// Report lists the outcome of every directive of one Process call in
// document order
type Report struct {
	Results []Result
}

// Len returns the number of directives processed
func (r Report) Len() int {
	return len(r.Results)
}

// Populated returns how many elements received their fragment
func (r Report) Populated() int {
	return r.count(StatePopulated)
}

// Failed returns how many elements received the placeholder
func (r Report) Failed() int {
	return r.count(StateFailed)
}

// Failures returns the failed results
func (r Report) Failures() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.State == StateFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r Report) count(s State) int {
	n := 0
	for _, res := range r.Results {
		if res.State == s {
			n++
		}
	}
	return n
}
