package discovery

import (
	"sort"
	"strings"
)

// Reason is the evidence that flagged a parameter.
type Reason string

const (
	ReasonStatusCode    Reason = "status-code"
	ReasonBodyDiff      Reason = "body-diff"
	ReasonReflected     Reason = "reflected"
	ReasonValueSpecific Reason = "value-specific"
)

// FoundParameter is a candidate confirmed to change the response on its own.
type FoundParameter struct {
	Name string `json:"name"`
	// Value is set when only a specific value triggers the change.
	Value   string   `json:"value,omitempty"`
	Reasons []Reason `json:"reasons"`
	Status  int      `json:"status"`
	Diffs   []string `json:"diffs,omitempty"`
}

// HasReason reports whether r is among the parameter's reasons.
func (p FoundParameter) HasReason(r Reason) bool {
	for _, reason := range p.Reasons {
		if reason == r {
			return true
		}
	}
	return false
}

// ReasonString joins the reasons with ", ".
func (p FoundParameter) ReasonString() string {
	parts := make([]string, len(p.Reasons))
	for i, r := range p.Reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// Stable describes how much each kind of evidence can be trusted for the target.
type Stable struct {
	// Body is false when random probes keep producing new body variations.
	Body bool `json:"body"`
	// Reflections is false when the target echoes parameters it does not know.
	Reflections bool `json:"reflections"`
}

// SortByName orders found parameters by name, in place.
func SortByName(params []FoundParameter) {
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
}

// Names returns the names of the found parameters.
func Names(params []FoundParameter) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}
