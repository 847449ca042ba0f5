package requests

import (
	"fmt"
	"strings"
)

// InjectionPlace is where candidate parameters are placed in the request.
type InjectionPlace int

const (
	Path InjectionPlace = iota
	Headers
	HeaderValue
	Body
)

func (p InjectionPlace) String() string {
	switch p {
	case Path:
		return "path"
	case Headers:
		return "headers"
	case HeaderValue:
		return "header-value"
	case Body:
		return "body"
	default:
		return fmt.Sprintf("InjectionPlace(%d)", int(p))
	}
}

// maxSteps lists the ceilings tried for each place, smallest (the default) first.
var maxSteps = map[InjectionPlace][]int{
	Path:        {128, 192, 256},
	Headers:     {64, 128, 196},
	HeaderValue: {64, 128, 196},
	Body:        {512},
}

// DefaultMax returns the default amount of parameters per request for the place.
func (p InjectionPlace) DefaultMax() int {
	return maxSteps[p][0]
}

// MaxSteps returns a copy of the ceilings to try when the user did not set one.
func (p InjectionPlace) MaxSteps() []int {
	return append([]int(nil), maxSteps[p]...)
}

// DataType is the encoding of parameters injected into a body.
type DataType int

const (
	Urlencoded DataType = iota
	JSON
)

func (d DataType) String() string {
	if d == JSON {
		return "json"
	}
	return "urlencoded"
}

// ParseDataType accepts "json", "urlencode" and "urlencoded". An empty string
// returns ok == false so the caller can fall back to detection.
func ParseDataType(s string) (DataType, bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Urlencoded, false, nil
	case "json":
		return JSON, true, nil
	case "urlencode", "urlencoded":
		return Urlencoded, true, nil
	default:
		return Urlencoded, false, fmt.Errorf("unknown data type %q", s)
	}
}

// DetectDataType guesses the body encoding from the body template.
func DetectDataType(body string) DataType {
	if strings.HasPrefix(strings.TrimSpace(body), "{") {
		return JSON
	}
	return Urlencoded
}
