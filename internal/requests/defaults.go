package requests

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hiddenParamsGo/internal/core"
)

const (
	// InjectionMark is the user supplied injection point in the URL, body or a header value.
	InjectionMark = "%s"

	keyMark   = "%k"
	valueMark = "%v"
)

// Doer sends a single HTTP exchange. *http.Client and *network.Client satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Header is a single request header kept in the user's order.
type Header struct {
	Name  string
	Value string
}

// RequestDefaults is the per-run template every probe is built from.
// It is created once by NewRequestDefaults and must not be mutated afterwards,
// since every concurrent probe reads it.
type RequestDefaults struct {
	Method            string
	URL               string
	Headers           []Header
	Body              string
	InjectionPlace    InjectionPlace
	DataType          DataType
	ParameterTemplate string
	Joiner            string
	Encode            bool
	Delay             time.Duration
	// Force lifts the page size ceiling while reading bodies.
	Force  bool
	Client Doer
}

// NewRequestDefaults validates the template, picks the parameter template and
// joiner for the injection place and places the injection mark when the user
// did not. dataType == nil means "detect from the body".
func NewRequestDefaults(d RequestDefaults, dataType *DataType) (*RequestDefaults, error) {
	if d.URL == "" {
		return nil, core.ErrMissingTarget
	}
	if d.Client == nil {
		return nil, fmt.Errorf("request defaults: nil client")
	}
	if err := validateURL(d.URL); err != nil {
		return nil, err
	}
	if d.Method == "" {
		d.Method = http.MethodGet
	}
	d.Method = strings.ToUpper(d.Method)
	d.Headers = append([]Header(nil), d.Headers...)

	if dataType != nil {
		d.DataType = *dataType
	} else {
		d.DataType = DetectDataType(d.Body)
	}

	if d.InjectionPlace != HeaderValue {
		for _, h := range d.Headers {
			if strings.Contains(h.Value, InjectionMark) {
				d.InjectionPlace = HeaderValue
				break
			}
		}
	}

	template, joiner := defaultTemplate(d.InjectionPlace, d.DataType)
	if d.ParameterTemplate == "" {
		d.ParameterTemplate = template
	}
	if d.Joiner == "" {
		d.Joiner = joiner
	}

	switch d.InjectionPlace {
	case Path:
		if !strings.Contains(d.URL, InjectionMark) {
			if strings.Contains(d.URL, "?") {
				d.URL += "&" + InjectionMark
			} else {
				d.URL += "?" + InjectionMark
			}
		}
	case Body:
		d.Body = placeBodyMark(d.Body, d.DataType)
	}

	return &d, nil
}

func validateURL(raw string) error {
	probe := strings.ReplaceAll(raw, InjectionMark, "x")
	probe = strings.ReplaceAll(probe, RandomPlaceholder, "x")
	u, err := url.Parse(probe)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", core.ErrWrongScheme, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host missing in %q", core.ErrMissingTarget, raw)
	}
	return nil
}

func defaultTemplate(place InjectionPlace, dataType DataType) (string, string) {
	switch place {
	case HeaderValue:
		return keyMark + "=" + valueMark, "; "
	case Body:
		if dataType == JSON {
			return `"` + keyMark + `":"` + valueMark + `"`, ", "
		}
	}
	return keyMark + "=" + valueMark, "&"
}

func placeBodyMark(body string, dataType DataType) string {
	if strings.Contains(body, InjectionMark) {
		return body
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		if dataType == JSON {
			return "{" + InjectionMark + "}"
		}
		return InjectionMark
	}
	if dataType == JSON {
		end := strings.LastIndex(trimmed, "}")
		if end < 0 {
			return trimmed + InjectionMark
		}
		inner := strings.TrimSpace(trimmed[1:end])
		if strings.HasPrefix(trimmed, "{") && inner == "" {
			return trimmed[:end] + InjectionMark + trimmed[end:]
		}
		return trimmed[:end] + ", " + InjectionMark + trimmed[end:]
	}
	return body + "&" + InjectionMark
}

// TemplateURL is the target as configured, with the injection mark and the
// joiner in front of it removed. {{random}} placeholders are kept.
func (d *RequestDefaults) TemplateURL() string {
	u := strings.Replace(d.URL, InjectionMark, "", 1)
	if d.InjectionPlace == Path {
		u = strings.TrimSuffix(strings.TrimSuffix(u, "&"), "?")
	}
	return u
}

// Host returns the host[:port] of the target, without the injection mark.
func (d *RequestDefaults) Host() string {
	probe := strings.ReplaceAll(d.URL, InjectionMark, "")
	probe = strings.ReplaceAll(probe, RandomPlaceholder, "")
	u, err := url.Parse(probe)
	if err != nil {
		return ""
	}
	return u.Host
}
