package requests

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Response is the result of sending a Request. It is owned by the caller that
// sent it and is never shared between probes.
type Response struct {
	Code       int
	Body       string
	Headers    http.Header
	Duration   time.Duration
	Parameters []Parameter

	// ReflectedParameters is filled by FillReflectedParameters.
	ReflectedParameters []string

	// Place is the injection place of the originating request.
	Place InjectionPlace
}

// FillReflectedParameters records every parameter whose generated value, or
// generated name, occurs literally in the body. The body is also checked in its
// URL-decoded form, and response headers are checked for header injection.
// Curated values such as "true" are ignored since they are not unique to the probe.
// In header discovery the candidate name itself counts, as sent or canonicalized.
func (r *Response) FillReflectedParameters() {
	mentions := r.mentionChecker()
	r.ReflectedParameters = r.ReflectedParameters[:0]
	for _, p := range r.Parameters {
		for _, needle := range reflectionNeedles(p, r.Place) {
			if mentions(needle) {
				r.ReflectedParameters = append(r.ReflectedParameters, p.Name)
				break
			}
		}
	}
}

func reflectionNeedles(p Parameter, place InjectionPlace) []string {
	var needles []string
	if p.RandomValue && p.Value != "" {
		needles = append(needles, p.Value)
	}
	if p.RandomName && p.Name != "" {
		needles = append(needles, p.Name)
	}
	if place == Headers && !p.RandomName {
		if name := SanitizeHeaderName(p.Name); name != "" {
			needles = append(needles, name)
			if canonical := http.CanonicalHeaderKey(name); canonical != name {
				needles = append(needles, canonical)
			}
		}
	}
	return needles
}

// Mentions reports whether s occurs in the body, its URL-decoded form or,
// for header places, in the response headers.
func (r *Response) Mentions(s string) bool {
	return r.mentionChecker()(s)
}

func (r *Response) mentionChecker() func(string) bool {
	decoded := r.Body
	if unescaped, err := url.QueryUnescape(r.Body); err == nil {
		decoded = unescaped
	}
	var headerText string
	if r.Place == Headers || r.Place == HeaderValue {
		headerText = flattenHeaders(r.Headers)
	}
	return func(s string) bool {
		return strings.Contains(r.Body, s) ||
			strings.Contains(decoded, s) ||
			(headerText != "" && strings.Contains(headerText, s))
	}
}

// StrippedBody returns the body without the generated values that were
// injected, so a reflected token does not show up as a body change.
func (r *Response) StrippedBody() string {
	body := r.Body
	for _, p := range r.Parameters {
		if p.RandomValue && p.Value != "" {
			body = strings.ReplaceAll(body, p.Value, "")
		}
	}
	return body
}

// StrippedHeaders is StrippedBody for the response headers.
func (r *Response) StrippedHeaders() string {
	text := flattenHeaders(r.Headers)
	for _, p := range r.Parameters {
		if p.RandomValue && p.Value != "" {
			text = strings.ReplaceAll(text, p.Value, "")
		}
	}
	return text
}

// flattenHeaders renders headers as sorted "Name: value" lines.
func flattenHeaders(h http.Header) string {
	if len(h) == 0 {
		return ""
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		for _, v := range h[name] {
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
