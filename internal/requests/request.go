package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"hiddenParamsGo/internal/core"
)

// MaxPageSize is the largest body worth diffing; bigger pages are usually binary.
const MaxPageSize = 25 * 1024 * 1024

// Parameter is one injected name/value pair.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	// RandomName and RandomValue mark generated tokens. Only generated tokens
	// take part in reflection detection and are stripped before diffing.
	RandomName  bool `json:"-"`
	RandomValue bool `json:"-"`
}

// Request is the template plus the parameters injected for one exchange.
type Request struct {
	defaults   *RequestDefaults
	Parameters []Parameter

	prepared bool
	url      string
	headers  []Header
	body     string
}

// New injects names with random placeholder values.
func New(defaults *RequestDefaults, names []string) *Request {
	params := make([]Parameter, 0, len(names))
	for _, name := range names {
		params = append(params, Parameter{Name: name, Value: RandomToken(ValueLength), RandomValue: true})
	}
	return &Request{defaults: defaults, Parameters: params}
}

// NewWithParameters injects the given pairs as they are.
func NewWithParameters(defaults *RequestDefaults, params []Parameter) *Request {
	return &Request{defaults: defaults, Parameters: append([]Parameter(nil), params...)}
}

// NewRandom injects count random names with random values. avoid rejects
// generated names that must not be used, e.g. wordlist members.
func NewRandom(defaults *RequestDefaults, count int, avoid func(string) bool) *Request {
	seen := make(map[string]struct{}, count)
	params := make([]Parameter, 0, count)
	for len(params) < count {
		name := RandomName(avoid)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		params = append(params, Parameter{
			Name:        name,
			Value:       RandomToken(ValueLength),
			RandomName:  true,
			RandomValue: true,
		})
	}
	return &Request{defaults: defaults, Parameters: params}
}

// formatParameters renders every pair through the template. Names and values
// are escaped for the place they land in, so a '#' or '&' in a wordlist entry
// never swallows the rest of the batch.
func (r *Request) formatParameters() string {
	d := r.defaults
	escape := url.QueryEscape
	if d.InjectionPlace == Body && d.DataType == JSON {
		escape = escapeJSON
	}
	parts := make([]string, 0, len(r.Parameters))
	for _, p := range r.Parameters {
		s := strings.ReplaceAll(d.ParameterTemplate, keyMark, escape(p.Name))
		parts = append(parts, strings.ReplaceAll(s, valueMark, escape(p.Value)))
	}
	joined := strings.Join(parts, d.Joiner)
	if d.Encode {
		joined = encode(joined)
	}
	return joined
}

// prepare renders the final URL, headers and body once.
func (r *Request) prepare() {
	if r.prepared {
		return
	}
	r.prepared = true
	d := r.defaults

	injected := ""
	if d.InjectionPlace != Headers {
		injected = r.formatParameters()
	}

	r.url = d.URL
	r.body = d.Body
	switch d.InjectionPlace {
	case Path:
		r.url = strings.Replace(r.url, InjectionMark, injected, 1)
		r.url = strings.TrimSuffix(strings.TrimSuffix(r.url, "&"), "?")
	case Body:
		r.body = strings.Replace(r.body, InjectionMark, injected, 1)
	}
	r.url = fillRandom(r.url)
	r.body = fillRandom(r.body)

	r.headers = make([]Header, 0, len(d.Headers)+len(r.Parameters))
	for _, h := range d.Headers {
		value := h.Value
		if d.InjectionPlace == HeaderValue {
			value = strings.Replace(value, InjectionMark, injected, 1)
		}
		r.headers = append(r.headers, Header{Name: h.Name, Value: fillRandom(value)})
	}
	if d.InjectionPlace == Headers {
		for _, p := range r.Parameters {
			name := SanitizeHeaderName(p.Name)
			if name == "" {
				continue
			}
			r.headers = append(r.headers, Header{Name: name, Value: p.Value})
		}
	}
}

// URL returns the final request URL.
func (r *Request) URL() string {
	r.prepare()
	return r.url
}

// Body returns the final request body.
func (r *Request) Body() string {
	r.prepare()
	return r.body
}

// HeaderList returns the final request headers in order.
func (r *Request) HeaderList() []Header {
	r.prepare()
	return append([]Header(nil), r.headers...)
}

// Build renders the request into an *http.Request bound to ctx.
func (r *Request) Build(ctx context.Context) (*http.Request, error) {
	r.prepare()
	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.defaults.Method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for _, h := range r.headers {
		if strings.EqualFold(h.Name, "Host") {
			req.Host = h.Value
			continue
		}
		req.Header.Add(h.Name, h.Value)
	}
	if r.body != "" && req.Header.Get("Content-Type") == "" {
		if r.defaults.DataType == JSON {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	return req, nil
}

// Send waits for the configured delay and sends the request with the run's client.
func (r *Request) Send(ctx context.Context) (*Response, error) {
	if delay := r.defaults.Delay; delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return r.SendBy(ctx, r.defaults.Client)
}

// SendBy sends the request through another client, e.g. the replay proxy.
func (r *Request) SendBy(ctx context.Context, client Doer) (*Response, error) {
	req, err := r.Build(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if !r.defaults.Force {
		reader = io.LimitReader(resp.Body, MaxPageSize+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	return &Response{
		Code:       resp.StatusCode,
		Body:       string(body),
		Headers:    resp.Header,
		Duration:   time.Since(start),
		Parameters: r.Parameters,
		Place:      r.defaults.InjectionPlace,
	}, nil
}

func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", core.ErrNetworkTimeout, err)
	}
	return fmt.Errorf("%w: %v", core.ErrNetworkError, err)
}

// Dump renders the request as raw HTTP/1.1 text.
func (r *Request) Dump() string {
	r.prepare()
	u, err := url.Parse(r.url)
	target := r.url
	host := r.defaults.Host()
	if err == nil {
		target = u.RequestURI()
		host = u.Host
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", r.defaults.Method, target)
	hasHost := false
	for _, h := range r.headers {
		if strings.EqualFold(h.Name, "Host") {
			hasHost = true
		}
	}
	if !hasHost {
		fmt.Fprintf(&b, "Host: %s\r\n", host)
	}
	for _, h := range r.headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h.Name, h.Value)
	}
	b.WriteString("\r\n")
	b.WriteString(r.body)
	return b.String()
}

// SanitizeHeaderName drops characters that are not allowed in header names.
func SanitizeHeaderName(name string) string {
	var b strings.Builder
	for _, c := range name {
		if httpguts.IsTokenRune(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// escapeJSON escapes s for use inside a JSON string literal.
func escapeJSON(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(b[1 : len(b)-1])
}

const encodedChars = "\"` <>&#;/=%"

func encode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(encodedChars, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
