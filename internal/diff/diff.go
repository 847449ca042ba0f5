// internal/diff/diff.go
package diff

import (
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"hiddenParamsGo/internal/requests"
)

const (
	removedPrefix = "-"
	addedPrefix   = "+"
	changedPrefix = "~"
	// HeaderPrefix marks signatures taken from response headers.
	HeaderPrefix = "header:"
)

// Engine turns responses into signatures by line diffing them against the
// reference response of the run. It holds no mutable state after creation and
// is shared by every probe.
type Engine struct {
	ReferenceCode int
	Strict        bool

	referenceBody    string
	referenceHeaders map[string]string
	dmp              *diffmatchpatch.DiffMatchPatch
}

// NewEngine builds an engine around the reference response, normally the first
// learning probe. Generated values are stripped from the reference first.
func NewEngine(reference *requests.Response, strict bool) *Engine {
	dmp := diffmatchpatch.New()
	// A time limit would make the result depend on machine load.
	dmp.DiffTimeout = 0
	return &Engine{
		ReferenceCode:    reference.Code,
		Strict:           strict,
		referenceBody:    reference.StrippedBody(),
		referenceHeaders: parseHeaders(reference.StrippedHeaders()),
		dmp:              dmp,
	}
}

// Signatures returns every signature of resp in a stable order, without duplicates.
// Header signatures are only produced in strict mode.
func (e *Engine) Signatures(resp *requests.Response) []string {
	sigs := e.lineSignatures(e.referenceBody, resp.StrippedBody())
	if e.Strict {
		sigs = append(sigs, headerSignatures(e.referenceHeaders, parseHeaders(resp.StrippedHeaders()))...)
	}
	return dedup(sigs)
}

// Compare reports whether the status code moved away from the reference and
// which signatures of resp are missing from known. In strict mode header
// signatures only accompany a body or status change, they never stand alone.
func (e *Engine) Compare(resp *requests.Response, known Known) (bool, []string) {
	statusChanged := resp.Code != e.ReferenceCode
	fresh := e.Unknown(resp, known)
	for _, sig := range fresh {
		if !IsHeaderSignature(sig) {
			return statusChanged, fresh
		}
	}
	if !statusChanged {
		return false, nil
	}
	return statusChanged, fresh
}

// Unknown returns every signature of resp missing from known, header
// signatures included. Learning uses it to collect noise.
func (e *Engine) Unknown(resp *requests.Response, known Known) []string {
	var fresh []string
	for _, sig := range e.Signatures(resp) {
		if known == nil || !known.Contains(sig) {
			fresh = append(fresh, sig)
		}
	}
	return fresh
}

// IsHeaderSignature reports whether sig was taken from the response headers.
func IsHeaderSignature(sig string) bool {
	return strings.HasPrefix(sig, HeaderPrefix)
}

func (e *Engine) lineSignatures(reference, text string) []string {
	if reference == text {
		return nil
	}
	a, b, lines := e.dmp.DiffLinesToChars(reference, text)
	diffs := e.dmp.DiffCharsToLines(e.dmp.DiffMain(a, b, false), lines)

	var sigs []string
	for _, d := range diffs {
		var op string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = removedPrefix
		case diffmatchpatch.DiffInsert:
			op = addedPrefix
		default:
			continue
		}
		for _, line := range strings.Split(d.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			sigs = append(sigs, op+line)
		}
	}
	return sigs
}

// headerSignatures names the headers that appeared, disappeared or changed
// value. Values are left out so a changing Date header is a single signature.
func headerSignatures(reference, current map[string]string) []string {
	names := make([]string, 0, len(reference)+len(current))
	for name := range reference {
		names = append(names, name)
	}
	for name := range current {
		if _, ok := reference[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var sigs []string
	for _, name := range names {
		before, hadBefore := reference[name]
		after, hasNow := current[name]
		switch {
		case !hasNow:
			sigs = append(sigs, HeaderPrefix+removedPrefix+name)
		case !hadBefore:
			sigs = append(sigs, HeaderPrefix+addedPrefix+name)
		case before != after:
			sigs = append(sigs, HeaderPrefix+changedPrefix+name)
		}
	}
	return sigs
}

// volatileHeaders change on every response or follow the body, they never carry evidence.
var volatileHeaders = map[string]struct{}{
	"Age":            {},
	"Content-Length": {},
	"Date":           {},
	"Etag":           {},
	"Expires":        {},
	"Last-Modified":  {},
	"Set-Cookie":     {},
	"X-Request-Id":   {},
	"X-Runtime":      {},
}

// parseHeaders reads the "Name: value" lines of a flattened header block.
func parseHeaders(text string) map[string]string {
	headers := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if _, skip := volatileHeaders[name]; skip {
			continue
		}
		if prev, seen := headers[name]; seen {
			value = prev + "\n" + value
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers
}

func dedup(sigs []string) []string {
	if len(sigs) < 2 {
		return sigs
	}
	seen := make(map[string]struct{}, len(sigs))
	out := sigs[:0]
	for _, s := range sigs {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
