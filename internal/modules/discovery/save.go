package discovery

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hiddenParamsGo/internal/core/logger"
	"hiddenParamsGo/internal/requests"
)

// FoundHook receives a found parameter together with the request and response that isolated it.
type FoundHook func(p FoundParameter, req *requests.Request, resp *requests.Response)

// SaveResponses returns a hook writing every isolating exchange to dir/<name>.txt.
// Failures are logged and never stop the run.
func SaveResponses(dir string) FoundHook {
	return func(p FoundParameter, req *requests.Request, resp *requests.Response) {
		log := logger.GetLogger()
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warnf("failed to create %s: %v", dir, err)
			return
		}
		path := filepath.Join(dir, fileName(p.Name)+".txt")
		if err := os.WriteFile(path, []byte(renderExchange(req, resp)), 0644); err != nil {
			log.Warnf("failed to save the response of %s: %v", p.Name, err)
			return
		}
		log.Debugf("saved %s", path)
	}
}

func renderExchange(req *requests.Request, resp *requests.Response) string {
	var b strings.Builder
	b.WriteString(req.Dump())
	b.WriteString("\n\n")
	if resp == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", resp.Code, http.StatusText(resp.Code))
	names := make([]string, 0, len(resp.Headers))
	for name := range resp.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range resp.Headers[name] {
			fmt.Fprintf(&b, "%s: %s\r\n", name, v)
		}
	}
	b.WriteString("\r\n")
	b.WriteString(resp.Body)
	return b.String()
}

// fileName keeps names usable as a single path element.
func fileName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
