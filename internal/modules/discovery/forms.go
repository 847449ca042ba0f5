package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractFormParameters returns the name attribute of every form field in the
// page, in document order and without duplicates. Non-HTML bodies yield nothing.
func ExtractFormParameters(body string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var names []string
	doc.Find("input[name], select[name], textarea[name], button[name]").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.AttrOr("name", ""))
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	})
	return names
}
