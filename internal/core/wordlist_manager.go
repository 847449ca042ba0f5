// internal/core/wordlist_manager.go
package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// WordlistSource represents the source of a wordlist
type WordlistSource string

const (
	SourceBuiltIn WordlistSource = "builtin"
	SourceCustom  WordlistSource = "custom"
	SourceStdin   WordlistSource = "stdin"
)

const (
	DefaultParametersID = "common_parameters"
	CustomParametersID  = "custom_parameters"
	CustomValuesID      = "custom_values"
)

// Wordlist represents a collection of candidate parameter names
type Wordlist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Source      WordlistSource `json:"source"`
	Words       []string       `json:"words"`
	Size        int            `json:"size"`
	CreatedAt   time.Time      `json:"created_at"`
	Tags        []string       `json:"tags"`
}

// WordlistManager keeps the built-in lists and any list loaded for the run
type WordlistManager struct {
	wordlists map[string]*Wordlist
}

// NewWordlistManager creates a new wordlist manager with the built-in lists
func NewWordlistManager() *WordlistManager {
	wm := &WordlistManager{
		wordlists: make(map[string]*Wordlist),
	}
	wm.initializeBuiltInWordlists()
	return wm
}

// DefaultCustomParameters are checked with DefaultCustomValues instead of random values.
func DefaultCustomParameters() []string {
	return []string{"admin", "bot", "captcha", "debug", "disable", "encryption", "env", "show", "sso", "test", "waf"}
}

func DefaultCustomValues() []string {
	return []string{"1", "0", "false", "off", "null", "true", "yes", "no"}
}

func (wm *WordlistManager) initializeBuiltInWordlists() {
	paramWordlist := &Wordlist{
		ID:          DefaultParametersID,
		Name:        "Common Parameters",
		Description: "Common HTTP parameters for testing",
		Source:      SourceBuiltIn,
		Words: []string{
			"id", "user", "username", "email", "password", "pass", "pwd", "token", "session",
			"auth", "login", "logout", "redirect", "url", "link", "page", "file", "path", "dir",
			"search", "q", "query", "keyword", "term", "name", "value", "data", "input", "output",
			"action", "method", "type", "format", "callback", "jsonp", "api_key", "key", "secret",
			"access_token", "refresh_token", "csrf_token", "nonce", "timestamp", "sig", "signature",
			"debug", "test", "admin", "mode", "env", "config", "settings", "option", "param",
			"var", "variable", "field", "column", "table", "database", "db", "sql", "cmd", "command",
			"lang", "locale", "ref", "source", "sort", "order", "limit", "offset", "filter",
			"category", "preview", "draft", "version", "v", "cache", "nocache", "trace", "verbose",
		},
		Tags: []string{"parameter", "fuzzing"},
	}

	customParams := &Wordlist{
		ID:          CustomParametersID,
		Name:        "Custom Parameters",
		Description: "Names probed with curated values instead of random ones",
		Source:      SourceBuiltIn,
		Words:       DefaultCustomParameters(),
		Tags:        []string{"parameter", "value-specific"},
	}

	customValues := &Wordlist{
		ID:          CustomValuesID,
		Name:        "Custom Values",
		Description: "Values sent with every custom parameter",
		Source:      SourceBuiltIn,
		Words:       DefaultCustomValues(),
		Tags:        []string{"value", "value-specific"},
	}

	for _, wl := range []*Wordlist{paramWordlist, customParams, customValues} {
		wl.Size = len(wl.Words)
		wl.CreatedAt = time.Now()
		wm.wordlists[wl.ID] = wl
	}
}

// GetWordlist returns a wordlist by ID
func (wm *WordlistManager) GetWordlist(id string) *Wordlist {
	return wm.wordlists[id]
}

// ListWordlists returns all available wordlists sorted by name
func (wm *WordlistManager) ListWordlists() []*Wordlist {
	var wordlists []*Wordlist
	for _, wl := range wm.wordlists {
		wordlists = append(wordlists, wl)
	}
	sort.Slice(wordlists, func(i, j int) bool {
		return wordlists[i].Name < wordlists[j].Name
	})
	return wordlists
}

// CreateWordlist registers a deduplicated list under a name derived ID
func (wm *WordlistManager) CreateWordlist(name, description string, source WordlistSource, words []string) *Wordlist {
	words = RemoveDuplicates(words)
	wordlist := &Wordlist{
		ID:          generateWordlistID(name),
		Name:        name,
		Description: description,
		Source:      source,
		Words:       words,
		Size:        len(words),
		CreatedAt:   time.Now(),
		Tags:        []string{string(source)},
	}
	wm.wordlists[wordlist.ID] = wordlist
	return wordlist
}

// LoadWordlistFromFile loads a wordlist from a text file, one name per line
func (wm *WordlistManager) LoadWordlistFromFile(filePath string) (*Wordlist, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	words, err := ReadWords(file)
	if err != nil {
		return nil, err
	}
	return wm.CreateWordlist(filePath, "Loaded from "+filePath, SourceCustom, words), nil
}

// LoadWordlistFromReader is used for stdin
func (wm *WordlistManager) LoadWordlistFromReader(r io.Reader) (*Wordlist, error) {
	words, err := ReadWords(r)
	if err != nil {
		return nil, err
	}
	return wm.CreateWordlist("stdin", "Read from standard input", SourceStdin, words), nil
}

// ReadWords reads non-empty, non-comment lines.
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			words = append(words, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading wordlist: %w", err)
	}
	return words, nil
}

// Utility functions
func generateWordlistID(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// RemoveDuplicates keeps the first occurrence of every word, preserving order.
func RemoveDuplicates(slice []string) []string {
	keys := make(map[string]bool, len(slice))
	result := make([]string, 0, len(slice))

	for _, item := range slice {
		if !keys[item] {
			keys[item] = true
			result = append(result, item)
		}
	}

	return result
}
