// internal/output/formatter.go
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/table"

	"hiddenParamsGo/internal/core"
	"hiddenParamsGo/internal/core/logger"
	"hiddenParamsGo/internal/modules/discovery"
	"hiddenParamsGo/internal/requests"
)

// Formats lists every supported output format.
var Formats = []string{"standard", "json", "url", "request", "csv", "table"}

type jsonReport struct {
	RunID          string                     `json:"run_id"`
	URL            string                     `json:"url"`
	Method         string                     `json:"method"`
	InjectionPlace string                     `json:"injection_place"`
	Max            int                        `json:"max"`
	Stable         discovery.Stable           `json:"stable"`
	Parameters     []discovery.FoundParameter `json:"parameters"`
	Requests       int64                      `json:"requests"`
	Elapsed        string                     `json:"elapsed"`
}

// FormatResult renders a discovery result in the given format. The request
// defaults are needed by the url and request formats to inject the findings.
func FormatResult(result *discovery.Result, defaults *requests.RequestDefaults, outputFormat string) (string, error) {
	log := logger.GetLogger()
	switch outputFormat {
	case "", "standard":
		return formatStandard(result, defaults), nil
	case "json":
		params := result.Parameters
		if params == nil {
			params = []discovery.FoundParameter{}
		}
		data := jsonReport{
			RunID:          uuid.NewString(),
			URL:            displayURL(defaults),
			Method:         result.Method,
			InjectionPlace: result.Place,
			Max:            result.Max,
			Stable:         result.Stable,
			Parameters:     params,
			Requests:       result.Requests,
			Elapsed:        result.Elapsed.String(),
		}
		jsonData, err := json.MarshalIndent(data, "", "    ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(jsonData) + "\n", nil
	case "url":
		return injected(defaults, result.Parameters).URL() + "\n", nil
	case "request":
		return injected(defaults, result.Parameters).Dump() + "\n", nil
	case "csv":
		var b strings.Builder
		writer := csv.NewWriter(&b)
		if err := writer.Write([]string{"name", "value", "reasons", "status"}); err != nil {
			return "", fmt.Errorf("failed to write CSV header: %w", err)
		}
		for _, p := range result.Parameters {
			if err := writer.Write([]string{p.Name, p.Value, p.ReasonString(), fmt.Sprint(p.Status)}); err != nil {
				return "", fmt.Errorf("failed to write parameter to CSV: %w", err)
			}
		}
		writer.Flush()
		return b.String(), nil
	case "table":
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Parameter", "Value", "Reasons", "Status"})
		for _, p := range result.Parameters {
			t.AppendRow(table.Row{p.Name, p.Value, p.ReasonString(), p.Status})
		}
		return t.Render() + "\n", nil
	default:
		log.Errorf("Unsupported output format: %s", outputFormat)
		return "", core.ErrOutputFormat
	}
}

// formatStandard prints "METHOD URL % name, name=value".
func formatStandard(result *discovery.Result, defaults *requests.RequestDefaults) string {
	parts := make([]string, 0, len(result.Parameters))
	for _, p := range result.Parameters {
		if p.Value != "" {
			parts = append(parts, p.Name+"="+p.Value)
		} else {
			parts = append(parts, p.Name)
		}
	}
	return fmt.Sprintf("%s %s %% %s\n", result.Method, displayURL(defaults), strings.Join(parts, ", "))
}

// displayURL is the target without the injection mark.
func displayURL(defaults *requests.RequestDefaults) string {
	return defaults.TemplateURL()
}

func injected(defaults *requests.RequestDefaults, params []discovery.FoundParameter) *requests.Request {
	pairs := make([]requests.Parameter, 0, len(params))
	for _, p := range params {
		value := p.Value
		if value == "" {
			value = requests.RandomToken(requests.ValueLength)
		}
		pairs = append(pairs, requests.Parameter{Name: p.Name, Value: value})
	}
	return requests.NewWithParameters(defaults, pairs)
}

// WriteOutput writes content to a file, appending when asked.
func WriteOutput(filepath string, content string, appendTo bool) error {
	log := logger.GetLogger()
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendTo {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(filepath, flags, 0644)
	if err != nil {
		log.Errorf("Failed to open %s: %v", filepath, err)
		return core.ErrFileWrite
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		log.Errorf("Failed to write output to %s: %v", filepath, err)
		return core.ErrFileWrite
	}
	return nil
}
