// cmd/discover.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hiddenParamsGo/internal/core"
	"hiddenParamsGo/internal/core/logger"
	"hiddenParamsGo/internal/modules/discovery"
	"hiddenParamsGo/internal/network"
	"hiddenParamsGo/internal/output"
	"hiddenParamsGo/internal/requests"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/83.0.4103.97 Safari/537.36"

// cacheBusters keep caches from answering learning and discovery probes.
var cacheBusters = []requests.Header{
	{Name: "Accept", Value: "*/*, text/{{random}}"},
	{Name: "Accept-Language", Value: "en-US, {{random}};q=0.9, *;q=0.5"},
	{Name: "Accept-Charset", Value: "utf-8, iso-8859-1;q=0.5, {{random}};q=0.2, *;q=0.1"},
}

// discoverOptions holds every flag of the discover command.
type discoverOptions struct {
	url            string
	method         string
	headers        []string
	body           string
	dataType       string
	asBody         bool
	headerNames    bool
	paramTemplate  string
	joiner         string
	encode         bool
	keepNewlines   bool
	proxy          string
	followRedirect bool
	timeout        time.Duration
	delay          time.Duration
	rate           float64
	concurrency    int
	learnRequests  int
	max            int
	force          bool
	strict         bool
	verify         bool
	reflectedOnly  bool

	disableCustom    bool
	customParameters []string
	customValues     []string
	disableCache     bool

	replayProxy string
	replayOnce  bool

	wordlist     string
	outputPath   string
	saveDir      string
	outputFormat string
	appendOutput bool
	noProgress   bool
	test         bool
	extractForms bool
}

var discoverOpts discoverOptions

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover hidden parameters of a target.",
	Long: `Sends the wordlist to the target in batches and reports the parameters
that change the status code, the body or get reflected.

Examples:
  hiddenparams discover -u "https://example.com/" -w params.txt
  hiddenparams discover -u "https://example.com/api" -X POST --as-body -b '{"x":{%s}}'
  hiddenparams discover -u "https://example.com/" --headers
  hiddenparams discover -u "https://example.com/" -H "Cookie: session=1; %s"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyConfig(cmd, &discoverOpts, config)
		return runDiscover(cmd.Context(), &discoverOpts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// applyConfig fills every flag the user did not set from the config file.
func applyConfig(cmd *cobra.Command, o *discoverOptions, cfg *core.Config) {
	if cfg == nil {
		return
	}
	changed := cmd.Flags().Changed
	setString := func(flag string, dst *string, v string) {
		if !changed(flag) && v != "" {
			*dst = v
		}
	}
	setString("wordlist", &o.wordlist, cfg.Wordlist)
	setString("method", &o.method, cfg.Method)
	setString("body", &o.body, cfg.Body)
	setString("data-type", &o.dataType, cfg.DataType)
	setString("proxy", &o.proxy, cfg.Proxy)
	setString("replay-proxy", &o.replayProxy, cfg.ReplayProxy)
	setString("output-format", &o.outputFormat, cfg.OutputFormat)

	if !changed("header") && len(cfg.Headers) > 0 {
		o.headers = append([]string(nil), cfg.Headers...)
	}
	if !changed("concurrency") && cfg.Concurrency > 0 {
		o.concurrency = cfg.Concurrency
	}
	if !changed("learn-requests") && cfg.LearnRequests > 0 {
		o.learnRequests = cfg.LearnRequests
	}
	if !changed("max") && cfg.Max > 0 {
		o.max = cfg.Max
	}
	if !changed("delay") && cfg.Delay > 0 {
		o.delay = time.Duration(cfg.Delay)
	}
	if !changed("timeout") && cfg.Timeout > 0 {
		o.timeout = time.Duration(cfg.Timeout)
	}
	if !changed("rate") && cfg.Rate > 0 {
		o.rate = cfg.Rate
	}
	o.strict = o.strict || (!changed("strict") && cfg.Strict)
	o.verify = o.verify || (!changed("verify") && cfg.Verify)
	o.force = o.force || (!changed("force") && cfg.Force)
	o.followRedirect = o.followRedirect || (!changed("follow-redirects") && cfg.FollowRedirects)
	o.disableCache = o.disableCache || (!changed("disable-cachebuster") && cfg.DisableCachebuster)
}

// customTable merges the flag lists with the table of the config file.
func customTable(o *discoverOptions, cfg *core.Config) map[string][]string {
	if o.disableCustom {
		return nil
	}
	table := discovery.BuildCustomTable(o.customParameters, o.customValues)
	if cfg != nil {
		for name, values := range cfg.CustomParameters {
			table[name] = core.RemoveDuplicates(append(table[name], values...))
		}
	}
	return table
}

func parseHeaders(raw []string) ([]requests.Header, error) {
	headers := make([]requests.Header, 0, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		headers = append(headers, requests.Header{Name: name, Value: strings.TrimSpace(value)})
	}
	return headers, nil
}

func hasHeader(headers []requests.Header, name string) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

// buildDefaults turns the options into the request template of the run.
func buildDefaults(o *discoverOptions, client requests.Doer) (*requests.RequestDefaults, error) {
	headers, err := parseHeaders(o.headers)
	if err != nil {
		return nil, err
	}
	if !hasHeader(headers, "User-Agent") {
		headers = append(headers, requests.Header{Name: "User-Agent", Value: defaultUserAgent})
	}
	if !o.disableCache {
		for _, h := range cacheBusters {
			if !hasHeader(headers, h.Name) {
				headers = append(headers, h)
			}
		}
	}

	body := o.body
	if o.keepNewlines {
		body = strings.NewReplacer(`\r`, "\r", `\n`, "\n").Replace(body)
	}

	place := requests.Path
	switch {
	case o.headerNames:
		place = requests.Headers
	case o.asBody:
		place = requests.Body
	}

	var dataType *requests.DataType
	parsed, ok, err := requests.ParseDataType(o.dataType)
	if err != nil {
		return nil, err
	}
	if ok {
		dataType = &parsed
	}

	return requests.NewRequestDefaults(requests.RequestDefaults{
		Method:            o.method,
		URL:               o.url,
		Headers:           headers,
		Body:              body,
		InjectionPlace:    place,
		ParameterTemplate: o.paramTemplate,
		Joiner:            o.joiner,
		Encode:            o.encode,
		Delay:             o.delay,
		Force:             o.force,
		Client:            client,
	}, dataType)
}

func loadWordlist(o *discoverOptions, stdin io.Reader) ([]string, error) {
	wm := core.NewWordlistManager()
	var wl *core.Wordlist
	var err error
	switch o.wordlist {
	case "":
		wl = wm.GetWordlist(core.DefaultParametersID)
	case "-":
		wl, err = wm.LoadWordlistFromReader(stdin)
	default:
		wl, err = wm.LoadWordlistFromFile(o.wordlist)
	}
	if err != nil {
		return nil, err
	}
	logger.GetLogger().Debugf("wordlist %q: %d parameters", wl.Name, wl.Size)
	return wl.Words, nil
}

func runDiscover(ctx context.Context, o *discoverOptions, stdin io.Reader, stdout io.Writer) error {
	log := logger.GetLogger()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if o.url == "" {
		return core.ErrMissingTarget
	}

	client, err := network.NewClient(network.Options{
		Timeout:         o.timeout,
		Proxy:           o.proxy,
		FollowRedirects: o.followRedirect,
		Concurrency:     o.concurrency,
		Rate:            o.rate,
	})
	if err != nil {
		return err
	}
	defaults, err := buildDefaults(o, client)
	if err != nil {
		return err
	}

	if o.test {
		return runTest(ctx, defaults, stdout)
	}

	wordlist, err := loadWordlist(o, stdin)
	if err != nil {
		return err
	}

	opts := discovery.Options{
		LearnRequests:     o.learnRequests,
		Max:               o.max,
		Concurrency:       o.concurrency,
		Force:             o.force,
		Strict:            o.strict,
		Verify:            o.verify,
		ReflectedOnly:     o.reflectedOnly,
		CustomParameters:  customTable(o, config),
		ExtractFormParams: o.extractForms,
		ReplayOnce:        o.replayOnce,
	}
	if o.replayProxy != "" {
		replay, err := network.NewReplayClient(o.replayProxy, o.timeout)
		if err != nil {
			return err
		}
		opts.ReplayClient = replay
	}

	if o.saveDir != "" {
		opts.OnFound = discovery.SaveResponses(o.saveDir)
	}

	dashboard := core.NewDashboard(!o.noProgress && !silent)
	opts.Observer = dashboard

	color.Cyan("%s %s (%s), %d candidates", defaults.Method, defaults.TemplateURL(), defaults.InjectionPlace, len(wordlist))
	result, err := discovery.Run(ctx, defaults, wordlist, opts)
	dashboard.Stop()
	if err != nil {
		return err
	}

	if !result.Stable.Body {
		color.Yellow("The page is not stable (body), only status code and reflections were trusted")
	}
	for _, p := range result.Parameters {
		if p.Value != "" {
			color.Green("%s=%s: %s", p.Name, p.Value, p.ReasonString())
		} else {
			color.Green("%s: %s", p.Name, p.ReasonString())
		}
	}
	if !silent {
		core.RenderSummary(os.Stderr, core.Summary{
			URL:               result.URL,
			Method:            result.Method,
			Place:             result.Place,
			Max:               result.Max,
			Requests:          result.Requests,
			Found:             len(result.Parameters),
			StableBody:        result.Stable.Body,
			StableReflections: result.Stable.Reflections,
			Elapsed:           result.Elapsed,
		})
	}

	rendered, err := output.FormatResult(result, defaults, o.outputFormat)
	if err != nil {
		return err
	}
	if o.outputPath != "" {
		if err := output.WriteOutput(o.outputPath, rendered, o.appendOutput); err != nil {
			return err
		}
		log.Infof("results written to %s", o.outputPath)
		return nil
	}
	fmt.Fprint(stdout, rendered)
	return nil
}

// runTest sends the bare request once and prints both sides of the exchange.
func runTest(ctx context.Context, defaults *requests.RequestDefaults, stdout io.Writer) error {
	req := requests.NewWithParameters(defaults, nil)
	resp, err := req.Send(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, req.Dump())
	fmt.Fprintf(stdout, "\nHTTP %d (%s)\n", resp.Code, resp.Duration.Truncate(time.Millisecond))
	for name, values := range resp.Headers {
		for _, v := range values {
			fmt.Fprintf(stdout, "%s: %s\n", name, v)
		}
	}
	fmt.Fprintf(stdout, "\n%s\n", resp.Body)
	return nil
}

func addDiscoverFlags(cmd *cobra.Command, o *discoverOptions) {
	f := cmd.Flags()

	f.StringVarP(&o.url, "url", "u", "", "Target URL, %s marks the injection point (required)")
	f.StringVarP(&o.method, "method", "X", "GET", "HTTP method")
	f.StringArrayVarP(&o.headers, "header", "H", nil, "Request header 'Name: value', repeatable. %s in a value switches to header value discovery")
	f.StringVarP(&o.body, "body", "b", "", "Request body, %s marks the injection point. {{random}} is replaced per request")
	f.StringVarP(&o.dataType, "data-type", "t", "", "Body encoding: urlencode or json. Detected from the body when empty")
	f.BoolVar(&o.asBody, "as-body", false, "Send parameters in the body")
	f.BoolVar(&o.headerNames, "headers", false, "Discover header names instead of parameters")
	f.StringVarP(&o.paramTemplate, "param-template", "P", "", "Parameter template, %k is the name and %v the value, e.g. 'user[%k]=%v'")
	f.StringVarP(&o.joiner, "joiner", "j", "", "String placed between parameter templates")
	f.BoolVar(&o.encode, "encode", false, "Percent-encode special characters of the injected parameters")
	f.BoolVar(&o.keepNewlines, "keep-newlines", false, "Turn literal \\r and \\n in the body into line breaks")
	f.StringVarP(&o.proxy, "proxy", "x", "", "Proxy URL, e.g. http://127.0.0.1:8080")
	f.BoolVarP(&o.followRedirect, "follow-redirects", "L", false, "Follow redirects")
	f.DurationVar(&o.timeout, "timeout", network.DefaultTimeout, "Timeout per request")
	f.DurationVarP(&o.delay, "delay", "d", 0, "Delay before every request")
	f.Float64Var(&o.rate, "rate", 0, "Maximum requests per second, 0 is unlimited")
	f.IntVarP(&o.concurrency, "concurrency", "c", 1, "Requests in flight at once")
	f.IntVar(&o.learnRequests, "learn-requests", 9, "Amount of learning requests")
	f.IntVarP(&o.max, "max", "m", 0, "Parameters per request (default 128/192/256 for query, 64/128/196 for headers and 512 for body)")
	f.BoolVar(&o.force, "force", false, "Ignore the page size limit")
	f.BoolVar(&o.strict, "strict", false, "Also compare response headers and drop parameters that repeat the change of a found one")
	f.BoolVar(&o.verify, "verify", false, "Re-test every found parameter on its own")
	f.BoolVar(&o.reflectedOnly, "reflected-only", false, "Only report reflected parameters")
	f.BoolVar(&o.disableCustom, "disable-custom-parameters", false, "Do not try custom parameters like admin=true")
	f.StringSliceVar(&o.customParameters, "custom-parameters", core.DefaultCustomParameters(), "Parameters tried with the custom values")
	f.StringSliceVar(&o.customValues, "custom-values", core.DefaultCustomValues(), "Values tried with the custom parameters")
	f.BoolVar(&o.disableCache, "disable-cachebuster", false, "Do not add cache busting headers")
	f.StringVar(&o.replayProxy, "replay-proxy", "", "Send the found parameters through this proxy at the end")
	f.BoolVar(&o.replayOnce, "replay-once", false, "Replay every found parameter in a single request")
	f.StringVarP(&o.wordlist, "wordlist", "w", "", "Wordlist file, '-' reads stdin. The built-in list is used when empty")
	f.StringVarP(&o.outputPath, "output", "o", "", "Write results to a file")
	f.StringVarP(&o.outputFormat, "output-format", "O", "standard", "Output format: "+strings.Join(output.Formats, ", "))
	f.BoolVar(&o.appendOutput, "append", false, "Append to the output file")
	f.StringVar(&o.saveDir, "save-responses", "", "Save the request and response of every found parameter to this directory")
	f.BoolVar(&o.noProgress, "disable-progress-bar", false, "Do not show progress")
	f.BoolVar(&o.test, "test", false, "Print the bare request and its response, then exit")
	f.BoolVar(&o.extractForms, "extract-form-params", false, "Add the form field names of the page to the wordlist")
}

func init() {
	addDiscoverFlags(discoverCmd, &discoverOpts)
	discoverCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(discoverCmd)
}
