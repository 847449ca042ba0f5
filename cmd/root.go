// cmd/root.go
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hiddenParamsGo/internal/core"
	"hiddenParamsGo/internal/core/logger"
)

var (
	verbose       bool
	silent        bool
	disableColors bool
	version       = "0.3.0"
	configPath    string
	config        *core.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hiddenparams",
	Short: "Discover hidden HTTP parameters with differential probing.",
	Long: `hiddenparams finds query, body and header parameters that a server reacts to
but that no client shows. Candidates are sent in large batches, batches that
change the response are split until single parameters remain, and noise like
cache busters or timestamps is learned up front so it is not reported.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case verbose:
			logger.SetupLogger("debug")
		case silent:
			logger.SetupLogger("error")
		default:
			logger.SetupLogger("info")
		}
		if disableColors {
			color.NoColor = true
			logger.DisableColors()
		}
		if !silent {
			printBanner(os.Stderr)
		}
		return loadConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	if configPath == "" {
		return nil
	}
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	config = cfg
	return nil
}

func printBanner(w io.Writer) {
	banner := `
  _     _     _     _
 | |__ (_) __| | __| | ___ _ __    _ __   __ _ _ __ __ _ _ __ ___  ___
 | '_ \| |/ _' |/ _' |/ _ \ '_ \  | '_ \ / _' | '__/ _' | '_ ' _ \/ __|
 | | | | | (_| | (_| |  __/ | | | | |_) | (_| | | | (_| | | | | | \__ \
 |_| |_|_|\__,_|\__,_|\___|_| |_| | .__/ \__,_|_|  \__,_|_| |_| |_|___/
                                  |_|
`
	fmt.Fprint(w, color.CyanString(banner))
	fmt.Fprintln(w, color.MagentaString("hiddenparams v%s", version))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging.")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "Only print results and errors.")
	rootCmd.PersistentFlags().BoolVar(&disableColors, "disable-colors", false, "Disable colored output.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML or JSON)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Version}}\r\n")
}
