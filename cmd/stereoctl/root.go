package main

import (
	_ "embed"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"stereoctl.app/stereoctl/config"
)

var (
	//go:embed version.txt
	version string

	flagConfig    string
	flagSet       []string
	flagTransport string
	flagTarget    string
	flagLogLevel  string
	flagLogFile   string
)

var (
	cfg       *config.Config
	logOutput io.Writer
	logger    = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "stereoctl",
	Short: "Remote control for a stereoscopic media player",
	Long: `stereoctl drives a stereoscopic media player through its automation
interface, either in-process over COM or through a SOAP automation bridge.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: user config dir/stereoctl/config.yaml)")
	rootCmd.PersistentFlags().StringArrayVar(&flagSet, "set", nil, "Override a config value, e.g. --set gestures.min_interval=300ms")
	rootCmd.PersistentFlags().StringVarP(&flagTransport, "transport", "T", "", "Player transport: com | soap | sim")
	rootCmd.PersistentFlags().StringVarP(&flagTarget, "target", "t", "", "Automation bridge description URL (soap transport)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug | info | warn | error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(openLRCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(gesturesCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig merges defaults < config file < --set < dedicated flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	path := flagConfig
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return errors.Wrap(err, "loading config")
		}
		path = p
	}

	c, err := config.LoadConfig(path)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	if err := c.ApplyOverrides(flagSet); err != nil {
		return err
	}

	if flagTransport != "" {
		c.Transport = strings.ToLower(flagTransport)
	}
	if flagTarget != "" {
		c.Target = flagTarget
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}

	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	if err := setupLogging(c); err != nil {
		return err
	}

	cfg = c
	return nil
}

func setupLogging(c *config.Config) error {
	zerolog.SetGlobalLevel(c.Level())

	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		logOutput = f
	} else {
		logOutput = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	logger = zerolog.New(logOutput).With().Timestamp().Logger()
	return nil
}
