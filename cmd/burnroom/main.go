package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/burnroom/internal/config"
	"github.com/vovakirdan/burnroom/internal/log"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "burnroom",
		Short:         "Ephemeral, self-destructing chat rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(flags),
		newCreateCmd(flags),
		newJoinCmd(flags),
		newVersionCmd(),
	)
	return root
}

// load resolves configuration and builds a logger writing to stderr, so
// log lines stay out of the room view on stdout.
func (f *rootFlags) load() (config.Config, *zerolog.Logger, error) {
	bootstrap := log.NewWithWriter(os.Stderr, "warn")
	cfg, _, err := config.Load(bootstrap, f.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, log.NewWithWriter(os.Stderr, cfg.LogLevel), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "burnroom", version)
		},
	}
}
