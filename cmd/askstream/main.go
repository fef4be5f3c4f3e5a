package main

import (
	"fmt"
	"os"

	"github.com/liliang-cn/askstream/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "askstream",
		Short: "Streaming chat client and development stream server",
		Long: `askstream talks to a chat stream endpoint the way an embedded
support widget does: it streams answers, shows reasoning progress and
sources, and remembers the conversation between runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err = newLogger(cfg.Log, cmd.Name() != serveCmd.Name() && !verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log client activity to stderr")

	rootCmd.AddCommand(askCmd, chatCmd, resetCmd, serveCmd)
}

// newLogger builds the process logger. Quiet loggers drop everything below
// warn so client commands keep stdout and stderr readable.
func newLogger(cfg config.LogConfig, quiet bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if quiet && level < zapcore.WarnLevel {
		level = zapcore.WarnLevel
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
