package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Regsync/internal/config"
	"github.com/Ning0612/Regsync/internal/logger"
	"github.com/Ning0612/Regsync/internal/service"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "regsync",
	Short: "Manage registry replication endpoints, rules and jobs",
	Long: `Regsync is the console for registry replication policy: it manages
destination endpoints, the rules that replicate projects to them, and
the jobs those rules spawn. The replication transfers themselves run in
an external engine; regsync records and queries them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		return logger.Init(loggerConfig(c))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Shutdown()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Shutdown()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches standard locations)")

	rootCmd.AddCommand(newEndpointCommand())
	rootCmd.AddCommand(newRuleCommand())
	rootCmd.AddCommand(newJobCommand())
	rootCmd.AddCommand(newDaemonCommand())
}

// loggerConfig maps the file configuration onto the logger
func loggerConfig(c *config.Config) logger.Config {
	lc := logger.Config{
		Level:   logger.ParseLevel(c.Log.Level),
		Format:  logger.ParseFormat(c.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if c.Log.File.Path != "" {
		lc.File = logger.FileConfig{
			Enabled:    true,
			Path:       config.ExpandPath(c.Log.File.Path),
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			MaxBackups: c.Log.File.MaxBackups,
			Compress:   c.Log.File.Compress,
		}
		lc.Outputs = append(lc.Outputs, logger.OutputConfig{Type: logger.OutputFile})
	}
	return lc
}

// withService opens the store-backed service for one command invocation
func withService(fn func(ctx context.Context, svc *service.Service) error) error {
	svc, err := service.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(context.Background(), svc)
}
