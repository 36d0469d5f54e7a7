package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/api"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	v       = config.NewViper()
	cfg     config.Config
	env     api.Environment
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "event-ticketing",
	Short:        "Event registration and ticketing backend",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}

		env, err = api.ParseEnvironment(cfg.Env)
		if err != nil {
			return err
		}

		logger = newLogger(env)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml)")
	rootCmd.PersistentFlags().String("env", "", "environment: local or prod")
	rootCmd.PersistentFlags().String("store", "", "store driver: dynamo or postgres")

	_ = v.BindPFlag("env", rootCmd.PersistentFlags().Lookup("env"))
	_ = v.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store"))
}

// newLogger writes JSON in prod and human readable text locally.
func newLogger(env api.Environment) *slog.Logger {
	if env == api.PROD {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
