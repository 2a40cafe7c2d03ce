// Package cli implements the advisor command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/config"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded in PersistentPreRunE
	cfg config.Config
	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advisor",
		Short: "advisor is an academic planning chatbot for the NUS DSA major",
		Long: "Advisor is a conversational academic-planning assistant that combines " +
			"curriculum retrieval, NUSMods catalog tools, and a tool-calling LLM.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			log = logging.New(nil, cfg.Logging.Level, cfg.Logging.Style)

			for _, issue := range config.Validate(&cfg) {
				log.Warn().Str("path", issue.Path).Msg(issue.Message)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "advisor.yaml", "config file path")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newGradeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if log != nil {
			log.Error().Err(err).Msg("command failed")
		}
		return err
	}
	return nil
}
