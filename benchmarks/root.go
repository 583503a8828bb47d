package benchmarks

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	episodes   int
	steps      int
	tasks      int
	runs       int
	saveFile   string
	configFile string
	logLevel   string
	serveAddr  string
	redisAddr  string

	resetAtTerminal bool
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "rl-abstraction",
		Short:         "Experiments with state and action abstractions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", 1, "Number of episodes per task")
	rootCommand.PersistentFlags().IntVar(&steps, "steps", 3000, "Number of steps of each episode")
	rootCommand.PersistentFlags().IntVar(&tasks, "tasks", 50, "Number of tasks sampled from the distribution")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML file overriding the experiment and agent parameters")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCommand.PersistentFlags().StringVar(&serveAddr, "serve", "", "Serve the experiment status on this address")
	rootCommand.PersistentFlags().StringVar(&redisAddr, "redis", "", "Record episodes to the redis server at this address instead of files")
	// adding the subcommands here
	rootCommand.AddCommand(FourRoomCommand())
	rootCommand.AddCommand(InduceCommand())
	return rootCommand
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}
