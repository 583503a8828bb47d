package benchmarks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"

	"github.com/spf13/cobra"
	"github.com/zeu5/rl-abstraction/abstraction"
	"github.com/zeu5/rl-abstraction/grid"
	"github.com/zeu5/rl-abstraction/recorder"
	"github.com/zeu5/rl-abstraction/server"
	"github.com/zeu5/rl-abstraction/types"
)

// FourRoom compares the ground agent with hierarchy agents acting at every
// level of the four room hierarchy, over tasks that differ in the goal cell
func FourRoom(ctx context.Context, cfg *Config) error {
	distr, err := grid.NewFourRoomDistribution(cfg.Grid.Dim, cfg.Grid.StepCost)
	if err != nil {
		return err
	}
	layout := distr.Tasks()[0]
	saStack, aaStack, err := grid.MakeHierarchy(layout, cfg.Grid.Levels)
	if err != nil {
		return err
	}
	saStack.PrintStateSpaceSizes(os.Stdout, layout.States())
	fmt.Printf("Num Action Abstractions: %d\n", len(aaStack.Levels()))

	factory, err := cfg.AgentFactory()
	if err != nil {
		return err
	}
	actions := distr.Actions()

	c := types.NewComparison(distr, cfg.Experiment)
	c.SetLogger(slog.Default().With("run_id", c.RunID))
	c.SetSnapshotDir(path.Join(saveFile, "agents", c.RunID))
	c.AddAnalysis("rewards", types.EpisodeRewardAnalyzer(), types.RewardPlotter(saveFile))
	c.AddAnalysis("summary", types.EpisodeRewardAnalyzer(), types.RewardSummary(os.Stdout))

	baselineName := factory(actions).Name()
	c.AddExperiment(types.NewExperiment(baselineName, func() (types.Agent, error) {
		return factory(actions), nil
	}))
	for level := 1; level < saStack.NumLevels(); level++ {
		level := level
		c.AddExperiment(types.NewExperiment(fmt.Sprintf("%s-l%d", baselineName, level), func() (types.Agent, error) {
			return abstraction.NewHierarchyAgent(factory, saStack, aaStack, level)
		}))
	}

	if redisAddr != "" {
		r := recorder.NewRedisRecorder(redisAddr, c.RunID)
		defer r.Close()
		if err := r.Ping(ctx); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		c.SetRecorder(r)
	} else {
		c.SetRecorder(recorder.NewFileRecorder(path.Join(saveFile, "episodes", c.RunID)))
	}

	if serveAddr != "" {
		serverCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		srv := server.NewStatusServer(serverCtx, serveAddr, c.RunID, c)
		srv.SetLogger(slog.Default().With("component", "status"))
		srv.Start()
	}

	slog.Info("running four room comparison", "run_id", c.RunID, "agent", cfg.Agent, "dim", cfg.Grid.Dim)
	return c.Run(ctx)
}

func FourRoomCommand() *cobra.Command {
	var dim int
	var levels int
	var agent string

	cmd := &cobra.Command{
		Use:   "fourroom",
		Short: "Compare hierarchy agents on four room tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dim") {
				cfg.Grid.Dim = dim
			}
			if cmd.Flags().Changed("levels") {
				cfg.Grid.Levels = levels
			}
			if cmd.Flags().Changed("agent") {
				cfg.Agent = agent
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			return FourRoom(ctx, cfg)
		},
	}
	cmd.PersistentFlags().IntVar(&dim, "dim", 9, "Dimension of the grid")
	cmd.PersistentFlags().IntVar(&levels, "levels", 3, "Number of levels of the hierarchy, including the ground level")
	cmd.PersistentFlags().StringVar(&agent, "agent", "rmax", "Ground agent (rmax, qlearning, bonus, random)")
	cmd.PersistentFlags().BoolVar(&resetAtTerminal, "reset-at-terminal", true, "Restart from the initial state at the goal and keep going until the step budget is used")
	return cmd
}
