package benchmarks

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeu5/rl-abstraction/abstraction"
	"github.com/zeu5/rl-abstraction/grid"
)

// Induce prints the abstract MDP of a level of the four room hierarchy:
// for every abstract action, the outcome of executing it from the initial state
func Induce(w io.Writer, cfg *Config, level int, gamma float64) error {
	m, err := grid.NewFourRoomMDP(cfg.Grid.Dim, cfg.Grid.StepCost, grid.Position{I: cfg.Grid.Dim - 1, J: cfg.Grid.Dim - 1})
	if err != nil {
		return err
	}
	saStack, aaStack, err := grid.MakeHierarchy(m, cfg.Grid.Levels)
	if err != nil {
		return err
	}
	saStack.PrintStateSpaceSizes(w, m.States())

	sa, err := saStack.UpTo(level)
	if err != nil {
		return err
	}
	aa, err := aaStack.Level(level)
	if err != nil {
		return err
	}
	induced, err := abstraction.Induce(m, sa, aa, abstraction.WithGamma(gamma), abstraction.WithMaxOptionSteps(cfg.Grid.Dim*cfg.Grid.Dim))
	if err != nil {
		return err
	}

	init := induced.InitState()
	fmt.Fprintf(w, "Level %d, initial state %s (ground %s)\n", level, init.Hash(), init.Ground.Hash())
	for _, a := range induced.Actions() {
		res, err := induced.Step(init, a)
		var invalid *abstraction.InvalidOptionSelectionError
		switch {
		case errors.As(err, &invalid):
			fmt.Fprintf(w, "\t%s: not initiable\n", a.Hash())
			continue
		case err != nil:
			return err
		}
		fmt.Fprintf(w, "\t%s -> %s (ground %s), reward %.3f, steps %d\n",
			a.Hash(), res.Next.Hash(), res.Next.Ground.Hash(), res.Reward, res.Steps)
	}
	return nil
}

func InduceCommand() *cobra.Command {
	var level int
	var gamma float64
	var dim int

	cmd := &cobra.Command{
		Use:   "induce",
		Short: "Print the abstract MDP induced at a level of the four room hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dim") {
				cfg.Grid.Dim = dim
			}
			return Induce(os.Stdout, cfg, level, gamma)
		},
	}
	cmd.PersistentFlags().IntVar(&level, "level", 1, "Level of the hierarchy to induce")
	cmd.PersistentFlags().Float64Var(&gamma, "gamma", 1.0, "Discount applied to rewards within an abstract action")
	cmd.PersistentFlags().IntVar(&dim, "dim", 9, "Dimension of the grid")
	return cmd
}
