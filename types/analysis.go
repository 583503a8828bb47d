package types

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// EpisodeRewards holds the cumulative reward of every episode, indexed by task and episode
type EpisodeRewards struct {
	Rewards [][]float64
}

// Flatten lists the episode rewards in execution order
func (e *EpisodeRewards) Flatten() []float64 {
	out := make([]float64, 0)
	for _, task := range e.Rewards {
		out = append(out, task...)
	}
	return out
}

// PerEpisodeMean averages the reward of the i-th episode over the tasks
func (e *EpisodeRewards) PerEpisodeMean() []float64 {
	if len(e.Rewards) == 0 {
		return []float64{}
	}
	episodes := len(e.Rewards[0])
	means := make([]float64, episodes)
	column := make([]float64, 0, len(e.Rewards))
	for i := 0; i < episodes; i++ {
		column = column[:0]
		for _, task := range e.Rewards {
			if i < len(task) {
				column = append(column, task[i])
			}
		}
		means[i] = stat.Mean(column, nil)
	}
	return means
}

// Mean is the average episode reward
func (e *EpisodeRewards) Mean() float64 {
	flat := e.Flatten()
	if len(flat) == 0 {
		return 0
	}
	return stat.Mean(flat, nil)
}

type episodeRewardAnalyzer struct {
	rewards *EpisodeRewards
}

// EpisodeRewardAnalyzer collects the cumulative reward of every episode into EpisodeRewards
func EpisodeRewardAnalyzer() AnalyzerFactory {
	return func() Analyzer {
		return &episodeRewardAnalyzer{rewards: &EpisodeRewards{Rewards: make([][]float64, 0)}}
	}
}

func (a *episodeRewardAnalyzer) Analyze(task, _ int, trace *Trace) {
	for len(a.rewards.Rewards) <= task {
		a.rewards.Rewards = append(a.rewards.Rewards, make([]float64, 0))
	}
	a.rewards.Rewards[task] = append(a.rewards.Rewards[task], trace.TotalReward())
}

func (a *episodeRewardAnalyzer) DataSet() DataSet {
	return a.rewards
}

// RewardPlotter plots, for every experiment, the cumulative reward over the
// episodes of a run, averaged over tasks when tasks have several episodes
func RewardPlotter(plotPath string) Comparator {
	if _, err := os.Stat(plotPath); err != nil {
		os.MkdirAll(plotPath, os.ModePerm)
	}
	return func(run int, names []string, ds []DataSet) {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Cumulative reward"
		for i := 0; i < len(names); i++ {
			rewards, ok := ds[i].(*EpisodeRewards)
			if !ok {
				continue
			}
			series := rewards.PerEpisodeMean()
			if len(series) <= 1 {
				series = rewards.Flatten()
			}
			cumulative := make([]float64, len(series))
			if len(series) > 0 {
				floats.CumSum(cumulative, series)
			}
			points := make(plotter.XYs, len(cumulative))
			for j, v := range cumulative {
				points[j] = plotter.XY{
					X: float64(j + 1),
					Y: v,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_rewards.png"))
	}
}

// RewardSummary prints the mean episode reward of every experiment
func RewardSummary(w io.Writer) Comparator {
	return func(run int, names []string, ds []DataSet) {
		for i, name := range names {
			rewards, ok := ds[i].(*EpisodeRewards)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "Run %d, %s: mean episode reward %.4f over %d episodes\n", run, name, rewards.Mean(), len(rewards.Flatten()))
		}
	}
}
