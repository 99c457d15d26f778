package commands

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yangl1996/rateless-reconcile/sim"
	"github.com/yangl1996/rateless-reconcile/stats"
)

// NewSimCmd returns the command that simulates reconciliation over a link
func NewSimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Simulate reconciliation over a link with latency and limited bandwidth",
		RunE:  runSim,
	}
	AddSimFlags(cmd)
	return cmd
}

// AddSimFlags adds flags to the sim command
func AddSimFlags(cmd *cobra.Command) {
	cmd.Flags().Int("trials", _config.Trials, "Number of trials")
	cmd.Flags().Int("diff", _config.Diff, "Size of the symmetric difference")
	cmd.Flags().Int("common", _config.Common, "Number of symbols both sides hold")
	cmd.Flags().Int64("seed", _config.Seed, "Seed of the first trial")
	cmd.Flags().Duration("delay", _config.Delay, "One-way link delay")
	cmd.Flags().Float64("rate", _config.Rate, "Link bandwidth in coded symbols per second")
	cmd.Flags().Int("max-coded-symbols", _config.MaxCodedSymbols, "Give up a trial after this many coded symbols")
}

type simReport struct {
	// completion time in seconds
	completion stats.Summary
	// coded symbols consumed and sent, relative to the difference
	used, sent stats.Summary
	failed     int
}

func simulate(c *CLIConfig) (simReport, error) {
	if c.Diff < 1 || c.Trials < 1 {
		return simReport{}, fmt.Errorf("need at least one trial and a nonempty difference")
	}
	cfg := sim.PairConfig{
		Delay:           c.Delay,
		Rate:            c.Rate,
		MaxCodedSymbols: c.MaxCodedSymbols,
		Logger:          logger.WithField("command", "sim"),
	}
	report := simReport{}
	var completion, used, sent []float64
	for i := 0; i < c.Trials; i++ {
		enc, dec := randomPair(rand.New(rand.NewSource(c.Seed+int64(i))), c.Diff, c.Common)
		res, err := sim.SimulatePair(enc, dec, cfg)
		if err != nil {
			return report, fmt.Errorf("trial %d: %w", i, err)
		}
		if !res.Decoded {
			report.failed += 1
			continue
		}
		completion = append(completion, res.CompletionTime.Seconds())
		used = append(used, float64(res.Used)/float64(c.Diff))
		sent = append(sent, float64(res.Sent)/float64(c.Diff))
	}
	report.completion = stats.Moments(completion)
	report.used = stats.Moments(used)
	report.sent = stats.Moments(sent)
	return report, nil
}

func runSim(cmd *cobra.Command, args []string) error {
	logger.WithFields(logrus.Fields{
		"trials": _config.Trials,
		"diff":   _config.Diff,
		"common": _config.Common,
		"delay":  _config.Delay,
		"rate":   _config.Rate,
	}).Debug("SIM")
	r, err := simulate(_config)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %d trials, difference %d, delay %v, rate %.0f/s\n", _config.Trials, _config.Diff, _config.Delay, _config.Rate)
	fmt.Fprintf(out, "completion time s: %v\n", r.completion)
	fmt.Fprintf(out, "coded symbols used / difference: %v\n", r.used)
	fmt.Fprintf(out, "coded symbols sent / difference: %v\n", r.sent)
	if r.failed > 0 {
		fmt.Fprintf(out, "%d trials did not decode\n", r.failed)
	}
	return nil
}
