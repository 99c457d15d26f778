package commands

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yangl1996/rateless-reconcile/riblt"
	"github.com/yangl1996/rateless-reconcile/stats"
	"github.com/yangl1996/rateless-reconcile/symbols"
)

// NewBenchCmd returns the command that measures the communication and
// computation cost of reconciliation
func NewBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure coded symbols and decoding time for random sets",
		RunE:  runBench,
	}
	AddBenchFlags(cmd)
	return cmd
}

// AddBenchFlags adds flags to the bench command
func AddBenchFlags(cmd *cobra.Command) {
	cmd.Flags().Int("trials", _config.Trials, "Number of trials")
	cmd.Flags().Int("diff", _config.Diff, "Size of the symmetric difference")
	cmd.Flags().Int("common", _config.Common, "Number of symbols both sides hold")
	cmd.Flags().Int("parallel", _config.Parallel, "Trials to run concurrently")
	cmd.Flags().Int64("seed", _config.Seed, "Seed of the first trial")
	cmd.Flags().Int("max-coded-symbols", _config.MaxCodedSymbols, "Give up a trial after this many coded symbols")
}

type trialResult struct {
	codedSymbols int
	elapsed      time.Duration
}

// randomPair returns an encoder and a decoder whose sets share common random
// symbols and differ in diff others, split evenly between the two sides.
func randomPair(rng *rand.Rand, diff, common int) (*riblt.Encoder[symbols.Uint64], *riblt.Decoder[symbols.Uint64]) {
	enc := riblt.NewEncoder[symbols.Uint64](nil)
	dec := riblt.NewDecoder[symbols.Uint64](nil)
	for i := 0; i < common; i++ {
		s := riblt.NewHashedSymbol(symbols.Uint64(rng.Uint64()))
		enc.AddHashedSymbol(s)
		dec.AddHashedSymbol(s)
	}
	for i := 0; i < diff; i++ {
		s := symbols.Uint64(rng.Uint64())
		if i%2 == 0 {
			enc.AddSymbol(s)
		} else {
			dec.AddSymbol(s)
		}
	}
	return enc, dec
}

func runTrial(seed int64, diff, common, limit int) (trialResult, error) {
	enc, dec := randomPair(rand.New(rand.NewSource(seed)), diff, common)
	start := time.Now()
	for !dec.Decoded() || dec.CodedSymbols() == 0 {
		if dec.CodedSymbols() >= limit {
			return trialResult{}, fmt.Errorf("trial %d: not decoded after %d coded symbols", seed, limit)
		}
		dec.AddCodedSymbol(enc.ProduceNextCodedSymbol())
		if err := dec.TryDecode(); err != nil {
			return trialResult{}, fmt.Errorf("trial %d: %w", seed, err)
		}
	}
	res := trialResult{dec.CodedSymbols(), time.Since(start)}
	if got := len(dec.Remote()) + len(dec.Local()); got != diff {
		return res, fmt.Errorf("trial %d: recovered %d symbols, expected %d", seed, got, diff)
	}
	return res, nil
}

type benchReport struct {
	overhead stats.Summary
	// decode time quantiles in milliseconds
	p50, p95 float64
}

func bench(c *CLIConfig) (benchReport, error) {
	if c.Diff < 1 || c.Trials < 1 {
		return benchReport{}, fmt.Errorf("need at least one trial and a nonempty difference")
	}
	results := make([]trialResult, c.Trials)
	g := errgroup.Group{}
	if c.Parallel > 0 {
		g.SetLimit(c.Parallel)
	}
	for i := range results {
		i := i
		g.Go(func() error {
			var err error
			results[i], err = runTrial(c.Seed+int64(i), c.Diff, c.Common, c.MaxCodedSymbols)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return benchReport{}, err
	}

	latency := stats.NewDistribution()
	overhead := make([]float64, 0, len(results))
	for _, r := range results {
		overhead = append(overhead, float64(r.codedSymbols)/float64(c.Diff))
		if err := latency.Add(float64(r.elapsed.Microseconds()) / 1000); err != nil {
			return benchReport{}, err
		}
	}
	q, err := latency.Quantiles([]float64{0.50, 0.95})
	if err != nil {
		return benchReport{}, err
	}
	return benchReport{stats.Moments(overhead), q[0], q[1]}, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	logger.WithFields(logrus.Fields{
		"trials":   _config.Trials,
		"diff":     _config.Diff,
		"common":   _config.Common,
		"parallel": _config.Parallel,
	}).Debug("BENCH")
	r, err := bench(_config)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %d trials, difference %d, common %d\n", _config.Trials, _config.Diff, _config.Common)
	fmt.Fprintf(out, "overhead (coded symbols / difference): %v\n", r.overhead)
	fmt.Fprintf(out, "decode time ms: p50 %.3f p95 %.3f\n", r.p50, r.p95)
	return nil
}
