package commands

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yangl1996/rateless-reconcile/riblt"
	"github.com/yangl1996/rateless-reconcile/symbols"
	"github.com/yangl1996/rateless-reconcile/wire"
)

// NewSketchCmd returns the command that reconciles two sets with fixed-size
// sketches
func NewSketchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sketch",
		Short: "Reconcile two sets with fixed-size sketches",
		RunE:  runSketch,
	}
	AddSketchFlags(cmd)
	return cmd
}

// AddSketchFlags adds flags to the sketch command
func AddSketchFlags(cmd *cobra.Command) {
	cmd.Flags().String("local", _config.Local, "Local set, e.g. 1-5,9")
	cmd.Flags().String("remote", _config.Remote, "Remote set")
	cmd.Flags().IntP("sketch-size", "m", _config.SketchSize, "Coded symbols per sketch")
}

type sketchResult struct {
	localOnly, remoteOnly []uint64
	decoded               bool
	// wireBytes is the serialized size of the remote sketch
	wireBytes int
}

// reconcileSketches sketches both sets, passes the remote sketch through its
// wire encoding and subtracts it from the local one.
func reconcileSketches(local, remote []uint64, m int) (sketchResult, error) {
	ls := riblt.NewSketch[symbols.Uint64](m, nil)
	for _, i := range local {
		ls.AddSymbol(symbols.Uint64(i))
	}
	rs := riblt.NewSketch[symbols.Uint64](m, nil)
	for _, i := range remote {
		rs.AddSymbol(symbols.Uint64(i))
	}

	var buf bytes.Buffer
	if err := wire.Uint64Codec.WriteSketch(&buf, rs); err != nil {
		return sketchResult{}, err
	}
	res := sketchResult{wireBytes: buf.Len()}
	received, err := wire.Uint64Codec.ReadSketch(bufio.NewReader(&buf))
	if err != nil {
		return res, err
	}

	if err := ls.Subtract(received); err != nil {
		return res, err
	}
	fwd, rev, succ, err := ls.Decode()
	if err != nil {
		return res, err
	}
	res.localOnly = sortedValues(fwd)
	res.remoteOnly = sortedValues(rev)
	res.decoded = succ
	return res, nil
}

func runSketch(cmd *cobra.Command, args []string) error {
	local, err := parseSet(_config.Local)
	if err != nil {
		return fmt.Errorf("local set: %w", err)
	}
	remote, err := parseSet(_config.Remote)
	if err != nil {
		return fmt.Errorf("remote set: %w", err)
	}
	r, err := reconcileSketches(local, remote, _config.SketchSize)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sketch of %d coded symbols, %d bytes on the wire\n", _config.SketchSize, r.wireBytes)
	if !r.decoded {
		fmt.Fprintln(out, "sketch too small, partial result:")
	}
	fmt.Fprintf(out, "local only:  %s\n", formatSet(r.localOnly))
	fmt.Fprintf(out, "remote only: %s\n", formatSet(r.remoteOnly))
	return nil
}
