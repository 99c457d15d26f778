package commands

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/yangl1996/rateless-reconcile/riblt"
	"github.com/yangl1996/rateless-reconcile/session"
	"github.com/yangl1996/rateless-reconcile/symbols"
	"github.com/yangl1996/rateless-reconcile/wire"
)

// NewSyncCmd returns the command that reconciles a set with a serving peer
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile a set with a serving peer",
		RunE:  runSync,
	}
	AddSyncFlags(cmd)
	return cmd
}

// AddSyncFlags adds flags to the sync command
func AddSyncFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("peer", "p", _config.Peer, "IP:Port of the serving peer")
	cmd.Flags().String("set", _config.Set, "Local set, e.g. 1-5,9")
	addSessionFlags(cmd)
}

// syncWith dials addr and decodes the difference between set and the set
// served there.
func syncWith(ctx context.Context, addr string, set []uint64, cfg session.Config) (session.ReceiveResult[symbols.Uint64], error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return session.ReceiveResult[symbols.Uint64]{}, err
	}
	defer conn.Close()
	dec := riblt.NewDecoder[symbols.Uint64](nil)
	for _, s := range hashSet(set) {
		dec.AddHashedSymbol(s)
	}
	return session.Receive(ctx, conn, dec, wire.Uint64Codec, cfg)
}

func runSync(cmd *cobra.Command, args []string) error {
	set, err := parseSet(_config.Set)
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), _config.Timeout)
	defer cancel()
	res, err := syncWith(ctx, _config.Peer, set, _config.sessionConfig())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d coded symbols\n", res.CodedSymbols)
	fmt.Fprintf(out, "peer only:  %s\n", formatSet(sortedValues(res.Remote)))
	fmt.Fprintf(out, "local only: %s\n", formatSet(sortedValues(res.Local)))
	return nil
}
