package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yangl1996/rateless-reconcile/riblt"
	"github.com/yangl1996/rateless-reconcile/session"
	"github.com/yangl1996/rateless-reconcile/symbols"
	"github.com/yangl1996/rateless-reconcile/wire"
)

// NewServeCmd returns the command that serves a set to syncing peers
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream coded symbols of a set to every peer that connects",
		RunE:  runServe,
	}
	AddServeFlags(cmd)
	return cmd
}

// AddServeFlags adds flags to the serve command
func AddServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("listen", "l", _config.Listen, "Listen IP:Port")
	cmd.Flags().String("set", _config.Set, "Served set, e.g. 1-5,9")
	addSessionFlags(cmd)
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", _config.Timeout, "Timeout of one reconciliation")
	cmd.Flags().Int("batch-size", _config.BatchSize, "Coded symbols in the first batch")
	cmd.Flags().Int("max-batch-size", _config.MaxBatchSize, "Maximum coded symbols per batch")
	cmd.Flags().Int("max-coded-symbols", _config.MaxCodedSymbols, "Give up after this many coded symbols")
}

func hashSet(set []uint64) []riblt.HashedSymbol[symbols.Uint64] {
	res := make([]riblt.HashedSymbol[symbols.Uint64], 0, len(set))
	for _, i := range set {
		res = append(res, riblt.NewHashedSymbol(symbols.Uint64(i)))
	}
	return res
}

// serve runs a reconciliation with every connection accepted on ln until ctx
// is done.
func serve(ctx context.Context, ln net.Listener, set []uint64, cfg session.Config, timeout time.Duration) error {
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logger)
	}
	hashed := hashSet(set)
	g := errgroup.Group{}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			g.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		g.Go(func() error {
			defer conn.Close()
			log := cfg.Logger.WithField("peer", conn.RemoteAddr().String())
			enc := riblt.NewEncoder[symbols.Uint64](nil)
			for _, s := range hashed {
				enc.AddHashedSymbol(s)
			}
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			pcfg := cfg
			pcfg.Logger = log
			res, err := session.Send(cctx, conn, enc, wire.Uint64Codec, pcfg)
			if err != nil {
				log.WithError(err).Warn("reconciliation failed")
				return nil
			}
			log.WithFields(logrus.Fields{
				"coded":   res.CodedSymbols,
				"missing": formatSet(sortedValues(res.Missing)),
			}).Info("reconciled")
			return nil
		})
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	set, err := parseSet(_config.Set)
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}
	ln, err := net.Listen("tcp", _config.Listen)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"listen": ln.Addr().String(),
		"set":    len(set),
	}).Info("serving")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = serve(ctx, ln, set, _config.sessionConfig(), _config.Timeout)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
