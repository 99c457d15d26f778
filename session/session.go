// Package session runs one reconciliation between two peers over a
// bidirectional byte stream. The sending side holds an Encoder and streams
// coded symbols in growing batches; the receiving side feeds them to a
// Decoder and, once decoded, returns the symbols only it holds so that both
// peers learn the full difference.
package session

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yangl1996/rateless-reconcile/riblt"
	"github.com/yangl1996/rateless-reconcile/wire"
)

type messageType byte

const (
	msgCodedSymbols messageType = iota + 1
	msgMore
	msgDone
	msgAbort
)

func (t messageType) String() string {
	switch t {
	case msgCodedSymbols:
		return "coded-symbols"
	case msgMore:
		return "more"
	case msgDone:
		return "done"
	case msgAbort:
		return "abort"
	default:
		return fmt.Sprintf("unknown(%02x)", byte(t))
	}
}

// maxMessageSymbols bounds the number of symbols a peer may announce in a
// single message.
const maxMessageSymbols = 1 << 20

// preallocLimit caps the capacity reserved for symbols announced by the peer.
const preallocLimit = 1024

var (
	// ErrLimitExceeded is returned by both sides when the sender reaches
	// Config.MaxCodedSymbols before the receiver decodes.
	ErrLimitExceeded = errors.New("coded symbol limit exceeded")
	// ErrProtocol is returned when the peer sends something unexpected.
	ErrProtocol = errors.New("protocol violation")
)

// Config tunes a session. Out of range fields are replaced by usable values.
type Config struct {
	// BatchSize is the number of coded symbols in the first batch.
	BatchSize int
	// MaxBatchSize caps the batch size, which doubles after every batch
	// that did not finish the session.
	MaxBatchSize int
	// MaxCodedSymbols is the total number of coded symbols the sender is
	// willing to produce.
	MaxCodedSymbols int
	Logger          *logrus.Entry
}

// DefaultConfig returns the configuration used by the command line tool.
func DefaultConfig() Config {
	return Config{
		BatchSize:       16,
		MaxBatchSize:    4096,
		MaxCodedSymbols: 1 << 20,
		Logger:          logrus.NewEntry(logrus.StandardLogger()),
	}
}

func (c Config) normalize() Config {
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.MaxBatchSize < c.BatchSize {
		c.MaxBatchSize = c.BatchSize
	}
	if c.MaxBatchSize > maxMessageSymbols {
		c.MaxBatchSize = maxMessageSymbols
	}
	if c.MaxCodedSymbols < 1 {
		c.MaxCodedSymbols = DefaultConfig().MaxCodedSymbols
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return c
}

// SendResult is what Send learned from the peer.
type SendResult[T riblt.Symbol[T]] struct {
	// Missing holds the symbols only the peer has.
	Missing []riblt.HashedSymbol[T]
	// CodedSymbols is the number of coded symbols sent.
	CodedSymbols int
}

// ReceiveResult is the difference Receive decoded.
type ReceiveResult[T riblt.Symbol[T]] struct {
	// Remote holds the symbols only the peer has.
	Remote []riblt.HashedSymbol[T]
	// Local holds the symbols only this side has. They are sent to the peer.
	Local        []riblt.HashedSymbol[T]
	CodedSymbols int
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// watch applies the deadline of ctx to rw and interrupts blocked I/O when ctx
// is canceled. The returned function must be called when I/O is over. A
// failure to set a deadline is logged; the session then runs without it.
func watch(ctx context.Context, rw io.ReadWriter, logger *logrus.Entry) func() {
	d, ok := rw.(deadliner)
	if !ok {
		return func() {}
	}
	set := func(t time.Time) {
		if err := d.SetDeadline(t); err != nil {
			logger.WithError(err).Debug("cannot set connection deadline")
		}
	}
	if t, ok := ctx.Deadline(); ok {
		set(t)
	}
	stop := context.AfterFunc(ctx, func() {
		set(time.Unix(1, 0))
	})
	return func() {
		stop()
		set(time.Time{})
	}
}

// ioError reports ctx's error in place of the I/O error it caused.
func ioError(ctx context.Context, op string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%s: %w", op, cerr)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		if _, ok := ctx.Deadline(); ok {
			return fmt.Errorf("%s: %w", op, context.DeadlineExceeded)
		}
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w: %w", op, ErrProtocol, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Send streams coded symbols from enc until the peer reports that it has
// decoded, and returns the symbols the peer holds exclusively. enc must
// already contain the local set.
func Send[T wire.Symbol[T]](ctx context.Context, rw io.ReadWriter, enc *riblt.Encoder[T], codec wire.Codec[T], cfg Config) (SendResult[T], error) {
	cfg = cfg.normalize()
	defer watch(ctx, rw, cfg.Logger)()
	r := bufio.NewReader(rw)
	res := SendResult[T]{}
	batch := cfg.BatchSize
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n := batch
		if left := cfg.MaxCodedSymbols - res.CodedSymbols; n > left {
			n = left
		}
		if n == 0 {
			if _, err := rw.Write([]byte{byte(msgAbort)}); err != nil {
				return res, ioError(ctx, "send abort", err)
			}
			cfg.Logger.WithField("coded", res.CodedSymbols).Warn("giving up before the peer decoded")
			return res, ErrLimitExceeded
		}
		b := binary.AppendUvarint([]byte{byte(msgCodedSymbols)}, uint64(n))
		for i := 0; i < n; i++ {
			var err error
			if b, err = codec.AppendCodedSymbol(b, enc.ProduceNextCodedSymbol()); err != nil {
				return res, err
			}
		}
		if _, err := rw.Write(b); err != nil {
			return res, ioError(ctx, "send coded symbols", err)
		}
		res.CodedSymbols += n
		cfg.Logger.WithFields(logrus.Fields{
			"coded": res.CodedSymbols,
			"batch": n,
		}).Debug("sent coded symbols")

		t, err := r.ReadByte()
		if err != nil {
			return res, ioError(ctx, "read reply", err)
		}
		switch messageType(t) {
		case msgMore:
			batch *= 2
			if batch > cfg.MaxBatchSize {
				batch = cfg.MaxBatchSize
			}
		case msgDone:
			missing, err := readSymbols(r, codec)
			if err != nil {
				return res, ioError(ctx, "read done", err)
			}
			res.Missing = missing
			cfg.Logger.WithFields(logrus.Fields{
				"coded":   res.CodedSymbols,
				"missing": len(res.Missing),
			}).Info("peer decoded")
			return res, nil
		default:
			return res, fmt.Errorf("%w: unexpected %v message", ErrProtocol, messageType(t))
		}
	}
}

// Receive consumes coded symbols into dec until it decodes, then sends the
// peer the symbols only this side holds. dec must already contain the local
// set.
func Receive[T wire.Symbol[T]](ctx context.Context, rw io.ReadWriter, dec *riblt.Decoder[T], codec wire.Codec[T], cfg Config) (ReceiveResult[T], error) {
	cfg = cfg.normalize()
	defer watch(ctx, rw, cfg.Logger)()
	r := bufio.NewReader(rw)
	res := ReceiveResult[T]{}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		t, err := r.ReadByte()
		if err != nil {
			return res, ioError(ctx, "read message", err)
		}
		switch messageType(t) {
		case msgCodedSymbols:
		case msgAbort:
			cfg.Logger.WithField("coded", res.CodedSymbols).Warn("peer gave up")
			return res, ErrLimitExceeded
		default:
			return res, fmt.Errorf("%w: unexpected %v message", ErrProtocol, messageType(t))
		}
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return res, ioError(ctx, "read batch", err)
		}
		if n == 0 || n > maxMessageSymbols {
			return res, fmt.Errorf("%w: batch of %d coded symbols", ErrProtocol, n)
		}
		for i := uint64(0); i < n; i++ {
			cs, err := codec.ReadCodedSymbol(r)
			if err != nil {
				return res, ioError(ctx, "read batch", err)
			}
			dec.AddCodedSymbol(cs)
		}
		res.CodedSymbols += int(n)
		if err := dec.TryDecode(); err != nil {
			return res, err
		}
		if !dec.Decoded() {
			if _, err := rw.Write([]byte{byte(msgMore)}); err != nil {
				return res, ioError(ctx, "send more", err)
			}
			continue
		}

		res.Remote = dec.Remote()
		res.Local = dec.Local()
		b := binary.AppendUvarint([]byte{byte(msgDone)}, uint64(len(res.Local)))
		for _, s := range res.Local {
			if b, err = codec.AppendSymbol(b, s.Symbol); err != nil {
				return res, err
			}
		}
		if _, err := rw.Write(b); err != nil {
			return res, ioError(ctx, "send done", err)
		}
		cfg.Logger.WithFields(logrus.Fields{
			"coded":  res.CodedSymbols,
			"remote": len(res.Remote),
			"local":  len(res.Local),
		}).Info("decoded")
		return res, nil
	}
}

func readSymbols[T wire.Symbol[T]](r wire.Reader, codec wire.Codec[T]) ([]riblt.HashedSymbol[T], error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n > maxMessageSymbols {
		return nil, fmt.Errorf("%w: %d symbols", ErrProtocol, n)
	}
	res := make([]riblt.HashedSymbol[T], 0, min(n, preallocLimit))
	for i := uint64(0); i < n; i++ {
		s, err := codec.ReadSymbol(r)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}
