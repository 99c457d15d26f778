package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yangl1996/rateless-reconcile/riblt"
)

// ErrInvalidConfig is returned by SimulatePair for a link it cannot simulate.
var ErrInvalidConfig = errors.New("invalid simulation config")

// PairConfig describes the link between the two nodes of SimulatePair.
type PairConfig struct {
	// Delay is the one-way propagation delay of the link.
	Delay time.Duration
	// Rate is the link bandwidth in coded symbols per second.
	Rate float64
	// MaxCodedSymbols is the number of coded symbols after which the
	// encoder gives up. Zero means 1<<20.
	MaxCodedSymbols int
	Logger          *logrus.Entry
}

// PairResult reports how a simulated reconciliation went.
type PairResult struct {
	// Decoded reports whether the decoder recovered the difference.
	Decoded bool
	// DecodeTime is when the decoder finished.
	DecodeTime time.Duration
	// CompletionTime is when the encoder learned that the decoder finished.
	CompletionTime time.Duration
	// Sent counts coded symbols put on the link, including those in flight
	// when the acknowledgment arrived.
	Sent int
	// Used counts coded symbols the decoder consumed.
	Used int
	// Remote and Local are the sizes of the two sides of the difference.
	Remote, Local int
}

type tick struct{}

type codedSymbol[T riblt.Symbol[T]] struct {
	riblt.CodedSymbol[T]
}

type decodedAck struct{}

// decodeFailed tells the encoder that the decoder gave up on an inconsistent
// state.
type decodeFailed struct{}

type encoderNode[T riblt.Symbol[T]] struct {
	enc      *riblt.Encoder[T]
	peer     Node
	interval time.Duration
	delay    time.Duration
	limit    int
	stopped  bool
	res      *PairResult
}

func (n *encoderNode[T]) HandleMessage(payload any, from Node, at time.Duration) []Message {
	switch payload.(type) {
	case tick:
		if n.stopped || n.res.Sent >= n.limit {
			return nil
		}
		n.res.Sent += 1
		// a coded symbol reaches the peer after its transmission time and the
		// propagation delay
		return []Message{
			{codedSymbol[T]{n.enc.ProduceNextCodedSymbol()}, n.peer, n.interval + n.delay},
			{tick{}, nil, n.interval},
		}
	case decodedAck:
		n.stopped = true
		n.res.CompletionTime = at
	case decodeFailed:
		n.stopped = true
	default:
		panic(fmt.Sprintf("encoder received unknown message %T", payload))
	}
	return nil
}

type decoderNode[T riblt.Symbol[T]] struct {
	dec    *riblt.Decoder[T]
	delay  time.Duration
	done   bool
	err    error
	res    *PairResult
	logger *logrus.Entry
}

func (n *decoderNode[T]) HandleMessage(payload any, from Node, at time.Duration) []Message {
	m, ok := payload.(codedSymbol[T])
	if !ok {
		panic(fmt.Sprintf("decoder received unknown message %T", payload))
	}
	if n.done {
		return nil
	}
	n.dec.AddCodedSymbol(m.CodedSymbol)
	if err := n.dec.TryDecode(); err != nil {
		n.err = err
		n.done = true
		n.logger.WithError(err).WithField("time", at).Warn("decoding failed")
		return []Message{{decodeFailed{}, from, n.delay}}
	}
	if !n.dec.Decoded() {
		return nil
	}
	n.done = true
	n.res.Decoded = true
	n.res.DecodeTime = at
	n.res.Used = n.dec.CodedSymbols()
	n.res.Remote = len(n.dec.Remote())
	n.res.Local = len(n.dec.Local())
	n.logger.WithFields(logrus.Fields{
		"time":   at,
		"coded":  n.res.Used,
		"remote": n.res.Remote,
		"local":  n.res.Local,
	}).Debug("decoded")
	return []Message{{decodedAck{}, from, n.delay}}
}

// SimulatePair runs one reconciliation from enc to dec over a link described
// by cfg. Both must already hold their sets. The encoder transmits back to
// back from time zero until it receives the decoder's acknowledgment.
func SimulatePair[T riblt.Symbol[T]](enc *riblt.Encoder[T], dec *riblt.Decoder[T], cfg PairConfig) (PairResult, error) {
	if cfg.Rate <= 0 {
		return PairResult{}, fmt.Errorf("%w: rate %v", ErrInvalidConfig, cfg.Rate)
	}
	if cfg.Delay < 0 {
		return PairResult{}, fmt.Errorf("%w: delay %v", ErrInvalidConfig, cfg.Delay)
	}
	if cfg.MaxCodedSymbols <= 0 {
		cfg.MaxCodedSymbols = 1 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	res := &PairResult{}
	d := &decoderNode[T]{dec: dec, delay: cfg.Delay, res: res, logger: cfg.Logger}
	e := &encoderNode[T]{
		enc:      enc,
		peer:     d,
		interval: time.Duration(float64(time.Second) / cfg.Rate),
		delay:    cfg.Delay,
		limit:    cfg.MaxCodedSymbols,
		res:      res,
	}
	s := &Simulator{}
	s.ScheduleMessage(Message{tick{}, nil, 0}, e)
	s.Run()
	if d.err != nil {
		return *res, d.err
	}
	return *res, nil
}
