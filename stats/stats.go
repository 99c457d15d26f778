// Package stats collects measurements of reconciliation runs.
package stats

import (
	"errors"
	"fmt"
	"sort"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/aclements/go-moremath/stats"
)

// ErrEmpty is returned when quantiles of an empty Distribution are requested.
var ErrEmpty = errors.New("empty distribution")

// RelativeAccuracy of the quantiles reported by a Distribution.
const RelativeAccuracy = 0.01

// Distribution keeps an approximate distribution of a stream of values in
// constant space. A nil *Distribution discards what is added to it and
// reports an empty distribution.
type Distribution struct {
	sketch *ddsketch.DDSketchWithExactSummaryStatistics
}

// NewDistribution returns an empty Distribution.
func NewDistribution() *Distribution {
	sketch, err := ddsketch.NewDefaultDDSketchWithExactSummaryStatistics(RelativeAccuracy)
	if err != nil {
		panic(err)
	}
	return &Distribution{sketch}
}

// Add records x.
func (d *Distribution) Add(x float64) error {
	if d == nil {
		return nil
	}
	return d.sketch.Add(x)
}

// Quantiles returns the values at quantiles q, each within RelativeAccuracy.
// It fails when nothing was added.
func (d *Distribution) Quantiles(q []float64) ([]float64, error) {
	if d.Count() == 0 {
		return nil, ErrEmpty
	}
	return d.sketch.GetValuesAtQuantiles(q)
}

// Count is the number of values added.
func (d *Distribution) Count() int {
	if d == nil {
		return 0
	}
	return int(d.sketch.GetCount())
}

// Mean is exact. It is 0 when nothing was added.
func (d *Distribution) Mean() float64 {
	if d.Count() == 0 {
		return 0
	}
	return d.sketch.GetSum() / d.sketch.GetCount()
}

// Reset drops all values.
func (d *Distribution) Reset() {
	if d == nil {
		return
	}
	d.sketch.Clear()
}

// Summary describes a sample.
type Summary struct {
	Mean, StdDev           float64
	P5, P25, P50, P75, P95 float64
}

func (s Summary) String() string {
	return fmt.Sprintf("mean %.3f stddev %.3f p5 %.3f p25 %.3f p50 %.3f p75 %.3f p95 %.3f",
		s.Mean, s.StdDev, s.P5, s.P25, s.P50, s.P75, s.P95)
}

// Moments summarizes xs. xs is not modified. An empty sample gives a zero
// Summary.
func Moments(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	s := stats.Sample{Xs: append([]float64(nil), xs...)}
	sort.Float64s(s.Xs)
	s.Sorted = true
	res := Summary{
		Mean: s.Mean(),
		P5:   s.Quantile(0.05),
		P25:  s.Quantile(0.25),
		P50:  s.Quantile(0.50),
		P75:  s.Quantile(0.75),
		P95:  s.Quantile(0.95),
	}
	if len(xs) > 1 {
		res.StdDev = s.StdDev()
	}
	return res
}
