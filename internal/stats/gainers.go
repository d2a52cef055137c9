package stats

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"tickerbot/internal/market"
)

// defaultFanOut bounds concurrent price lookups so a ranking batch does
// not overwhelm the upstream API.
const defaultFanOut = 4

// SeriesSource supplies price history. internal/market implements it;
// tests use fakes.
type SeriesSource interface {
	Series(ctx context.Context, symbol string, since time.Time) (*market.Series, error)
}

// BasisMode selects the reference point for the basis price.
type BasisMode int

const (
	// BasisMonthStart anchors at the start of the month the ticker was
	// first mentioned in.
	BasisMonthStart BasisMode = iota
	// BasisMention anchors at the first-mention time itself.
	BasisMention
)

// PriceMode selects which bar price the basis uses.
type PriceMode int

const (
	PriceClose PriceMode = iota
	PriceOpen
)

// Candidate pairs a symbol with its reference timestamp, typically the
// first mention from AggregateTickers.
type Candidate struct {
	Symbol string
	Ref    time.Time
}

// Gain is one ranked result.
type Gain struct {
	Symbol  string
	Basis   float64
	Latest  float64
	Percent float64
	Anchor  time.Time
}

// GainerOptions configures ComputeGainers.
type GainerOptions struct {
	Basis  BasisMode
	Price  PriceMode
	FanOut int
	Logger *slog.Logger
}

// ComputeGainers fetches a price series per candidate, computes the
// percentage change from the basis price at the anchor point to the
// latest price, and returns the results ranked descending. Lookups run
// with a bounded fan-out; a failed or unusable symbol is skipped, never
// failing the batch, so the result may rank fewer symbols than were
// asked for.
func ComputeGainers(ctx context.Context, src SeriesSource, candidates []Candidate, opts GainerOptions) []Gain {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fanOut := opts.FanOut
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}

	results := make([]*Gain, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, cand := range candidates {
		g.Go(func() error {
			anchor := anchorFor(cand.Ref, opts.Basis)
			series, err := src.Series(gCtx, cand.Symbol, anchor)
			if err != nil {
				// Per-symbol failure degrades the ranking, nothing more.
				log.Warn("price lookup failed, excluding symbol",
					"symbol", cand.Symbol, "error", err)
				return nil
			}
			if gain := gainFrom(series, cand.Symbol, anchor, opts.Price); gain != nil {
				results[i] = gain
			}
			return nil
		})
	}
	// Workers only ever return nil; Wait is a drain barrier.
	_ = g.Wait()

	ranked := make([]Gain, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			ranked = append(ranked, *r)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Percent > ranked[j].Percent })
	return ranked
}

func anchorFor(ref time.Time, mode BasisMode) time.Time {
	if mode == BasisMonthStart {
		r := ref.UTC()
		return time.Date(r.Year(), r.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return ref
}

// gainFrom picks the basis price at the first bar at-or-after anchor
// and computes the percentage change to the latest price. Returns nil
// when the series has no usable basis or the change is not finite.
func gainFrom(series *market.Series, symbol string, anchor time.Time, mode PriceMode) *Gain {
	basisIdx := -1
	for i := 0; i < series.Len(); i++ {
		if !series.Timestamps[i].Before(anchor) {
			basisIdx = i
			break
		}
	}
	if basisIdx < 0 {
		// Whole series predates the anchor; use the last bar.
		basisIdx = series.Len() - 1
	}
	if basisIdx < 0 {
		return nil
	}

	basis := series.CloseAt(basisIdx)
	if mode == PriceOpen {
		basis = series.OpenAt(basisIdx)
	}
	latest := series.Latest()

	if math.IsNaN(basis) || math.IsNaN(latest) || basis <= 0 {
		return nil
	}
	pct := (latest - basis) / basis * 100
	if math.IsInf(pct, 0) || math.IsNaN(pct) {
		return nil
	}
	return &Gain{Symbol: symbol, Basis: basis, Latest: latest, Percent: pct, Anchor: anchor}
}
