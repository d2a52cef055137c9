package stats_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"tickerbot/internal/market"
	"tickerbot/internal/stats"
)

// fakeSource serves canned series and records concurrency.
type fakeSource struct {
	mu       sync.Mutex
	series   map[string]*market.Series
	inFlight int
	maxSeen  int
}

func (f *fakeSource) Series(_ context.Context, symbol string, _ time.Time) (*market.Series, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond) // widen the overlap window

	f.mu.Lock()
	f.inFlight--
	s, ok := f.series[symbol]
	f.mu.Unlock()

	if !ok {
		return nil, errors.New("lookup failed")
	}
	return s, nil
}

func flatSeries(start time.Time, prices ...float64) *market.Series {
	s := &market.Series{LastPrice: prices[len(prices)-1]}
	for i, p := range prices {
		s.Timestamps = append(s.Timestamps, start.AddDate(0, 0, i))
		s.Opens = append(s.Opens, p)
		s.Closes = append(s.Closes, p)
	}
	return s
}

func TestComputeGainersRanksDescending(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{series: map[string]*market.Series{
		"TSLA": flatSeries(anchor, 100, 150), // +50%
		"AAPL": flatSeries(anchor, 100, 110), // +10%
		"MSFT": flatSeries(anchor, 100, 80),  // -20%
	}}

	gains := stats.ComputeGainers(context.Background(), src, []stats.Candidate{
		{Symbol: "AAPL", Ref: anchor},
		{Symbol: "MSFT", Ref: anchor},
		{Symbol: "TSLA", Ref: anchor},
	}, stats.GainerOptions{})

	if len(gains) != 3 {
		t.Fatalf("got %d gains, want 3", len(gains))
	}
	want := []string{"TSLA", "AAPL", "MSFT"}
	for i, sym := range want {
		if gains[i].Symbol != sym {
			t.Errorf("rank %d = %s, want %s", i, gains[i].Symbol, sym)
		}
	}
	if math.Abs(gains[0].Percent-50) > 1e-9 {
		t.Errorf("TSLA percent = %v, want 50", gains[0].Percent)
	}
}

func TestComputeGainersToleratesPartialFailure(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{series: map[string]*market.Series{
		"TSLA": flatSeries(anchor, 100, 120),
		"AAPL": flatSeries(anchor, 100, 105),
		"MSFT": flatSeries(anchor, 100, 101),
		// GME and AMC are absent: their lookups fail.
	}}

	gains := stats.ComputeGainers(context.Background(), src, []stats.Candidate{
		{Symbol: "TSLA", Ref: anchor},
		{Symbol: "GME", Ref: anchor},
		{Symbol: "AAPL", Ref: anchor},
		{Symbol: "AMC", Ref: anchor},
		{Symbol: "MSFT", Ref: anchor},
	}, stats.GainerOptions{})

	if len(gains) != 3 {
		t.Fatalf("got %d gains, want exactly the 3 resolvable symbols", len(gains))
	}
	for i := 1; i < len(gains); i++ {
		if gains[i].Percent > gains[i-1].Percent {
			t.Fatalf("ranking not descending at %d: %+v", i, gains)
		}
	}
}

func TestComputeGainersBoundsFanOut(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	series := map[string]*market.Series{}
	candidates := make([]stats.Candidate, 12)
	symbols := []string{"AA", "BB", "CC", "DD", "EE", "FF", "GG", "HH", "II", "JJ", "KK", "LL"}
	for i, sym := range symbols {
		series[sym] = flatSeries(anchor, 100, 110)
		candidates[i] = stats.Candidate{Symbol: sym, Ref: anchor}
	}
	src := &fakeSource{series: series}

	stats.ComputeGainers(context.Background(), src, candidates, stats.GainerOptions{FanOut: 3})

	if src.maxSeen > 3 {
		t.Fatalf("observed %d concurrent lookups, limit is 3", src.maxSeen)
	}
}

func TestComputeGainersSkipsNonFiniteChanges(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	zeroBasis := flatSeries(anchor, 0, 100)
	nanSeries := &market.Series{
		Timestamps: []time.Time{anchor},
		Opens:      []float64{math.NaN()},
		Closes:     []float64{math.NaN()},
		LastPrice:  math.NaN(),
	}
	src := &fakeSource{series: map[string]*market.Series{
		"ZERO": zeroBasis,
		"NAN":  nanSeries,
		"OK":   flatSeries(anchor, 100, 110),
	}}

	gains := stats.ComputeGainers(context.Background(), src, []stats.Candidate{
		{Symbol: "ZERO", Ref: anchor},
		{Symbol: "NAN", Ref: anchor},
		{Symbol: "OK", Ref: anchor},
	}, stats.GainerOptions{})

	if len(gains) != 1 || gains[0].Symbol != "OK" {
		t.Fatalf("gains = %+v, want only OK", gains)
	}
}

func TestBasisModeMonthStart(t *testing.T) {
	t.Parallel()

	// Series starts May 1st; mention is May 20th. Month-start basis
	// must use the May 1st bar, mention basis the May 20th bar.
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, 31)
	for i := range prices {
		prices[i] = 100 + float64(i) // rises 1/day
	}
	src := &fakeSource{series: map[string]*market.Series{
		"TSLA": flatSeries(start, prices...),
	}}
	mention := time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)
	cands := []stats.Candidate{{Symbol: "TSLA", Ref: mention}}

	monthly := stats.ComputeGainers(context.Background(), src, cands,
		stats.GainerOptions{Basis: stats.BasisMonthStart})
	if len(monthly) != 1 || monthly[0].Basis != 100 {
		t.Fatalf("month-start basis = %+v, want basis 100", monthly)
	}

	mentionAnchored := stats.ComputeGainers(context.Background(), src, cands,
		stats.GainerOptions{Basis: stats.BasisMention})
	// First bar at-or-after May 20th 15:30 is May 21st (bars are
	// midnight-stamped), price 120.
	if len(mentionAnchored) != 1 || mentionAnchored[0].Basis != 120 {
		t.Fatalf("mention basis = %+v, want basis 120", mentionAnchored)
	}
}
