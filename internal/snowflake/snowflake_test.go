package snowflake_test

import (
	"testing"
	"time"

	"tickerbot/internal/snowflake"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  snowflake.ID
	}{
		{name: "empty string", input: "", want: 0},
		{name: "malformed", input: "not-a-number", want: 0},
		{name: "negative", input: "-5", want: 0},
		{name: "small id", input: "1024", want: 1024},
		{name: "real discord id", input: "1089935813845381571", want: 1089935813845381571},
		{name: "beyond float53 range", input: "9007199254740993", want: 9007199254740993},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := snowflake.Parse(tt.input); got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestOrderingIsNumericNotLexical(t *testing.T) {
	t.Parallel()

	// "99..." sorts after "100..." lexically but before it numerically.
	shorter := snowflake.Parse("999999999999999999")
	longer := snowflake.Parse("1000000000000000000")

	if !shorter.Less(longer) {
		t.Errorf("expected %s < %s numerically", shorter, longer)
	}
}

func TestFromTimeRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	id := snowflake.FromTime(ts)

	if got := id.Time(); !got.Equal(ts) {
		t.Errorf("Time() = %v, want %v", got, ts)
	}
}

func TestFromTimeIsLowerBound(t *testing.T) {
	t.Parallel()

	cutoff := time.Date(2023, 3, 27, 0, 0, 0, 0, time.UTC)
	bound := snowflake.FromTime(cutoff)

	// A real ID created about two days after the cutoff.
	later := snowflake.Parse("1089935813845381571")
	if !bound.Less(later) {
		t.Fatalf("synthetic bound %d must precede id %d created after the cutoff", bound, later)
	}

	// An ID created before the cutoff must precede the bound.
	earlier := snowflake.FromTime(cutoff.Add(-24 * time.Hour))
	if !earlier.Less(bound) {
		t.Fatalf("id %d created before the cutoff must precede bound %d", earlier, bound)
	}
}

func TestFromTimeBeforeEpochClampsToZero(t *testing.T) {
	t.Parallel()

	id := snowflake.FromTime(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
	if id != 0 {
		t.Errorf("pre-epoch time should clamp to zero, got %d", id)
	}
}

func TestStringZero(t *testing.T) {
	t.Parallel()

	if got := snowflake.ID(0).String(); got != "" {
		t.Errorf("zero ID String() = %q, want empty", got)
	}
	if got := snowflake.ID(42).String(); got != "42" {
		t.Errorf("String() = %q, want %q", got, "42")
	}
}
