package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundToCents(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"exact cents unchanged", 10.50, 10.50},
		{"rounds up", 10.555, 10.56},
		{"rounds down", 10.554, 10.55},
		{"negative rounds toward even dollar", -3.335, -3.33},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, RoundToCents(tt.input), 0.0001)
		})
	}
}

func TestCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(1000), Cents(10.00))
	assert.Equal(t, int64(334), Cents(3.335))
	assert.Equal(t, int64(-250), Cents(-2.50))
	assert.InDelta(t, 3.34, Dollars(334), 0.0001)
}

func TestSplitCents(t *testing.T) {
	t.Run("even split", func(t *testing.T) {
		shares := SplitCents(1000, 4)
		assert.Equal(t, []int64{250, 250, 250, 250}, shares)
	})

	t.Run("remainder goes to first slots", func(t *testing.T) {
		shares := SplitCents(1000, 3)
		assert.Equal(t, []int64{334, 333, 333}, shares)
	})

	t.Run("total smaller than slot count", func(t *testing.T) {
		shares := SplitCents(2, 3)
		assert.Equal(t, []int64{1, 1, 0}, shares)
	})

	t.Run("negative total", func(t *testing.T) {
		shares := SplitCents(-1000, 3)
		assert.Equal(t, []int64{-334, -333, -333}, shares)
	})

	t.Run("zero slots returns nil", func(t *testing.T) {
		assert.Nil(t, SplitCents(1000, 0))
	})

	t.Run("shares always sum to total", func(t *testing.T) {
		for _, total := range []int64{1, 99, 100, 12345, -777} {
			for n := 1; n <= 7; n++ {
				shares := SplitCents(total, n)
				require.Len(t, shares, n)
				var sum int64
				for _, s := range shares {
					sum += s
				}
				assert.Equal(t, total, sum, "total=%d n=%d", total, n)
			}
		}
	})
}

func TestMeterReadingCCF(t *testing.T) {
	t.Run("gallons converted", func(t *testing.T) {
		r := MeterReading{UnitID: "u1", Reading: 7480, Unit: ReadingGallons}
		assert.InDelta(t, 10.0, r.CCF(), 0.0001)
	})

	t.Run("ccf passed through", func(t *testing.T) {
		r := MeterReading{UnitID: "u1", Reading: 4.5, Unit: ReadingCCF}
		assert.InDelta(t, 4.5, r.CCF(), 0.0001)
	})

	t.Run("default unit is ccf", func(t *testing.T) {
		r := MeterReading{UnitID: "u1", Reading: 4.5}
		assert.InDelta(t, 4.5, r.CCF(), 0.0001)
	})
}
