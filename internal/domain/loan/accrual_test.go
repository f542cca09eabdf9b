package loan

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccrueInterest(t *testing.T) {
	assert.Equal(t, "12.00", AccrueInterest(dec("1200"), dec("0.01")).StringFixed(2))
	// 1.0554 rounds half-up to 1.06
	assert.Equal(t, "1.06", AccrueInterest(dec("105.54"), dec("0.01")).StringFixed(2))
	assert.True(t, AccrueInterest(decimal.Zero, dec("0.01")).IsZero())
	assert.True(t, AccrueInterest(dec("500"), decimal.Zero).IsZero())
}

func TestProratedRate(t *testing.T) {
	rate := dec("0.01")

	full := ProratedRate(rate, FrequencyMonthly, day("2025-07-01"), day("2025-08-01"))
	assert.True(t, full.Equal(rate), "full period should equal the periodic rate, got %s", full)

	half := ProratedRate(rate, FrequencyMonthly, day("2025-07-01"), day("2025-07-16"))
	assert.True(t, half.GreaterThan(decimal.Zero))
	assert.True(t, half.LessThan(rate))
	assert.Equal(t, "0.0048262854", half.String())

	assert.True(t, ProratedRate(rate, FrequencyMonthly, day("2025-07-01"), day("2025-07-01")).IsZero())
	assert.True(t, ProratedRate(rate, FrequencyMonthly, day("2025-07-10"), day("2025-07-01")).IsZero())
	assert.True(t, ProratedRate(decimal.Zero, FrequencyMonthly, day("2025-07-01"), day("2025-07-20")).IsZero())
}
