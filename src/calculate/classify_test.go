package calculate

import (
	"testing"
	"time"

	"volume-tracker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func f(v float64) *float64 { return &v }

func quoteAt(ts int64, bid, ask *float64) models.MQuote {
	return models.MQuote{Timestamp: ts, Bid: bid, Ask: ask}
}

func tradeAt(ts int64, price float64, size *float64) models.MTrade {
	return models.MTrade{Timestamp: ts, Price: price, Size: size}
}

// -----------------------------------------------------------------------------

func TestClassifyTradeAtMidpoint(t *testing.T) {
	// Bid 9 / ask 11 gives mid 10; a trade exactly at 10 moves nothing
	quotes := []models.MQuote{quoteAt(100, f(9), f(11))}
	trades := []models.MTrade{tradeAt(200, 10, f(5))}

	volume, outgoing := Classify(quotes, trades, nil)

	assert.Equal(t, 0.0, volume)
	require.NotNil(t, outgoing)
	assert.Equal(t, 10.0, *outgoing)
}

// -----------------------------------------------------------------------------

func TestClassifyBuysAndSells(t *testing.T) {
	quotes := []models.MQuote{quoteAt(100, f(9.5), f(10.5))}
	trades := []models.MTrade{
		tradeAt(200, 10.5, f(3)), // above mid 10
		tradeAt(300, 9.0, f(2)),  // below mid 10
	}

	volume, _ := Classify(quotes, trades, nil)

	assert.Equal(t, 1.0, volume)
}

// -----------------------------------------------------------------------------

func TestClassifySizelessTradeSkipped(t *testing.T) {
	quotes := []models.MQuote{quoteAt(100, f(9), f(11))}
	trades := []models.MTrade{
		tradeAt(200, 12, nil),
		tradeAt(300, 12, f(4)),
	}

	volume, _ := Classify(quotes, trades, nil)

	assert.Equal(t, 4.0, volume)
}

// -----------------------------------------------------------------------------

func TestClassifyNoMidpointYet(t *testing.T) {
	// No quote and no carried midpoint: the trade cannot be classified
	trades := []models.MTrade{tradeAt(200, 12, f(4))}

	volume, outgoing := Classify(nil, trades, nil)

	assert.Equal(t, 0.0, volume)
	assert.Nil(t, outgoing)
}

// -----------------------------------------------------------------------------

func TestClassifyCarriedMidpointUsed(t *testing.T) {
	trades := []models.MTrade{tradeAt(200, 12, f(4))}

	volume, outgoing := Classify(nil, trades, f(10))

	assert.Equal(t, 4.0, volume)
	require.NotNil(t, outgoing)
	assert.Equal(t, 10.0, *outgoing, "quote-less minute carries the incoming midpoint out")
}

// -----------------------------------------------------------------------------

func TestClassifyOneSidedQuoteDoesNotMoveMid(t *testing.T) {
	quotes := []models.MQuote{
		quoteAt(100, f(9), f(11)),
		quoteAt(150, f(50), nil), // one-sided, consumed but ignored
	}
	trades := []models.MTrade{tradeAt(200, 11, f(2))}

	volume, outgoing := Classify(quotes, trades, nil)

	assert.Equal(t, 2.0, volume, "classified against mid 10, not the one-sided bid")
	require.NotNil(t, outgoing)
	assert.Equal(t, 10.0, *outgoing, "outgoing mid comes from the last two-sided quote")
}

// -----------------------------------------------------------------------------

func TestClassifyQuoteOrderingAdvance(t *testing.T) {
	// The reference mid follows the most recent quote at or before each trade
	quotes := []models.MQuote{
		quoteAt(100, f(9), f(11)),  // mid 10
		quoteAt(300, f(19), f(21)), // mid 20
	}
	trades := []models.MTrade{
		tradeAt(200, 15, f(1)), // vs mid 10: buy
		tradeAt(400, 15, f(1)), // vs mid 20: sell
	}

	volume, outgoing := Classify(quotes, trades, nil)

	assert.Equal(t, 0.0, volume)
	require.NotNil(t, outgoing)
	assert.Equal(t, 20.0, *outgoing)
}

// -----------------------------------------------------------------------------

func TestLastPrice(t *testing.T) {
	assert.Nil(t, LastPrice(nil))

	trades := []models.MTrade{
		tradeAt(100, 10, f(1)),
		tradeAt(200, 11, nil), // size-less trades still carry the last price
	}
	last := LastPrice(trades)
	require.NotNil(t, last)
	assert.Equal(t, 11.0, *last)
}

// -----------------------------------------------------------------------------

func TestSlope(t *testing.T) {
	assert.Equal(t, 1, Slope(123.4))
	assert.Equal(t, -1, Slope(-0.5))
	assert.Equal(t, 0, Slope(0))
}

// -----------------------------------------------------------------------------

func TestWeightedVolume(t *testing.T) {
	minute := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)
	weights := map[string]float64{"AAA": 0.6, "BBB": 0.4}
	values := map[string]models.MMinute{
		"AAA": {Time: minute, Symbol: "AAA", Volume: 100},
		"BBB": {Time: minute, Symbol: "BBB", Volume: 50},
	}

	assert.InDelta(t, 80.0, WeightedVolume(weights, values), 1e-12)
}
