package buybox

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rating(v float64) *float64 {
	return &v
}

// Helper to create a plain offer with the given listing and shipping price
func makeOffer(seller, listing, shipping string) Offer {
	return Offer{
		SellerID:     seller,
		ListingPrice: price(listing),
		ShippingCost: price(shipping),
		Availability: AvailabilityUnknown,
	}
}

func TestOffer_TotalPrice(t *testing.T) {
	o := makeOffer("S1", "28.50", "4.99")
	assert.True(t, o.TotalPrice().Equal(price("33.49")))

	o = makeOffer("S2", "0.10", "0.20")
	assert.True(t, o.TotalPrice().Equal(price("0.30")), "decimal sums must be exact")
}

func TestAnalyze_LowestTotalPriceScenario(t *testing.T) {
	winner := makeOffer("WIN", "29.99", "0.00")
	winner.IsBuyBoxWinner = true

	offers := []Offer{
		winner,
		makeOffer("S2", "28.50", "4.99"),
		makeOffer("S3", "31.00", "0.00"),
	}

	a := NewAnalyzerWithClock(func() time.Time { return fixedNow })
	result := a.Analyze(offers, "B000TEST01", "Test Product")

	require.NotNil(t, result.Winner)
	assert.Equal(t, "WIN", result.Winner.SellerID)
	assert.True(t, result.Winner.TotalPrice.Equal(price("29.99")))
	assert.Equal(t, 3, result.TotalOffers)
	assert.Equal(t, fixedNow, result.AnalyzedAt)
	assert.Empty(t, result.Error)
	require.NotEmpty(t, result.Reasons)
	assert.Equal(t, "Lowest total price ($29.99)", result.Reasons[0])
}

func TestAnalyze_NoWinner(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		name   string
		offers []Offer
	}{
		{name: "empty offer list", offers: nil},
		{name: "no flagged offer", offers: []Offer{makeOffer("S1", "10.00", "0"), makeOffer("S2", "11.00", "0")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Analyze(tt.offers, "B000TEST01", "Title")
			assert.Nil(t, result.Winner)
			assert.Equal(t, []string{NoWinnerReason}, result.Reasons)
			assert.Equal(t, len(tt.offers), result.TotalOffers)
			assert.False(t, result.HasError())
		})
	}
}

func TestAnalyze_MultipleWinnersPicksFirst(t *testing.T) {
	first := makeOffer("FIRST", "20.00", "0")
	first.IsBuyBoxWinner = true
	second := makeOffer("SECOND", "19.00", "0")
	second.IsBuyBoxWinner = true

	result := NewAnalyzer().Analyze([]Offer{makeOffer("S0", "25.00", "0"), first, second}, "B000TEST01", "Title")

	require.NotNil(t, result.Winner)
	assert.Equal(t, "FIRST", result.Winner.SellerID)
}

func TestFailed(t *testing.T) {
	a := NewAnalyzerWithClock(func() time.Time { return fixedNow })
	result := a.Failed("B000TEST01", "Unknown", "boom")

	assert.True(t, result.HasError())
	assert.Nil(t, result.Winner)
	assert.Empty(t, result.Reasons)
	assert.Equal(t, 0, result.TotalOffers)
	assert.Equal(t, "Unknown", result.ProductName)
}

func TestDetermineReasons_Price(t *testing.T) {
	tests := []struct {
		name     string
		winner   string
		others   []string
		expected string
	}{
		{name: "equal to lowest", winner: "10.00", others: []string{"10.00", "12.00"}, expected: "Lowest total price ($10.00)"},
		{name: "exactly 2 percent above", winner: "10.20", others: []string{"10.00"}, expected: "Competitive price within 2% of lowest ($10.20)"},
		{name: "just over 2 percent", winner: "10.21", others: []string{"10.00"}, expected: ""},
		{name: "lowest is zero", winner: "0.01", others: []string{"0.00"}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner := makeOffer("W", tt.winner, "0")
			winner.IsBuyBoxWinner = true
			all := []Offer{winner}
			for i, p := range tt.others {
				all = append(all, makeOffer(string(rune('A'+i)), p, "0"))
			}

			reasons := DetermineReasons(winner, all)
			if tt.expected == "" {
				assert.Equal(t, []string{FallbackReason}, reasons)
				return
			}
			assert.Equal(t, tt.expected, reasons[0])
		})
	}
}

func TestDetermineReasons_Rating(t *testing.T) {
	tests := []struct {
		name     string
		rating   *float64
		expected []string
	}{
		{name: "excellent", rating: rating(98), expected: []string{"Excellent seller rating (98%)"}},
		{name: "excellent boundary", rating: rating(95), expected: []string{"Excellent seller rating (95%)"}},
		{name: "good", rating: rating(92), expected: []string{"Good seller rating (92%)"}},
		{name: "good boundary", rating: rating(90), expected: []string{"Good seller rating (90%)"}},
		{name: "below good", rating: rating(89.9), expected: []string{FallbackReason}},
		{name: "absent", rating: nil, expected: []string{FallbackReason}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Two offers with different prices so the winner gets no price reason
			winner := makeOffer("W", "50.00", "0")
			winner.SellerRating = tt.rating
			other := makeOffer("O", "10.00", "0")

			assert.Equal(t, tt.expected, DetermineReasons(winner, []Offer{winner, other}))
		})
	}
}

func TestDetermineReasons_FeedbackVolume(t *testing.T) {
	tests := []struct {
		count    int
		expected string
	}{
		{count: 12345, expected: "High feedback volume (12,345 ratings)"},
		{count: 10000, expected: "High feedback volume (10,000 ratings)"},
		{count: 9999, expected: "Strong feedback volume (9,999 ratings)"},
		{count: 1000, expected: "Strong feedback volume (1,000 ratings)"},
		{count: 999, expected: FallbackReason},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			winner := makeOffer("W", "50.00", "0")
			winner.FeedbackCount = tt.count
			other := makeOffer("O", "10.00", "0")

			assert.Equal(t, []string{tt.expected}, DetermineReasons(winner, []Offer{winner, other}))
		})
	}
}

func TestDetermineReasons_Shipping(t *testing.T) {
	tests := []struct {
		hours    int
		expected string
	}{
		{hours: 24, expected: "Fast shipping (24h max)"},
		{hours: 48, expected: "Fast shipping (48h max)"},
		{hours: 49, expected: FallbackReason},
		{hours: 0, expected: FallbackReason},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			winner := makeOffer("W", "50.00", "0")
			winner.MaxShippingHours = tt.hours
			other := makeOffer("O", "10.00", "0")

			assert.Equal(t, []string{tt.expected}, DetermineReasons(winner, []Offer{winner, other}))
		})
	}
}

func TestDetermineReasons_FullOrder(t *testing.T) {
	winner := Offer{
		SellerID:         "W",
		ListingPrice:     price("29.99"),
		ShippingCost:     price("0"),
		IsBuyBoxWinner:   true,
		IsFBA:            true,
		IsPrime:          true,
		SellerRating:     rating(97),
		FeedbackCount:    25000,
		Availability:     AvailabilityNow,
		MaxShippingHours: 24,
	}
	all := []Offer{winner, makeOffer("O", "35.00", "0")}

	expected := []string{
		"Lowest total price ($29.99)",
		"Fulfilled by Amazon (FBA)",
		"Prime eligible",
		"Excellent seller rating (97%)",
		"High feedback volume (25,000 ratings)",
		"In stock and ready to ship",
		"Fast shipping (24h max)",
	}

	first := DetermineReasons(winner, all)
	assert.Equal(t, expected, first)

	// Same input yields the same ordered output
	assert.Equal(t, first, DetermineReasons(winner, all))
}

func TestDetermineReasons_AvailabilityMustBeExact(t *testing.T) {
	winner := makeOffer("W", "50.00", "0")
	winner.Availability = AvailabilityFutureWithDate
	other := makeOffer("O", "10.00", "0")

	assert.Equal(t, []string{FallbackReason}, DetermineReasons(winner, []Offer{winner, other}))
}
