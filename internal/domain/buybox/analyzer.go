// Package buybox selects the Buy Box winning offer for an ASIN and explains
// why it won.
//
// Example usage:
//
//	a := buybox.NewAnalyzer()
//	result := a.Analyze(offers, "B08N5WRWNW", "Echo Dot")
//	for _, reason := range result.Reasons {
//		fmt.Println(reason)
//	}
package buybox

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// NoWinnerReason is the only reason given when no offer holds the Buy Box
const NoWinnerReason = "No Buy Box winner found"

// FallbackReason is used when the winner matches none of the known criteria
const FallbackReason = "Buy Box winner by Amazon algorithm"

// competitiveFactor bounds "within 2% of lowest", inclusive
var competitiveFactor = decimal.RequireFromString("1.02")

// Thresholds used by DetermineReasons. Boundaries are inclusive.
const (
	excellentRating        = 95.0
	goodRating             = 90.0
	highFeedbackVolume     = 10000
	strongFeedbackVolume   = 1000
	fastShippingHoursLimit = 48
)

// Analyzer ranks offers for a single ASIN
type Analyzer struct {
	now func() time.Time
}

// NewAnalyzer creates an analyzer stamping results with the wall clock
func NewAnalyzer() *Analyzer {
	return &Analyzer{now: time.Now}
}

// NewAnalyzerWithClock creates an analyzer with a fixed time source
func NewAnalyzerWithClock(now func() time.Time) *Analyzer {
	return &Analyzer{now: now}
}

// Analyze picks the Buy Box winner from offers and builds the result.
// If more than one offer is flagged as winner, the first one in input order
// is used.
func (a *Analyzer) Analyze(offers []Offer, asin, title string) Result {
	result := Result{
		ASIN:        asin,
		ProductName: title,
		TotalOffers: len(offers),
		AnalyzedAt:  a.now(),
	}

	winner, ok := FindWinner(offers)
	if !ok {
		result.Reasons = []string{NoWinnerReason}
		return result
	}

	result.Winner = &Winner{
		SellerID:     winner.SellerID,
		Price:        winner.ListingPrice,
		Shipping:     winner.ShippingCost,
		TotalPrice:   winner.TotalPrice(),
		IsFBA:        winner.IsFBA,
		IsPrime:      winner.IsPrime,
		SellerRating: winner.SellerRating,
	}
	result.Reasons = DetermineReasons(winner, offers)
	return result
}

// Failed builds the error-shaped result for an ASIN whose data could not be
// fetched. No analysis is performed.
func (a *Analyzer) Failed(asin, title, errMsg string) Result {
	return Result{
		ASIN:        asin,
		ProductName: title,
		Reasons:     []string{},
		AnalyzedAt:  a.now(),
		Error:       errMsg,
	}
}

// FindWinner returns the first offer flagged as Buy Box winner
func FindWinner(offers []Offer) (Offer, bool) {
	for _, o := range offers {
		if o.IsBuyBoxWinner {
			return o, true
		}
	}
	return Offer{}, false
}

// DetermineReasons explains why winner holds the Buy Box.
// Reasons are always produced in this order: price, FBA, Prime, seller
// rating, feedback volume, availability, shipping speed.
func DetermineReasons(winner Offer, all []Offer) []string {
	var reasons []string
	total := winner.TotalPrice()

	if minTotal, ok := lowestTotal(all); ok {
		if total.Equal(minTotal) {
			reasons = append(reasons, fmt.Sprintf("Lowest total price ($%s)", total.StringFixed(2)))
		} else if minTotal.IsPositive() && total.LessThanOrEqual(minTotal.Mul(competitiveFactor)) {
			reasons = append(reasons, fmt.Sprintf("Competitive price within 2%% of lowest ($%s)", total.StringFixed(2)))
		}
	}

	if winner.IsFBA {
		reasons = append(reasons, "Fulfilled by Amazon (FBA)")
	}

	if winner.IsPrime {
		reasons = append(reasons, "Prime eligible")
	}

	if winner.SellerRating != nil {
		rating := *winner.SellerRating
		if rating >= excellentRating {
			reasons = append(reasons, fmt.Sprintf("Excellent seller rating (%.0f%%)", rating))
		} else if rating >= goodRating {
			reasons = append(reasons, fmt.Sprintf("Good seller rating (%.0f%%)", rating))
		}
	}

	if winner.FeedbackCount >= highFeedbackVolume {
		reasons = append(reasons, fmt.Sprintf("High feedback volume (%s ratings)", humanize.Comma(int64(winner.FeedbackCount))))
	} else if winner.FeedbackCount >= strongFeedbackVolume {
		reasons = append(reasons, fmt.Sprintf("Strong feedback volume (%s ratings)", humanize.Comma(int64(winner.FeedbackCount))))
	}

	if winner.Availability == AvailabilityNow {
		reasons = append(reasons, "In stock and ready to ship")
	}

	if winner.MaxShippingHours > 0 && winner.MaxShippingHours <= fastShippingHoursLimit {
		reasons = append(reasons, fmt.Sprintf("Fast shipping (%dh max)", winner.MaxShippingHours))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, FallbackReason)
	}

	return reasons
}

// lowestTotal returns the minimum total price across offers
func lowestTotal(offers []Offer) (decimal.Decimal, bool) {
	if len(offers) == 0 {
		return decimal.Zero, false
	}
	lowest := offers[0].TotalPrice()
	for _, o := range offers[1:] {
		if t := o.TotalPrice(); t.LessThan(lowest) {
			lowest = t
		}
	}
	return lowest, true
}
