package buybox

import (
	"time"

	"github.com/shopspring/decimal"
)

// Availability values reported by the offers endpoint
const (
	AvailabilityNow               = "NOW"
	AvailabilityFutureWithDate    = "FUTURE_WITH_DATE"
	AvailabilityFutureWithoutDate = "FUTURE_WITHOUT_DATE"
	AvailabilityUnknown           = "UNKNOWN"
)

// Offer is one seller's listing for an ASIN.
// Offers are built once per API response and never mutated.
type Offer struct {
	SellerID         string
	ListingPrice     decimal.Decimal
	ShippingCost     decimal.Decimal
	IsBuyBoxWinner   bool
	IsFBA            bool
	IsPrime          bool
	SellerRating     *float64 // positive feedback percentage, nil when not reported
	FeedbackCount    int
	Availability     string
	MaxShippingHours int
}

// TotalPrice is the listing price plus shipping
func (o Offer) TotalPrice() decimal.Decimal {
	return o.ListingPrice.Add(o.ShippingCost)
}

// Winner holds the Buy Box winning offer's details on a Result
type Winner struct {
	SellerID     string          `json:"seller_id"`
	Price        decimal.Decimal `json:"price"`
	Shipping     decimal.Decimal `json:"shipping"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	IsFBA        bool            `json:"is_fba"`
	IsPrime      bool            `json:"is_prime"`
	SellerRating *float64        `json:"seller_rating,omitempty"`
}

// Result is the analysis outcome for one ASIN.
//
// Exactly one of the following shapes holds:
//   - Error set: Winner is nil and Reasons is empty
//   - no winner: Winner is nil and Reasons is [NoWinnerReason]
//   - winner: Winner is set and Reasons is non-empty
type Result struct {
	ASIN        string    `json:"asin"`
	ProductName string    `json:"product_name"`
	Winner      *Winner   `json:"winner,omitempty"`
	Reasons     []string  `json:"reasons"`
	TotalOffers int       `json:"total_offers"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
	Error       string    `json:"error,omitempty"`
}

// HasError reports whether the result records a failure
func (r Result) HasError() bool {
	return r.Error != ""
}
