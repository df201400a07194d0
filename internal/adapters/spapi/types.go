package spapi

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ItemOffersResponse is the body of GET /products/pricing/v0/items/{asin}/offers
type ItemOffersResponse struct {
	Payload *ItemOffersPayload `json:"payload"`
	Errors  []ErrorDetail      `json:"errors,omitempty"`
}

// ItemOffersPayload carries the offers for one ASIN.
// Offers are kept raw so a malformed entry can be skipped on its own.
type ItemOffersPayload struct {
	MarketplaceID string            `json:"MarketplaceID"`
	ASIN          string            `json:"ASIN"`
	Status        string            `json:"status"`
	ItemCondition string            `json:"ItemCondition"`
	Offers        []json.RawMessage `json:"Offers"`
}

// OfferEntry is a single element of ItemOffersPayload.Offers
type OfferEntry struct {
	SellerID             string                `json:"SellerId"`
	SubCondition         string                `json:"SubCondition"`
	SellerFeedbackRating *SellerFeedbackRating `json:"SellerFeedbackRating"`
	ShippingTime         *ShippingTime         `json:"ShippingTime"`
	ListingPrice         *Money                `json:"ListingPrice"`
	Shipping             *Money                `json:"Shipping"`
	PrimeInformation     *PrimeInformation     `json:"PrimeInformation"`
	IsFulfilledByAmazon  bool                  `json:"IsFulfilledByAmazon"`
	IsBuyBoxWinner       bool                  `json:"IsBuyBoxWinner"`
	IsFeaturedMerchant   bool                  `json:"IsFeaturedMerchant"`
}

// Money is an SP-API MoneyType
type Money struct {
	CurrencyCode string          `json:"CurrencyCode"`
	Amount       decimal.Decimal `json:"Amount"`
}

// SellerFeedbackRating holds seller feedback figures.
// Counts are occasionally sent as floats, so both fields decode as float64.
type SellerFeedbackRating struct {
	SellerPositiveFeedbackRating *float64 `json:"SellerPositiveFeedbackRating"`
	FeedbackCount                *float64 `json:"FeedbackCount"`
}

// ShippingTime is the SP-API DetailedShippingTimeType
type ShippingTime struct {
	MinimumHours     *float64 `json:"minimumHours"`
	MaximumHours     *float64 `json:"maximumHours"`
	AvailableDate    string   `json:"availableDate"`
	AvailabilityType string   `json:"availabilityType"`
}

// PrimeInformation flags Prime eligibility
type PrimeInformation struct {
	IsPrime         bool `json:"IsPrime"`
	IsNationalPrime bool `json:"IsNationalPrime"`
}

// CatalogItem is the body of GET /catalog/2022-04-01/items/{asin}
type CatalogItem struct {
	ASIN      string        `json:"asin"`
	Summaries []ItemSummary `json:"summaries"`
}

// ItemSummary is one per-marketplace catalog summary
type ItemSummary struct {
	MarketplaceID string `json:"marketplaceId"`
	ItemName      string `json:"itemName"`
	Brand         string `json:"brand,omitempty"`
}
