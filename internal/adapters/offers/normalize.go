package offers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
)

// UnknownSeller is used when an offer carries no seller id
const UnknownSeller = "Unknown"

var errNullOffer = errors.New("offer entry is null")

// NormalizeOffers converts raw offer entries into buybox.Offer values.
// Entries that fail to decode or validate are skipped with a warning.
func NormalizeOffers(raw []json.RawMessage, logger *slog.Logger) []buybox.Offer {
	if logger == nil {
		logger = slog.Default()
	}

	offers := make([]buybox.Offer, 0, len(raw))
	for i, entry := range raw {
		offer, err := NormalizeOffer(entry)
		if err != nil {
			logger.Warn("failed to parse offer, skipping",
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		offers = append(offers, offer)
	}
	return offers
}

// NormalizeOffer decodes one raw offer, applying defaults for every missing
// field
func NormalizeOffer(raw json.RawMessage) (buybox.Offer, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return buybox.Offer{}, errNullOffer
	}

	var entry spapi.OfferEntry
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return buybox.Offer{}, fmt.Errorf("failed to decode offer: %w", err)
	}
	return offerFromEntry(entry)
}

func offerFromEntry(e spapi.OfferEntry) (buybox.Offer, error) {
	offer := buybox.Offer{
		SellerID:       e.SellerID,
		IsBuyBoxWinner: e.IsBuyBoxWinner,
		IsFBA:          e.IsFulfilledByAmazon,
		Availability:   buybox.AvailabilityUnknown,
	}
	if offer.SellerID == "" {
		offer.SellerID = UnknownSeller
	}

	if e.ListingPrice != nil {
		offer.ListingPrice = e.ListingPrice.Amount
	}
	if e.Shipping != nil {
		offer.ShippingCost = e.Shipping.Amount
	}
	if offer.ListingPrice.IsNegative() || offer.ShippingCost.IsNegative() {
		return buybox.Offer{}, fmt.Errorf("negative amount for seller %s", offer.SellerID)
	}

	if e.PrimeInformation != nil {
		offer.IsPrime = e.PrimeInformation.IsPrime
	}

	if fb := e.SellerFeedbackRating; fb != nil {
		if r := fb.SellerPositiveFeedbackRating; r != nil {
			if *r < 0 || *r > 100 {
				return buybox.Offer{}, fmt.Errorf("seller rating %.2f out of range", *r)
			}
			rating := *r
			offer.SellerRating = &rating
		}
		if fb.FeedbackCount != nil {
			if *fb.FeedbackCount < 0 {
				return buybox.Offer{}, fmt.Errorf("negative feedback count for seller %s", offer.SellerID)
			}
			offer.FeedbackCount = int(*fb.FeedbackCount)
		}
	}

	if st := e.ShippingTime; st != nil {
		if st.AvailabilityType != "" {
			offer.Availability = st.AvailabilityType
		}
		if st.MaximumHours != nil && *st.MaximumHours > 0 {
			offer.MaxShippingHours = int(*st.MaximumHours)
		}
	}

	return offer, nil
}
