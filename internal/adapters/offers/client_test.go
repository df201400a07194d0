package offers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
)

// MockUpstream is a mock implementation of Upstream
type MockUpstream struct {
	mock.Mock
}

func (m *MockUpstream) GetItemOffers(ctx context.Context, marketplaceID, asin, itemCondition string) (*spapi.ItemOffersPayload, error) {
	args := m.Called(ctx, marketplaceID, asin, itemCondition)
	payload, _ := args.Get(0).(*spapi.ItemOffersPayload)
	return payload, args.Error(1)
}

func (m *MockUpstream) GetCatalogItem(ctx context.Context, marketplaceID, asin string) (*spapi.CatalogItem, error) {
	args := m.Called(ctx, marketplaceID, asin)
	item, _ := args.Get(0).(*spapi.CatalogItem)
	return item, args.Error(1)
}

type countingLimiter struct {
	mu    sync.Mutex
	count int
}

func (l *countingLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	return ctx.Err()
}

func (l *countingLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

type memoryRecorder struct {
	mu    sync.Mutex
	calls []CallRecord
}

func (r *memoryRecorder) RecordCall(ctx context.Context, call CallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

var (
	throttled = &spapi.APIError{StatusCode: http.StatusTooManyRequests, Code: "QuotaExceeded"}
	notFound  = &spapi.APIError{StatusCode: http.StatusNotFound, Code: "NotFound"}
	forbidden = &spapi.APIError{StatusCode: http.StatusForbidden, Code: "Unauthorized"}
)

func fastRetry() *spapi.RetryPolicy {
	return &spapi.RetryPolicy{MaxAttempts: 3, Multiplier: time.Millisecond, MinWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
}

type testClient struct {
	client   *Client
	upstream *MockUpstream
	offers   *countingLimiter
	catalog  *countingLimiter
}

func newTestClient(cache TitleCache) testClient {
	tc := testClient{
		upstream: new(MockUpstream),
		offers:   &countingLimiter{},
		catalog:  &countingLimiter{},
	}
	tc.client = NewClient(Options{
		MarketplaceID:  spapi.DefaultMarketplaceID,
		OffersLimiter:  tc.offers,
		CatalogLimiter: tc.catalog,
		OffersRetry:    fastRetry(),
		CatalogRetry:   fastRetry(),
		TitleCache:     cache,
		Upstream:       tc.upstream,
	})
	return tc
}

func rawOffers(t *testing.T, entries ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, json.RawMessage(e))
	}
	return out
}

func TestFetchOffers_Success(t *testing.T) {
	tc := newTestClient(nil)
	payload := &spapi.ItemOffersPayload{
		ASIN: "B08N5WRWNW",
		Offers: rawOffers(t,
			`{"SellerId":"A1","ListingPrice":{"Amount":29.99},"Shipping":{"Amount":0},"IsBuyBoxWinner":true}`,
			`{"SellerId":"A2","ListingPrice":{"Amount":31.00}}`,
		),
	}
	tc.upstream.On("GetItemOffers", mock.Anything, spapi.DefaultMarketplaceID, "B08N5WRWNW", "New").Return(payload, nil).Once()

	list, err := tc.client.FetchOffers(context.Background(), "B08N5WRWNW")

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A1", list[0].SellerID)
	assert.True(t, list[0].IsBuyBoxWinner)
	assert.Equal(t, 1, tc.offers.Count())
	assert.Equal(t, 0, tc.catalog.Count())
	tc.upstream.AssertExpectations(t)
}

func TestFetchOffers_RetriesTransientThenSucceeds(t *testing.T) {
	tc := newTestClient(nil)
	recorder := &memoryRecorder{}
	client := tc.client.ForRun("run-1", recorder)

	tc.upstream.On("GetItemOffers", mock.Anything, mock.Anything, "B000000001", "New").Return(nil, throttled).Twice()
	tc.upstream.On("GetItemOffers", mock.Anything, mock.Anything, "B000000001", "New").Return(&spapi.ItemOffersPayload{}, nil).Once()

	list, err := client.FetchOffers(context.Background(), "B000000001")

	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 3, tc.offers.Count(), "one limiter acquire per attempt")
	require.Len(t, recorder.calls, 3)
	assert.Equal(t, http.StatusTooManyRequests, recorder.calls[0].StatusCode)
	assert.Equal(t, 3, recorder.calls[2].Attempt)
	assert.Equal(t, 200, recorder.calls[2].StatusCode)
	tc.upstream.AssertExpectations(t)
}

func TestFetchOffers_TransientExhausted(t *testing.T) {
	tc := newTestClient(nil)
	tc.upstream.On("GetItemOffers", mock.Anything, mock.Anything, "B000000001", "New").Return(nil, throttled).Times(3)

	_, err := tc.client.FetchOffers(context.Background(), "B000000001")

	require.Error(t, err)
	assert.True(t, spapi.IsTransient(err))
	assert.Equal(t, 3, tc.offers.Count())
	tc.upstream.AssertExpectations(t)
}

func TestFetchOffers_TerminalErrorNotRetried(t *testing.T) {
	tc := newTestClient(nil)
	tc.upstream.On("GetItemOffers", mock.Anything, mock.Anything, "B000000001", "New").Return(nil, forbidden).Once()

	_, err := tc.client.FetchOffers(context.Background(), "B000000001")

	require.Error(t, err)
	assert.ErrorIs(t, err, forbidden)
	assert.Equal(t, 1, tc.offers.Count())
	tc.upstream.AssertExpectations(t)
}

func TestFetchOffers_NotFoundIsEmpty(t *testing.T) {
	tc := newTestClient(nil)
	tc.upstream.On("GetItemOffers", mock.Anything, mock.Anything, "B000000001", "New").Return(nil, notFound).Once()

	list, err := tc.client.FetchOffers(context.Background(), "B000000001")

	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Equal(t, 1, tc.offers.Count())
}

func TestFetchTitle(t *testing.T) {
	tests := []struct {
		name     string
		item     *spapi.CatalogItem
		err      error
		expected string
	}{
		{
			name: "marketplace summary preferred",
			item: &spapi.CatalogItem{Summaries: []spapi.ItemSummary{
				{MarketplaceID: "A2EUQ1WTGCTBG2", ItemName: "Canadian Title"},
				{MarketplaceID: spapi.DefaultMarketplaceID, ItemName: "US Title"},
			}},
			expected: "US Title",
		},
		{
			name:     "falls back to first summary",
			item:     &spapi.CatalogItem{Summaries: []spapi.ItemSummary{{MarketplaceID: "A2EUQ1WTGCTBG2", ItemName: "Canadian Title"}}},
			expected: "Canadian Title",
		},
		{name: "no summaries", item: &spapi.CatalogItem{}, expected: TitleUnknown},
		{name: "not found", err: notFound, expected: TitleNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestClient(nil)
			tc.upstream.On("GetCatalogItem", mock.Anything, spapi.DefaultMarketplaceID, "B000000001").Return(tt.item, tt.err).Once()

			title, err := tc.client.FetchTitle(context.Background(), "B000000001")

			require.NoError(t, err)
			assert.Equal(t, tt.expected, title)
			assert.Equal(t, 1, tc.catalog.Count())
		})
	}
}

func TestFetchTitle_UsesCache(t *testing.T) {
	cache := NewMemoryCache()
	tc := newTestClient(cache)
	item := &spapi.CatalogItem{Summaries: []spapi.ItemSummary{{MarketplaceID: spapi.DefaultMarketplaceID, ItemName: "Echo Dot"}}}
	tc.upstream.On("GetCatalogItem", mock.Anything, mock.Anything, "B08N5WRWNW").Return(item, nil).Once()

	for i := 0; i < 3; i++ {
		title, err := tc.client.FetchTitle(context.Background(), "B08N5WRWNW")
		require.NoError(t, err)
		assert.Equal(t, "Echo Dot", title)
	}

	assert.Equal(t, 1, tc.catalog.Count())
	assert.Equal(t, 1, cache.Size())
	tc.upstream.AssertExpectations(t)
}

func TestFetch_CredentialsNotConfigured(t *testing.T) {
	offersLimiter := &countingLimiter{}
	catalogLimiter := &countingLimiter{}
	client := NewClient(Options{OffersLimiter: offersLimiter, CatalogLimiter: catalogLimiter})

	assert.False(t, client.Configured())

	_, err := client.FetchOffers(context.Background(), "B000000001")
	assert.ErrorIs(t, err, spapi.ErrCredentialsNotConfigured)

	_, err = client.FetchTitle(context.Background(), "B000000001")
	assert.ErrorIs(t, err, spapi.ErrCredentialsNotConfigured)

	assert.Error(t, client.TestConnection(context.Background()))
	assert.Equal(t, 0, offersLimiter.Count(), "must fail before touching the limiter")
	assert.Equal(t, 0, catalogLimiter.Count())
}

func TestConfigure(t *testing.T) {
	client := NewClient(Options{})
	require.False(t, client.Configured())

	err := client.Configure(spapi.Credentials{ClientID: "only-id"})
	assert.ErrorIs(t, err, spapi.ErrCredentialsNotConfigured)
	assert.False(t, client.Configured())

	require.NoError(t, client.Configure(spapi.Credentials{RefreshToken: "r", ClientID: "c", ClientSecret: "s"}))
	assert.True(t, client.Configured())

	// Run views share the connection
	view := client.ForRun("run-1", nil)
	assert.True(t, view.Configured())
}

func TestTestConnection(t *testing.T) {
	tc := newTestClient(nil)
	item := &spapi.CatalogItem{Summaries: []spapi.ItemSummary{{MarketplaceID: spapi.DefaultMarketplaceID, ItemName: "Echo Dot"}}}
	tc.upstream.On("GetCatalogItem", mock.Anything, mock.Anything, HealthCheckASIN).Return(item, nil).Once()

	assert.NoError(t, tc.client.TestConnection(context.Background()))
	tc.upstream.AssertExpectations(t)
}
