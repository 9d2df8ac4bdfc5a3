package quotes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/retry"
	"github.com/marketarb/agent/pkg/types"
)

// PredictFeeBps is the venue's baseline taker fee until overridden
// per-market.
const PredictFeeBps = 200

type predictOrderbookResponse struct {
	Bids []predictLevel `json:"bids"`
	Asks []predictLevel `json:"asks"`
}

type predictLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// PredictProvider fetches YES-token order books and derives the NO price
// as the complement of the best bid.
type PredictProvider struct {
	baseURL            string
	httpClient         *http.Client
	logger             *zap.Logger
	useComplementNoBook bool

	deadMu  sync.Mutex
	deadSet map[string]bool
}

// NewPredictProvider builds a Predict quote provider. useComplementNoBook
// keeps the complement-of-bid pricing the source uses by default; a
// future dedicated NO-book fetch can be toggled in per the open question
// this config field resolves.
func NewPredictProvider(baseURL string, logger *zap.Logger, useComplementNoBook bool) *PredictProvider {
	return &PredictProvider{
		baseURL:             baseURL,
		httpClient:          &http.Client{Timeout: 5 * time.Second},
		logger:              logger,
		useComplementNoBook: useComplementNoBook,
		deadSet:             make(map[string]bool),
	}
}

func (p *PredictProvider) Venue() types.Venue { return types.VenuePredict }

// FetchQuotes fetches one order book per market, bounded to
// MaxConcurrentFetches in flight at a time.
func (p *PredictProvider) FetchQuotes(ctx context.Context, markets map[string]types.DiscoveredMarket) ([]types.MarketQuote, error) {
	timer := prometheus.NewTimer(FetchDurationSeconds.WithLabelValues(string(types.VenuePredict)))
	defer timer.ObserveDuration()

	sem := make(chan struct{}, MaxConcurrentFetches)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var out []types.MarketQuote

	for fp, mkt := range markets {
		if p.isDead(mkt.ID) {
			continue
		}
		fp, mkt := fp, mkt
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			q, err := p.fetchOne(ctx, fp, mkt)
			if err != nil {
				QuotesSkippedTotal.WithLabelValues(string(types.VenuePredict)).Inc()
				p.logger.Debug("predict-quote-skip", zap.String("market-id", mkt.ID), zap.Error(err))
				return
			}
			QuotesFetchedTotal.WithLabelValues(string(types.VenuePredict)).Inc()
			mu.Lock()
			out = append(out, q)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out, nil
}

func (p *PredictProvider) fetchOne(ctx context.Context, fingerprint string, mkt types.DiscoveredMarket) (types.MarketQuote, error) {
	var book predictOrderbookResponse
	err := retry.Do(ctx, retry.DefaultConfig(), func(err error) bool {
		return !isNotFound(err)
	}, func(ctx context.Context) error {
		b, notFound, fetchErr := p.getOrderbook(ctx, mkt.ID)
		if notFound {
			p.markDead(mkt.ID)
			return notFoundErr{}
		}
		if fetchErr != nil {
			return fetchErr
		}
		book = b
		return nil
	})
	if err != nil {
		return types.MarketQuote{}, err
	}

	bestAsk, ok := bestPrice(book.Asks, true)
	if !ok {
		return types.MarketQuote{}, fmt.Errorf("no asks for market %s", mkt.ID)
	}
	bestBid, ok := bestPrice(book.Bids, false)
	if !ok {
		return types.MarketQuote{}, fmt.Errorf("no bids for market %s", mkt.ID)
	}

	yesPrice := bestAsk
	noPrice := fixedpoint.One().Sub(bestBid)

	if yesPrice.LessThanEq(fixedpoint.ZeroPrice()) || noPrice.LessThanEq(fixedpoint.ZeroPrice()) ||
		yesPrice.GreaterThanEq(fixedpoint.One()) || noPrice.GreaterThanEq(fixedpoint.One()) {
		return types.MarketQuote{}, fmt.Errorf("out-of-range prices for market %s", mkt.ID)
	}

	yesLevels := toLevels(book.Asks)
	bidLevels := toLevels(book.Bids)
	yesDepth := depthWithinSlippage(yesLevels, yesPrice, SlippageWindowBps)
	noDepth := depthWithinSlippage(bidLevels, bestBid, SlippageWindowBps)

	if yesDepth.LessThan(fixedpoint.NewUSDTFromFloat(MinLiquidityUSDT6/1e6)) ||
		noDepth.LessThan(fixedpoint.NewUSDTFromFloat(MinLiquidityUSDT6/1e6)) {
		return types.MarketQuote{}, fmt.Errorf("insufficient depth for market %s", mkt.ID)
	}

	return types.MarketQuote{
		MarketID:      fingerprint,
		Protocol:      types.VenuePredict,
		YesPrice:      yesPrice,
		NoPrice:       noPrice,
		YesLiquidity:  yesDepth,
		NoLiquidity:   noDepth,
		FeeBps:        PredictFeeBps,
		QuotedAtMs:    nowMs(),
		Title:         mkt.Title,
		OutcomeLabels: mkt.OutcomeLabels,
	}, nil
}

func (p *PredictProvider) getOrderbook(ctx context.Context, marketID string) (predictOrderbookResponse, bool, error) {
	url := fmt.Sprintf("%s/v1/markets/%s/orderbook", p.baseURL, marketID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return predictOrderbookResponse{}, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return predictOrderbookResponse{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return predictOrderbookResponse{}, true, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return predictOrderbookResponse{}, false, err
	}
	if resp.StatusCode != http.StatusOK {
		return predictOrderbookResponse{}, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out predictOrderbookResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return predictOrderbookResponse{}, false, fmt.Errorf("unmarshal orderbook: %w", err)
	}
	return out, false, nil
}

func (p *PredictProvider) isDead(marketID string) bool {
	p.deadMu.Lock()
	defer p.deadMu.Unlock()
	return p.deadSet[marketID]
}

func (p *PredictProvider) markDead(marketID string) {
	p.deadMu.Lock()
	defer p.deadMu.Unlock()
	p.deadSet[marketID] = true
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "market not found" }

func isNotFound(err error) bool {
	_, ok := err.(notFoundErr)
	return ok
}

func bestPrice(levels []predictLevel, ascending bool) (fixedpoint.Price18, bool) {
	if len(levels) == 0 {
		return fixedpoint.Price18{}, false
	}
	sorted := toLevels(levels)
	sort.Slice(sorted, func(i, j int) bool {
		if ascending {
			return sorted[i].Price.LessThan(sorted[j].Price)
		}
		return sorted[i].Price.GreaterThan(sorted[j].Price)
	})
	return sorted[0].Price, true
}

func toLevels(raw []predictLevel) []BookLevel {
	out := make([]BookLevel, 0, len(raw))
	for _, lvl := range raw {
		price, err := fixedpoint.NewPriceFromString(lvl.Price)
		if err != nil {
			continue
		}
		size, err := fixedpoint.NewUSDTFromString(lvl.Size)
		if err != nil {
			continue
		}
		out = append(out, BookLevel{Price: price, Size: size})
	}
	return out
}

func nowMs() int64 { return time.Now().UnixMilli() }
