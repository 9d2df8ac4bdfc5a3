package quotes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/retry"
	"github.com/marketarb/agent/pkg/types"
)

// OpinionFeeBps is the venue's baseline taker fee until overridden
// per-market.
const OpinionFeeBps = 200

type opinionBookEnvelope struct {
	Errno  int              `json:"errno"`
	Result opinionBookResult `json:"result"`
}

type opinionBookResult struct {
	Bids []opinionLevel `json:"bids"`
	Asks []opinionLevel `json:"asks"`
}

type opinionLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OpinionProvider prices markets the same way PredictProvider does
// (complement-of-bid NO pricing from a single combined book) against the
// venue's own envelope-wrapped response shape.
type OpinionProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	deadMu  sync.Mutex
	deadSet map[string]bool
}

func NewOpinionProvider(baseURL string, logger *zap.Logger) *OpinionProvider {
	return &OpinionProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
		deadSet:    make(map[string]bool),
	}
}

func (p *OpinionProvider) Venue() types.Venue { return types.VenueOpinion }

func (p *OpinionProvider) FetchQuotes(ctx context.Context, markets map[string]types.DiscoveredMarket) ([]types.MarketQuote, error) {
	timer := prometheus.NewTimer(FetchDurationSeconds.WithLabelValues(string(types.VenueOpinion)))
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
				QuotesSkippedTotal.WithLabelValues(string(types.VenueOpinion)).Inc()
				p.logger.Debug("opinion-quote-skip", zap.String("market-id", mkt.ID), zap.Error(err))
				return
			}
			QuotesFetchedTotal.WithLabelValues(string(types.VenueOpinion)).Inc()
			mu.Lock()
			out = append(out, q)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out, nil
}

func (p *OpinionProvider) fetchOne(ctx context.Context, fingerprint string, mkt types.DiscoveredMarket) (types.MarketQuote, error) {
	var result opinionBookResult
	err := retry.Do(ctx, retry.DefaultConfig(), func(err error) bool {
		return !isNotFound(err)
	}, func(ctx context.Context) error {
		r, notFound, fetchErr := p.getBook(ctx, mkt.ID)
		if notFound {
			p.markDead(mkt.ID)
			return notFoundErr{}
		}
		if fetchErr != nil {
			return fetchErr
		}
		result = r
		return nil
	})
	if err != nil {
		return types.MarketQuote{}, err
	}

	askLevels := toOpinionLevels(result.Asks)
	bidLevels := toOpinionLevels(result.Bids)
	if len(askLevels) == 0 || len(bidLevels) == 0 {
		return types.MarketQuote{}, fmt.Errorf("empty book for market %s", mkt.ID)
	}

	bestAsk := askLevels[0].Price
	for _, lvl := range askLevels[1:] {
		if lvl.Price.LessThan(bestAsk) {
			bestAsk = lvl.Price
		}
	}
	bestBid := bidLevels[0].Price
	for _, lvl := range bidLevels[1:] {
		if lvl.Price.GreaterThan(bestBid) {
			bestBid = lvl.Price
		}
	}

	yesPrice := bestAsk
	noPrice := fixedpoint.One().Sub(bestBid)

	if yesPrice.LessThanEq(fixedpoint.ZeroPrice()) || noPrice.LessThanEq(fixedpoint.ZeroPrice()) ||
		yesPrice.GreaterThanEq(fixedpoint.One()) || noPrice.GreaterThanEq(fixedpoint.One()) {
		return types.MarketQuote{}, fmt.Errorf("out-of-range prices for market %s", mkt.ID)
	}

	yesDepth := depthWithinSlippage(askLevels, yesPrice, SlippageWindowBps)
	noDepth := depthWithinSlippage(bidLevels, bestBid, SlippageWindowBps)

	minLiquidity := fixedpoint.NewUSDTFromFloat(MinLiquidityUSDT6 / 1e6)
	if yesDepth.LessThan(minLiquidity) || noDepth.LessThan(minLiquidity) {
		return types.MarketQuote{}, fmt.Errorf("insufficient depth for market %s", mkt.ID)
	}

	return types.MarketQuote{
		MarketID:      fingerprint,
		Protocol:      types.VenueOpinion,
		YesPrice:      yesPrice,
		NoPrice:       noPrice,
		YesLiquidity:  yesDepth,
		NoLiquidity:   noDepth,
		FeeBps:        OpinionFeeBps,
		QuotedAtMs:    nowMs(),
		Title:         mkt.Title,
		OutcomeLabels: mkt.OutcomeLabels,
	}, nil
}

func (p *OpinionProvider) getBook(ctx context.Context, marketID string) (opinionBookResult, bool, error) {
	url := fmt.Sprintf("%s/market/%s/book", p.baseURL, marketID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return opinionBookResult{}, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return opinionBookResult{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return opinionBookResult{}, true, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return opinionBookResult{}, false, err
	}
	if resp.StatusCode != http.StatusOK {
		return opinionBookResult{}, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var envelope opinionBookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return opinionBookResult{}, false, fmt.Errorf("unmarshal book: %w", err)
	}
	if envelope.Errno != 0 {
		return opinionBookResult{}, false, fmt.Errorf("venue errno %d", envelope.Errno)
	}
	return envelope.Result, false, nil
}

func (p *OpinionProvider) isDead(marketID string) bool {
	p.deadMu.Lock()
	defer p.deadMu.Unlock()
	return p.deadSet[marketID]
}

func (p *OpinionProvider) markDead(marketID string) {
	p.deadMu.Lock()
	defer p.deadMu.Unlock()
	p.deadSet[marketID] = true
}

func toOpinionLevels(raw []opinionLevel) []BookLevel {
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
