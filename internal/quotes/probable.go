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

// ProbableFeeBps is the venue's baseline taker fee until overridden
// per-market.
const ProbableFeeBps = 175

type probableBookResponse struct {
	Asks []probableLevel `json:"asks"`
}

type probableLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ProbableProvider quotes a market from two independent single-sided order
// books, one per outcome token, reading only the ask side of each since the
// venue never exposes usable bid depth.
type ProbableProvider struct {
	baseURL    string
	chainID    int
	httpClient *http.Client
	logger     *zap.Logger

	deadMu  sync.Mutex
	deadSet map[string]bool
}

func NewProbableProvider(baseURL string, chainID int, logger *zap.Logger) *ProbableProvider {
	return &ProbableProvider{
		baseURL:    baseURL,
		chainID:    chainID,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
		deadSet:    make(map[string]bool),
	}
}

func (p *ProbableProvider) Venue() types.Venue { return types.VenueProbable }

func (p *ProbableProvider) FetchQuotes(ctx context.Context, markets map[string]types.DiscoveredMarket) ([]types.MarketQuote, error) {
	timer := prometheus.NewTimer(FetchDurationSeconds.WithLabelValues(string(types.VenueProbable)))
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
				QuotesSkippedTotal.WithLabelValues(string(types.VenueProbable)).Inc()
				p.logger.Debug("probable-quote-skip", zap.String("market-id", mkt.ID), zap.Error(err))
				return
			}
			QuotesFetchedTotal.WithLabelValues(string(types.VenueProbable)).Inc()
			mu.Lock()
			out = append(out, q)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out, nil
}

func (p *ProbableProvider) fetchOne(ctx context.Context, fingerprint string, mkt types.DiscoveredMarket) (types.MarketQuote, error) {
	yesLevels, err := p.fetchBook(ctx, mkt.ID, mkt.YesTokenID)
	if err != nil {
		if isNotFound(err) {
			p.markDead(mkt.ID)
		}
		return types.MarketQuote{}, err
	}
	noLevels, err := p.fetchBook(ctx, mkt.ID, mkt.NoTokenID)
	if err != nil {
		if isNotFound(err) {
			p.markDead(mkt.ID)
		}
		return types.MarketQuote{}, err
	}

	if len(yesLevels) == 0 || len(noLevels) == 0 {
		return types.MarketQuote{}, fmt.Errorf("empty ask book for market %s", mkt.ID)
	}

	yesPrice := lowestAsk(yesLevels)
	noPrice := lowestAsk(noLevels)

	if yesPrice.LessThanEq(fixedpoint.ZeroPrice()) || noPrice.LessThanEq(fixedpoint.ZeroPrice()) ||
		yesPrice.GreaterThanEq(fixedpoint.One()) || noPrice.GreaterThanEq(fixedpoint.One()) {
		return types.MarketQuote{}, fmt.Errorf("out-of-range prices for market %s", mkt.ID)
	}

	yesDepth := depthWithinSlippage(yesLevels, yesPrice, SlippageWindowBps)
	noDepth := depthWithinSlippage(noLevels, noPrice, SlippageWindowBps)

	minLiquidity := fixedpoint.NewUSDTFromFloat(MinLiquidityUSDT6 / 1e6)
	if yesDepth.LessThan(minLiquidity) || noDepth.LessThan(minLiquidity) {
		return types.MarketQuote{}, fmt.Errorf("insufficient depth for market %s", mkt.ID)
	}

	return types.MarketQuote{
		MarketID:      fingerprint,
		Protocol:      types.VenueProbable,
		YesPrice:      yesPrice,
		NoPrice:       noPrice,
		YesLiquidity:  yesDepth,
		NoLiquidity:   noDepth,
		FeeBps:        ProbableFeeBps,
		QuotedAtMs:    nowMs(),
		Title:         mkt.Title,
		OutcomeLabels: mkt.OutcomeLabels,
	}, nil
}

func (p *ProbableProvider) fetchBook(ctx context.Context, marketID, tokenID string) ([]BookLevel, error) {
	var levels []BookLevel
	err := retry.Do(ctx, retry.DefaultConfig(), func(err error) bool {
		return !isNotFound(err)
	}, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/public/api/v1/book?token_id=%s", p.baseURL, tokenID)
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Accept", "application/json")

		resp, doErr := p.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return notFoundErr{}
		}
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return readErr
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		var parsed probableBookResponse
		if unmarshalErr := json.Unmarshal(body, &parsed); unmarshalErr != nil {
			return fmt.Errorf("unmarshal book: %w", unmarshalErr)
		}
		levels = toProbableLevels(parsed.Asks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

func (p *ProbableProvider) isDead(marketID string) bool {
	p.deadMu.Lock()
	defer p.deadMu.Unlock()
	return p.deadSet[marketID]
}

func (p *ProbableProvider) markDead(marketID string) {
	p.deadMu.Lock()
	defer p.deadMu.Unlock()
	p.deadSet[marketID] = true
}

func lowestAsk(levels []BookLevel) fixedpoint.Price18 {
	lowest := levels[0].Price
	for _, lvl := range levels[1:] {
		if lvl.Price.LessThan(lowest) {
			lowest = lvl.Price
		}
	}
	return lowest
}

func toProbableLevels(raw []probableLevel) []BookLevel {
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
