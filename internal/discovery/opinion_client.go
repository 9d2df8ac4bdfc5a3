package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/types"
)

const opinionPageSize = 100

type opinionMarketsEnvelope struct {
	Errno  int                `json:"errno"`
	Result opinionMarketsPage `json:"result"`
}

type opinionMarketsPage struct {
	Total int             `json:"total"`
	List  []opinionMarket `json:"list"`
}

type opinionMarket struct {
	MarketID   int64            `json:"marketId"`
	Title      string           `json:"title"`
	Category   string           `json:"category"`
	ResolvesAt *int64           `json:"resolvesAt"`
	Outcomes   []opinionOutcome `json:"outcomes"`
	Image      string           `json:"image"`
}

type opinionOutcome struct {
	TokenID string `json:"tokenId"`
	Label   string `json:"label"`
}

// OpinionCatalogClient fetches the Opinion venue's catalog via
// page-number pagination with a total hint.
type OpinionCatalogClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpinionCatalogClient(baseURL string, logger *zap.Logger) *OpinionCatalogClient {
	return &OpinionCatalogClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (c *OpinionCatalogClient) Venue() types.Venue { return types.VenueOpinion }

func (c *OpinionCatalogClient) FetchCatalog(ctx context.Context) ([]types.DiscoveredMarket, error) {
	var out []types.DiscoveredMarket
	page := 1
	seenIDs := make(map[int64]bool)

	for {
		result, err := c.fetchPage(ctx, page)
		if err != nil {
			return out, fmt.Errorf("opinion fetch page: %w", err)
		}

		for _, m := range result.List {
			if seenIDs[m.MarketID] {
				continue
			}
			seenIDs[m.MarketID] = true

			yesTok, noTok, labels, ok := classifyBinary(opinionOutcomesOf(m.Outcomes))
			if !ok {
				continue
			}
			out = append(out, types.DiscoveredMarket{
				ID:            strconv.FormatInt(m.MarketID, 10),
				Platform:      types.VenueOpinion,
				Title:         m.Title,
				Category:      m.Category,
				ResolvesAt:    m.ResolvesAt,
				YesTokenID:    yesTok,
				NoTokenID:     noTok,
				OutcomeLabels: labels,
				Image:         m.Image,
			})
		}

		fetchedSoFar := page * opinionPageSize
		if len(result.List) < opinionPageSize || fetchedSoFar >= result.Total {
			break
		}
		page++
	}

	return out, nil
}

func (c *OpinionCatalogClient) fetchPage(ctx context.Context, page int) (opinionMarketsPage, error) {
	params := url.Values{}
	params.Add("page", strconv.Itoa(page))
	params.Add("pageSize", strconv.Itoa(opinionPageSize))

	requestURL := fmt.Sprintf("%s/market?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return opinionMarketsPage{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return opinionMarketsPage{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return opinionMarketsPage{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return opinionMarketsPage{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var envelope opinionMarketsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return opinionMarketsPage{}, fmt.Errorf("unmarshal markets: %w", err)
	}
	if envelope.Errno != 0 {
		return opinionMarketsPage{}, fmt.Errorf("venue errno %d", envelope.Errno)
	}
	return envelope.Result, nil
}

func opinionOutcomesOf(raw []opinionOutcome) []rawOutcome {
	out := make([]rawOutcome, len(raw))
	for i, o := range raw {
		out[i] = rawOutcome{TokenID: o.TokenID, Label: o.Label}
	}
	return out
}
