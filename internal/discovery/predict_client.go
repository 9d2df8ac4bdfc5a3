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

const predictPageSize = 50

type predictMarketsResponse struct {
	Markets    []predictMarket `json:"markets"`
	NextCursor string          `json:"nextCursor"`
}

type predictMarket struct {
	ID          string           `json:"id"`
	ConditionID string           `json:"conditionId"`
	Title       string           `json:"title"`
	Category    string           `json:"category"`
	ResolveTime *int64           `json:"resolveTime"`
	Outcomes    []predictOutcome `json:"outcomes"`
	Image       string           `json:"image"`
	Slug        string           `json:"slug"`
}

type predictOutcome struct {
	TokenID string `json:"tokenId"`
	Label   string `json:"label"`
}

// PredictCatalogClient fetches the Predict venue's open-market catalog via
// cursor pagination: `first=50[&cursor=...]`, continuing until a page
// comes back shorter than the requested size.
type PredictCatalogClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPredictCatalogClient(baseURL string, logger *zap.Logger) *PredictCatalogClient {
	return &PredictCatalogClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (c *PredictCatalogClient) Venue() types.Venue { return types.VenuePredict }

func (c *PredictCatalogClient) FetchCatalog(ctx context.Context) ([]types.DiscoveredMarket, error) {
	var out []types.DiscoveredMarket
	cursor := ""

	for {
		page, next, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return out, fmt.Errorf("predict fetch page: %w", err)
		}

		for _, m := range page {
			yesTok, noTok, labels, ok := classifyBinary(outcomesOf(m.Outcomes))
			if !ok {
				continue
			}
			out = append(out, types.DiscoveredMarket{
				ID:            m.ID,
				Platform:      types.VenuePredict,
				Title:         m.Title,
				ConditionID:   m.ConditionID,
				Category:      m.Category,
				ResolvesAt:    m.ResolveTime,
				YesTokenID:    yesTok,
				NoTokenID:     noTok,
				OutcomeLabels: labels,
				Image:         m.Image,
				URL:           m.Slug,
			})
		}

		if len(page) < predictPageSize || next == "" {
			break
		}
		cursor = next
	}

	return dedupeByID(out), nil
}

func (c *PredictCatalogClient) fetchPage(ctx context.Context, cursor string) ([]predictMarket, string, error) {
	params := url.Values{}
	params.Add("status", "OPEN")
	params.Add("first", strconv.Itoa(predictPageSize))
	if cursor != "" {
		params.Add("cursor", cursor)
	}

	requestURL := fmt.Sprintf("%s/v1/markets?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed predictMarketsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("unmarshal markets: %w", err)
	}
	return parsed.Markets, parsed.NextCursor, nil
}

func outcomesOf(raw []predictOutcome) []rawOutcome {
	out := make([]rawOutcome, len(raw))
	for i, o := range raw {
		out[i] = rawOutcome{TokenID: o.TokenID, Label: o.Label}
	}
	return out
}

// dedupeByID keeps the first occurrence of each internal ID, the teacher's
// slug-keyed dedup shape (identifyNewMarkets) generalized to id-keyed.
func dedupeByID(markets []types.DiscoveredMarket) []types.DiscoveredMarket {
	seen := make(map[string]bool, len(markets))
	out := make([]types.DiscoveredMarket, 0, len(markets))
	for _, m := range markets {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}
