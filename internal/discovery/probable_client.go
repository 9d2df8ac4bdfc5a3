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

const probablePageSize = 100

type probableEvent struct {
	ID          string            `json:"id"`
	ConditionID string            `json:"conditionId"`
	Title       string            `json:"title"`
	Category    string            `json:"category"`
	EndTime     *int64            `json:"endTime"`
	Outcomes    []probableOutcome `json:"outcomes"`
	Image       string            `json:"image"`
}

type probableOutcome struct {
	TokenID string `json:"tokenId"`
	Label   string `json:"label"`
}

// ProbableCatalogClient fetches the Probable venue's catalog via
// offset-based pagination, continuing until a page comes back shorter
// than 100.
type ProbableCatalogClient struct {
	baseURL    string
	chainID    int
	httpClient *http.Client
	logger     *zap.Logger
}

func NewProbableCatalogClient(baseURL string, chainID int, logger *zap.Logger) *ProbableCatalogClient {
	return &ProbableCatalogClient{
		baseURL:    baseURL,
		chainID:    chainID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (c *ProbableCatalogClient) Venue() types.Venue { return types.VenueProbable }

func (c *ProbableCatalogClient) FetchCatalog(ctx context.Context) ([]types.DiscoveredMarket, error) {
	var out []types.DiscoveredMarket
	offset := 0

	for {
		page, err := c.fetchPage(ctx, offset)
		if err != nil {
			return out, fmt.Errorf("probable fetch page: %w", err)
		}

		for _, e := range page {
			yesTok, noTok, labels, ok := classifyBinary(probableOutcomesOf(e.Outcomes))
			if !ok {
				continue
			}
			out = append(out, types.DiscoveredMarket{
				ID:            e.ID,
				Platform:      types.VenueProbable,
				Title:         e.Title,
				ConditionID:   e.ConditionID,
				Category:      e.Category,
				ResolvesAt:    e.EndTime,
				YesTokenID:    yesTok,
				NoTokenID:     noTok,
				OutcomeLabels: labels,
				Image:         e.Image,
			})
		}

		if len(page) < probablePageSize {
			break
		}
		offset += probablePageSize
	}

	return dedupeByID(out), nil
}

func (c *ProbableCatalogClient) fetchPage(ctx context.Context, offset int) ([]probableEvent, error) {
	params := url.Values{}
	params.Add("active", "true")
	params.Add("limit", strconv.Itoa(probablePageSize))
	params.Add("offset", strconv.Itoa(offset))

	requestURL := fmt.Sprintf("%s/public/api/v1/events?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var events []probableEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	return events, nil
}

func probableOutcomesOf(raw []probableOutcome) []rawOutcome {
	out := make([]rawOutcome, len(raw))
	for i, o := range raw {
		out[i] = rawOutcome{TokenID: o.TokenID, Label: o.Label}
	}
	return out
}
