package source

import (
	"context"
	"strconv"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	xhttp "github.com/wrenwealth/Archantum/pkg/http"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

// PullClient implements a PullSource over the exchange REST price endpoint.
// Token ids are batched; a short delay between batches keeps the adapter
// inside the venue rate limits.
type PullClient struct {
	baseURL    string
	batchSize  int
	batchDelay time.Duration
	client     *xhttp.Client
	log        *logger.Logger
}

// NewPullClient creates a REST pull source.
func NewPullClient(baseURL string, timeout time.Duration, batchSize int, batchDelay time.Duration, log *logger.Logger) *PullClient {
	return &PullClient{
		baseURL:    baseURL,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		client:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:        log,
	}
}

type priceQuery struct {
	TokenID string `json:"token_id"`
}

// Fetch prices the given markets in batches. Markets whose tokens the venue
// did not price are absent from the result; that is not an error. Only a
// total failure returns ErrSourceUnavailable.
func (c *PullClient) Fetch(ctx context.Context, markets []*models.Market) (map[string]models.Reading, error) {
	refs := make(map[string]tokenRef)
	queries := make([]priceQuery, 0, len(markets)*2)
	for _, m := range markets {
		for _, o := range m.Outcomes {
			if o.TokenID == "" {
				continue
			}
			refs[o.TokenID] = tokenRef{marketID: m.ID, outcomeID: o.ID}
			queries = append(queries, priceQuery{TokenID: o.TokenID})
		}
	}

	readings := make(map[string]models.Reading)
	var seq uint64
	batches, failures := 0, 0

	for start := 0; start < len(queries); start += c.batchSize {
		end := start + c.batchSize
		if end > len(queries) {
			end = len(queries)
		}
		batches++

		if start > 0 && c.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.batchDelay):
			}
		}

		var resp map[string]string
		err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    c.baseURL + "/prices",
			Body:   queries[start:end],
		}, &resp)
		if err != nil {
			failures++
			c.log.Warn("pull: batch failed",
				logger.Int("batch", batches),
				logger.Error(err))
			continue
		}

		now := time.Now()
		for tokenID, raw := range resp {
			ref, ok := refs[tokenID]
			if !ok {
				continue
			}
			price, err := strconv.ParseFloat(raw, 64)
			if err != nil || price < 0 || price > 1 {
				continue
			}

			seq++
			r, exists := readings[ref.marketID]
			if !exists {
				r = models.Reading{
					MarketID: ref.marketID,
					Prices:   make(map[string]float64),
					Source:   models.SourcePull,
				}
			}
			r.Prices[ref.outcomeID] = price
			r.Seq = seq
			r.ObservedAt = now
			readings[ref.marketID] = r
		}
	}

	if batches > 0 && failures == batches {
		return nil, repository.ErrSourceUnavailable
	}
	return readings, nil
}
