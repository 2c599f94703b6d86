package source

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	xhttp "github.com/wrenwealth/Archantum/pkg/http"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

// CatalogClient implements Catalog over the venue metadata API. Each refresh
// returns the tracked universe: active markets above the volume floor, their
// events, and the relations declared on those events.
type CatalogClient struct {
	baseURL    string
	minVolume  float64
	maxMarkets int
	client     *xhttp.Client
	log        *logger.Logger
}

// NewCatalogClient creates a catalog client.
func NewCatalogClient(baseURL string, timeout time.Duration, minVolume float64, maxMarkets int, log *logger.Logger) *CatalogClient {
	return &CatalogClient{
		baseURL:    baseURL,
		minVolume:  minVolume,
		maxMarkets: maxMarkets,
		client:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:        log,
	}
}

type catalogOutcome struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TokenID string `json:"token_id"`
}

type catalogMarket struct {
	ID        string           `json:"id"`
	Question  string           `json:"question"`
	Slug      string           `json:"slug"`
	Platform  string           `json:"platform"`
	EventID   string           `json:"event_id"`
	Outcomes  []catalogOutcome `json:"outcomes"`
	EndDate   string           `json:"end_date"`
	Volume24h float64          `json:"volume_24h"`
	Liquidity float64          `json:"liquidity"`
	Active    bool             `json:"active"`
	Closed    bool             `json:"closed"`
}

type catalogRelation struct {
	Type     string `json:"type"`
	StrictID string `json:"strict_id"`
	LooseID  string `json:"loose_id"`
}

type catalogEvent struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	SumBound  float64           `json:"sum_bound"`
	Exclusive bool              `json:"exclusive"`
	MarketIDs []string          `json:"market_ids"`
	Relations []catalogRelation `json:"relations"`
}

// Markets fetches the tracked universe. Markets are ranked by 24h volume and
// capped so one noisy refresh cannot blow up the analysis workload.
func (c *CatalogClient) Markets(ctx context.Context) ([]*models.Market, []*models.Event, error) {
	var rawMarkets []catalogMarket
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/markets",
		QueryParams: map[string][]string{
			"active": {"true"},
			"limit":  {strconv.Itoa(c.maxMarkets * 2)},
		},
	}, &rawMarkets)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog markets: %w", err)
	}

	var rawEvents []catalogEvent
	err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/events",
		QueryParams: map[string][]string{
			"active": {"true"},
		},
	}, &rawEvents)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog events: %w", err)
	}

	markets := make([]*models.Market, 0, len(rawMarkets))
	for _, rm := range rawMarkets {
		if rm.Closed || !rm.Active || rm.Volume24h < c.minVolume {
			continue
		}
		m := &models.Market{
			ID:        rm.ID,
			Question:  rm.Question,
			Slug:      rm.Slug,
			Platform:  models.Platform(rm.Platform),
			EventID:   rm.EventID,
			Volume24h: rm.Volume24h,
			Liquidity: rm.Liquidity,
		}
		if t, err := time.Parse(time.RFC3339, rm.EndDate); err == nil {
			m.EndDate = t
		}
		for _, ro := range rm.Outcomes {
			m.Outcomes = append(m.Outcomes, models.Outcome{
				ID:      ro.ID,
				Name:    ro.Name,
				TokenID: ro.TokenID,
			})
		}
		markets = append(markets, m)
	}

	sort.Slice(markets, func(i, j int) bool {
		return markets[i].Volume24h > markets[j].Volume24h
	})
	if len(markets) > c.maxMarkets {
		markets = markets[:c.maxMarkets]
	}

	tracked := make(map[string]bool, len(markets))
	for _, m := range markets {
		tracked[m.ID] = true
	}

	events := make([]*models.Event, 0, len(rawEvents))
	for _, re := range rawEvents {
		ids := make([]string, 0, len(re.MarketIDs))
		for _, id := range re.MarketIDs {
			if tracked[id] {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		ev := &models.Event{
			ID:        re.ID,
			Title:     re.Title,
			SumBound:  re.SumBound,
			Exclusive: re.Exclusive,
			MarketIDs: ids,
		}
		for _, rr := range re.Relations {
			if !tracked[rr.StrictID] || !tracked[rr.LooseID] {
				continue
			}
			ev.Relations = append(ev.Relations, models.Relation{
				Type:     models.RelationType(rr.Type),
				StrictID: rr.StrictID,
				LooseID:  rr.LooseID,
			})
		}
		events = append(events, ev)
	}

	c.log.Debug("catalog: refreshed",
		logger.Int("markets", len(markets)),
		logger.Int("events", len(events)))
	return markets, events, nil
}
