package betfair

import (
	"context"
	"time"
)

type Competition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CompetitionResult struct {
	Competition       Competition `json:"competition"`
	MarketCount       int         `json:"marketCount"`
	CompetitionRegion string      `json:"competitionRegion"`
}

type Event struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	OpenDate time.Time `json:"openDate"`
}

type EventResult struct {
	Event       Event `json:"event"`
	MarketCount int   `json:"marketCount"`
}

type RunnerCatalog struct {
	SelectionID int64  `json:"selectionId"`
	RunnerName  string `json:"runnerName"`
}

type MarketCatalogue struct {
	MarketID   string          `json:"marketId"`
	MarketName string          `json:"marketName"`
	Event      Event           `json:"event"`
	Runners    []RunnerCatalog `json:"runners"`
}

type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type ExchangePrices struct {
	AvailableToBack []PriceSize `json:"availableToBack"`
	AvailableToLay  []PriceSize `json:"availableToLay"`
}

type Runner struct {
	SelectionID     int64          `json:"selectionId"`
	Status          string         `json:"status"`
	LastPriceTraded *float64       `json:"lastPriceTraded"`
	TotalMatched    *float64       `json:"totalMatched"`
	Ex              ExchangePrices `json:"ex"`
}

// BestBack devolve o primeiro nível de back; nil quando não há oferta
func (r Runner) BestBack() *PriceSize {
	if len(r.Ex.AvailableToBack) == 0 {
		return nil
	}
	return &r.Ex.AvailableToBack[0]
}

func (r Runner) BestLay() *PriceSize {
	if len(r.Ex.AvailableToLay) == 0 {
		return nil
	}
	return &r.Ex.AvailableToLay[0]
}

type MarketBook struct {
	MarketID     string   `json:"marketId"`
	Status       string   `json:"status"`
	TotalMatched float64  `json:"totalMatched"`
	Runners      []Runner `json:"runners"`
}

type marketFilter struct {
	EventTypeIDs    []string `json:"eventTypeIds,omitempty"`
	CompetitionIDs  []string `json:"competitionIds,omitempty"`
	EventIDs        []string `json:"eventIds,omitempty"`
	MarketTypeCodes []string `json:"marketTypeCodes,omitempty"`
}

func (c *Client) ListCompetitions(ctx context.Context) ([]CompetitionResult, error) {
	var out []CompetitionResult
	err := c.call(ctx, "listCompetitions", map[string]any{
		"filter": marketFilter{EventTypeIDs: []string{soccerEventTypeID}},
	}, &out)
	return out, err
}

func (c *Client) ListEvents(ctx context.Context, competitionID string) ([]EventResult, error) {
	var out []EventResult
	err := c.call(ctx, "listEvents", map[string]any{
		"filter": marketFilter{EventTypeIDs: []string{soccerEventTypeID}, CompetitionIDs: []string{competitionID}},
	}, &out)
	return out, err
}

// MatchOddsCatalogue devolve o mercado MATCH_ODDS do evento; false quando não existe
func (c *Client) MatchOddsCatalogue(ctx context.Context, eventID string) (MarketCatalogue, bool, error) {
	var out []MarketCatalogue
	err := c.call(ctx, "listMarketCatalogue", map[string]any{
		"filter":           marketFilter{EventIDs: []string{eventID}, MarketTypeCodes: []string{"MATCH_ODDS"}},
		"maxResults":       1,
		"marketProjection": []string{"COMPETITION", "EVENT", "EVENT_TYPE", "MARKET_DESCRIPTION", "RUNNER_DESCRIPTION"},
	}, &out)
	if err != nil || len(out) == 0 {
		return MarketCatalogue{}, false, err
	}
	return out[0], true, nil
}

func (c *Client) MarketBook(ctx context.Context, marketID string) (MarketBook, bool, error) {
	var out []MarketBook
	err := c.call(ctx, "listMarketBook", map[string]any{
		"marketIds":       []string{marketID},
		"priceProjection": map[string]any{"priceData": []string{"EX_BEST_OFFERS"}},
	}, &out)
	if err != nil || len(out) == 0 {
		return MarketBook{}, false, err
	}
	return out[0], true, nil
}
