// Package feedsim é o substituto local do feed da Betfair: gera snapshots
// MATCH_ODDS com três seleções por partida e os transmite por WebSocket.
package feedsim

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

const (
	Source          = "feed-simulator"
	DrawSelectionID = 58805
	drawName        = "The Draw"
)

// Match é uma partida do catálogo, com os nomes no formato do feed
type Match struct {
	EventID   string
	HomeTeam  string
	AwayTeam  string
	MatchDate time.Time
}

// DefaultCatalog é usado quando não há calendário disponível
func DefaultCatalog(now time.Time) []Match {
	day := now.UTC().Truncate(24*time.Hour).Add(24*time.Hour + 15*time.Hour)
	pairs := [][2]string{
		{"Arsenal", "Chelsea"},
		{"Liverpool", "Man City"},
		{"Newcastle", "Tottenham"},
		{"Brighton", "Aston Villa"},
	}
	out := make([]Match, 0, len(pairs))
	for i, p := range pairs {
		out = append(out, Match{EventID: "SIM-" + strconv.Itoa(i+1), HomeTeam: p[0], AwayTeam: p[1], MatchDate: day})
	}
	return out
}

// Generator mantém um preço justo por seleção e o move a cada tick
type Generator struct {
	Catalog []Match
	Now     func() time.Time

	mu     sync.Mutex
	rnd    *rand.Rand
	prices map[string][3]float64 // event -> home, away, draw
}

func NewGenerator(catalog []Match, seed int64) *Generator {
	return &Generator{Catalog: catalog, rnd: rand.New(rand.NewSource(seed)), prices: map[string][3]float64{}}
}

// Next gera um snapshot por partida; todos compartilham o mesmo RequestTime
func (g *Generator) Next() []events.OddsQuote {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	requestTime := now().UTC()

	out := make([]events.OddsQuote, 0, len(g.Catalog))
	for i, m := range g.Catalog {
		p, ok := g.prices[m.EventID]
		if !ok {
			p = [3]float64{g.between(1.4, 3.5), g.between(2.0, 5.0), g.between(2.8, 4.5)}
		} else {
			for k := range p {
				p[k] = math.Max(1.01, p[k]*(1+g.between(-0.04, 0.04)))
			}
		}
		g.prices[m.EventID] = p

		out = append(out, events.OddsQuote{
			EventID:     m.EventID,
			MarketID:    "1." + strconv.Itoa(900000+i),
			HomeTeam:    m.HomeTeam,
			AwayTeam:    m.AwayTeam,
			MatchDate:   m.MatchDate.UTC(),
			RequestTime: requestTime,
			Source:      Source,
			Runners: []events.Runner{
				g.runner(SelectionID(m.HomeTeam), m.HomeTeam, "Home win", p[0]),
				g.runner(SelectionID(m.AwayTeam), m.AwayTeam, "Away win", p[1]),
				g.runner(DrawSelectionID, drawName, "Draw", p[2]),
			},
		})
	}
	return out
}

func (g *Generator) runner(id int64, name, typ string, fair float64) events.Runner {
	back := tick(fair)
	lay := tick(fair * 1.02)
	if lay <= back {
		lay = back + 0.01
	}
	backSize := math.Round(g.between(20, 2000)*100) / 100
	laySize := math.Round(g.between(20, 2000)*100) / 100
	matched := math.Round(g.between(1e3, 5e5)*100) / 100
	last := back
	return events.Runner{
		SelectionID:     id,
		RunnerName:      name,
		RunnerType:      typ,
		BestBackPrice:   &back,
		BestBackSize:    &backSize,
		BestLayPrice:    &lay,
		BestLaySize:     &laySize,
		LastPriceTraded: &last,
		TotalMatched:    &matched,
		Status:          "ACTIVE",
	}
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rnd.Float64()*(hi-lo)
}

// tick arredonda para duas casas, como os degraus de preço da exchange abaixo de 2.0
func tick(p float64) float64 {
	return math.Round(p*100) / 100
}

// SelectionID deriva um id estável do nome do time
func SelectionID(team string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(team))
	return int64(h.Sum32()%900000) + 100000
}
