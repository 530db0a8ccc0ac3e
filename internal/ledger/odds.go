package ledger

import (
	"context"
	"fmt"
	"sort"
)

// LatestOdds é o índice (match_id, selection_id) -> cotação atual.
// Vence a maior request_time; empate fica com o maior ID (inserção mais recente).
type LatestOdds struct {
	byKey   map[QuoteKey]OddsQuote
	byMatch map[int64][]int64 // selection ids ordenados
}

// BuildLatestOdds monta o índice a partir de qualquer conjunto de cotações.
// O resultado não depende da ordem de entrada.
func BuildLatestOdds(quotes []OddsQuote) *LatestOdds {
	l := &LatestOdds{
		byKey:   make(map[QuoteKey]OddsQuote, len(quotes)),
		byMatch: make(map[int64][]int64),
	}
	for _, q := range quotes {
		k := q.Key()
		cur, ok := l.byKey[k]
		if !ok {
			l.byMatch[q.MatchID] = append(l.byMatch[q.MatchID], q.SelectionID)
		}
		if !ok || newer(q, cur) {
			l.byKey[k] = q
		}
	}
	for _, sels := range l.byMatch {
		sort.Slice(sels, func(i, j int) bool { return sels[i] < sels[j] })
	}
	return l
}

func newer(a, b OddsQuote) bool {
	if !a.RequestTime.Equal(b.RequestTime) {
		return a.RequestTime.After(b.RequestTime)
	}
	return a.ID > b.ID
}

// Len é o número de chaves (match, seleção)
func (l *LatestOdds) Len() int { return len(l.byKey) }

func (l *LatestOdds) Get(matchID, selectionID int64) (OddsQuote, bool) {
	q, ok := l.byKey[QuoteKey{MatchID: matchID, SelectionID: selectionID}]
	return q, ok
}

func (l *LatestOdds) HasMatch(matchID int64) bool { return len(l.byMatch[matchID]) > 0 }

// Match devolve as cotações atuais da partida ordenadas por selection_id
func (l *LatestOdds) Match(matchID int64) []OddsQuote {
	sels := l.byMatch[matchID]
	out := make([]OddsQuote, 0, len(sels))
	for _, s := range sels {
		out = append(out, l.byKey[QuoteKey{MatchID: matchID, SelectionID: s}])
	}
	return out
}

// SelectionFor acha a seleção da partida com o rótulo informado
func (l *LatestOdds) SelectionFor(matchID int64, rt RunnerType) (OddsQuote, bool) {
	for _, q := range l.Match(matchID) {
		if q.RunnerType == rt {
			return q, true
		}
	}
	return OddsQuote{}, false
}

// LoadLatestOdds lê todas as cotações candidatas e monta o índice.
// Falha com ErrDataUnavailable se o store estiver inacessível ou vazio.
func LoadLatestOdds(ctx context.Context, s OddsStore) (*LatestOdds, error) {
	quotes, err := s.LatestQuotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if len(quotes) == 0 {
		return nil, ErrDataUnavailable
	}
	return BuildLatestOdds(quotes), nil
}

// LoadLatestOddsForMatch é a versão restrita a uma partida; partida sem cotações
// devolve índice vazio, quem decide o erro é o chamador
func LoadLatestOddsForMatch(ctx context.Context, s OddsStore, matchID int64) (*LatestOdds, error) {
	quotes, err := s.LatestQuotesForMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return BuildLatestOdds(quotes), nil
}
