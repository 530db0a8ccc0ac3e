package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

// OddsCache guarda a cotação atual de cada seleção num hash por partida:
// odds:latest:{match_id} -> {selection_id: json(OddsQuote)}
// e a versão (request_time, id) de cada uma em odds:latest:{match_id}:ver.
// Uma cotação só substitui a gravada quando é mais nova, a mesma regra do
// DISTINCT ON do Postgres.
type OddsCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewOddsCache(c *redis.Client, ttl time.Duration) *OddsCache {
	return &OddsCache{Client: c, TTL: ttl}
}

func oddsKey(matchID int64) string { return "odds:latest:" + strconv.FormatInt(matchID, 10) }

func versionKey(matchID int64) string { return oddsKey(matchID) + ":ver" }

// KEYS[1] = cotações, KEYS[2] = versões
// ARGV[1] = ttl em ms (0 não expira), depois trincas (seleção, versão, json)
// versões têm largura fixa, então comparar strings é comparar (request_time, id)
const setLatestLua = `
local written = 0
for i = 2, #ARGV, 3 do
    local sel, ver, payload = ARGV[i], ARGV[i + 1], ARGV[i + 2]
    local cur = redis.call('HGET', KEYS[2], sel)
    if (not cur) or ver > cur then
        redis.call('HSET', KEYS[1], sel, payload)
        redis.call('HSET', KEYS[2], sel, ver)
        written = written + 1
    end
end
local ttl = tonumber(ARGV[1])
if ttl > 0 then
    redis.call('PEXPIRE', KEYS[1], ttl)
    redis.call('PEXPIRE', KEYS[2], ttl)
end
return written
`

var setLatestScript = redis.NewScript(setLatestLua)

// quoteVersion ordena como (request_time, id); horários antes de 1970 valem zero
func quoteVersion(q ledger.OddsQuote) string {
	t := q.RequestTime.UTC()
	secs, nanos := t.Unix(), t.Nanosecond()
	if secs < 0 {
		secs, nanos = 0, 0
	}
	return fmt.Sprintf("%020d.%09d.%020d", secs, nanos, q.ID)
}

// SetLatest grava só as cotações mais novas que as do cache; a expiração é
// renovada a cada escrita
func (c *OddsCache) SetLatest(ctx context.Context, quotes []ledger.OddsQuote) error {
	_, err := c.setLatest(ctx, quotes)
	return err
}

// setLatest devolve quantas cotações entraram no cache
func (c *OddsCache) setLatest(ctx context.Context, quotes []ledger.OddsQuote) (int, error) {
	if len(quotes) == 0 {
		return 0, nil
	}

	byMatch := make(map[int64][]any)
	for _, q := range quotes {
		b, err := json.Marshal(q)
		if err != nil {
			return 0, fmt.Errorf("marshal quote: %w", err)
		}
		byMatch[q.MatchID] = append(byMatch[q.MatchID], strconv.FormatInt(q.SelectionID, 10), quoteVersion(q), b)
	}

	written := 0
	for matchID, fields := range byMatch {
		args := append([]any{c.TTL.Milliseconds()}, fields...)
		n, err := setLatestScript.Run(ctx, c.Client, []string{oddsKey(matchID), versionKey(matchID)}, args...).Int()
		if err != nil {
			return written, fmt.Errorf("redis: set latest odds for match %d: %w", matchID, err)
		}
		written += n
	}
	return written, nil
}

// Match devolve as cotações em cache da partida; false quando não há nada
func (c *OddsCache) Match(ctx context.Context, matchID int64) ([]ledger.OddsQuote, bool, error) {
	m, err := c.Client.HGetAll(ctx, oddsKey(matchID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(m) == 0 {
		return nil, false, nil
	}

	out := make([]ledger.OddsQuote, 0, len(m))
	for field, raw := range m {
		var q ledger.OddsQuote
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, false, fmt.Errorf("decode cached quote %s: %w", field, err)
		}
		out = append(out, q)
	}
	return out, true, nil
}
