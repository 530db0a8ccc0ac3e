package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
)

// ErrLockHeld indica que outro processo já detém a trava; erros de conexão
// com o Redis voltam embrulhados e nunca casam com ele
var ErrLockHeld = ledger.ErrLockHeld

// só apaga a chave se o token ainda for o nosso
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisLocker implementa trava distribuída com SETNX + TTL.
// Usado para serializar a liquidação de uma partida entre processos.
type RedisLocker struct {
	rdb    *redis.Client
	unlock *redis.Script
	prefix string
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, unlock: redis.NewScript(unlockLua), prefix: "lock:"}
}

// Acquire tenta obter a trava; devolve a função de liberação (pode ser chamada mais de uma vez)
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	k := l.prefix + key

	ok, err := l.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// contexto próprio: o do chamador pode já estar cancelado
		uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlock.Run(uctx, l.rdb, []string{k}, token).Err()
	}, nil
}
