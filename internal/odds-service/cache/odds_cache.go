package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda respostas da API de leitura (times, rodadas) por pouco tempo
type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func keyFor(name string) string { return "odds-service:" + name }

// Get decodifica o valor em dst; false quando a chave não existe
func (c *Cache) Get(ctx context.Context, name string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyFor(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) Set(ctx context.Context, name string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyFor(name), b, ttl).Err()
}
