package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var _ repository.ProductRepository = (*ProductCache)(nil)

// DefaultProductTTL vigencia de un producto en caché si no se configura otra.
const DefaultProductTTL = 5 * time.Minute

// ProductCache decora un ProductRepository con lecturas desde Redis. Cualquier fallo de Redis
// degrada a la lectura directa del repositorio; los productos inexistentes no se cachean.
type ProductCache struct {
	client *goredis.Client
	next   repository.ProductRepository
	ttl    time.Duration
	log    *logger.Logger
}

// NewProductCache construye el decorador. client nil desactiva la caché.
func NewProductCache(client *goredis.Client, next repository.ProductRepository, ttl time.Duration, log *logger.Logger) *ProductCache {
	if ttl <= 0 {
		ttl = DefaultProductTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ProductCache{client: client, next: next, ttl: ttl, log: log}
}

// NewClient abre el cliente y verifica la conexión.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

type cachedProduct struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func productKey(id string) string { return "pos:product:" + id }

// GetByID lee de Redis y, si no está, del repositorio decorado.
func (c *ProductCache) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if c.client == nil {
		return c.next.GetByID(ctx, id)
	}

	raw, err := c.client.Get(ctx, productKey(id)).Bytes()
	switch {
	case err == nil:
		var cp cachedProduct
		if jerr := json.Unmarshal(raw, &cp); jerr == nil {
			return &entity.Product{ID: cp.ID, SKU: cp.SKU, Name: cp.Name, Price: cp.Price, UpdatedAt: cp.UpdatedAt}, nil
		}
		c.log.WithContext(ctx).Warn().Str("product_id", id).Msg("product cache entry corrupted")
	case errors.Is(err, goredis.Nil):
	default:
		c.log.WithContext(ctx).Debug().Err(err).Str("product_id", id).Msg("product cache unavailable")
	}

	p, err := c.next.GetByID(ctx, id)
	if err != nil || p == nil {
		return p, err
	}
	body, err := json.Marshal(cachedProduct{ID: p.ID, SKU: p.SKU, Name: p.Name, Price: p.Price, UpdatedAt: p.UpdatedAt})
	if err == nil {
		if err := c.client.Set(ctx, productKey(id), body, c.ttl).Err(); err != nil {
			c.log.WithContext(ctx).Debug().Err(err).Str("product_id", id).Msg("product cache write failed")
		}
	}
	return p, nil
}

// Invalidate elimina la entrada de un producto, por ejemplo tras un cambio de precio.
func (c *ProductCache) Invalidate(ctx context.Context, id string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, productKey(id)).Err()
}
