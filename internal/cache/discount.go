// Package cache keeps hot read models in Redis.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/redis/go-redis/v9"

	"github.com/Parzival048/ecomreact/internal/domain/discount"
)

// DefaultLiveDiscountsKey is the Redis key holding the live discount set.
const DefaultLiveDiscountsKey = "shop:discounts:live"

var _ discount.Cache = (*Discounts)(nil)

// Discounts caches the live discount set as a JSON array. A counter stored
// next to the set is bumped by every invalidation; a fill only lands when the
// counter still holds the value seen by the read that missed.
type Discounts struct {
	client     redis.UniversalClient
	key        string
	versionKey string
	ttl        time.Duration
}

// NewDiscounts creates a cache entry under key that expires after ttl.
func NewDiscounts(client redis.UniversalClient, key string, ttl time.Duration) *Discounts {
	if key == "" {
		key = DefaultLiveDiscountsKey
	}
	return &Discounts{client: client, key: key, versionKey: key + ":version", ttl: ttl}
}

// Get returns the cached set, or a miss carrying the current generation.
func (c *Discounts) Get(ctx context.Context) (discount.CacheEntry, error) {
	vals, err := c.client.MGet(ctx, c.key, c.versionKey).Result()
	if err != nil {
		return discount.CacheEntry{}, errors.Wrap(err, "get live discounts")
	}
	generation, err := parseGeneration(vals[1])
	if err != nil {
		return discount.CacheEntry{}, err
	}
	entry := discount.CacheEntry{Generation: generation}

	data, ok := vals[0].(string)
	if !ok {
		return entry, nil
	}
	if entry.Discounts, err = decodeDiscounts(jx.DecodeStr(data)); err != nil {
		return discount.CacheEntry{}, errors.Wrap(err, "decode live discounts")
	}
	entry.Found = true
	return entry, nil
}

// Set stores discounts if no invalidation happened since the read that
// observed generation. A lost race is not an error.
func (c *Discounts) Set(ctx context.Context, generation int64, discounts []discount.Discount) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeDiscounts(e, discounts)
	data := e.Bytes()

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		v, err := tx.Get(ctx, c.versionKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		current, err := parseGeneration(v)
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.key, data, c.ttl)
			return nil
		})
		return err
	}, c.versionKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return errors.Wrap(err, "set live discounts")
	}
	return nil
}

// Invalidate drops the cached set and starts a new generation.
func (c *Discounts) Invalidate(ctx context.Context) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.versionKey)
	pipe.Del(ctx, c.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "invalidate live discounts")
	}
	return nil
}

func parseGeneration(v any) (int64, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse cache generation")
	}
	return n, nil
}

func encodeDiscounts(e *jx.Encoder, list []discount.Discount) {
	e.ArrStart()
	for _, d := range list {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(d.ID)
		e.FieldStart("name")
		e.Str(d.Name)
		e.FieldStart("description")
		e.Str(d.Description)
		e.FieldStart("pct")
		e.Int(d.Percentage)
		e.FieldStart("start")
		e.Str(d.StartDate.Format(time.RFC3339Nano))
		e.FieldStart("end")
		e.Str(d.EndDate.Format(time.RFC3339Nano))
		e.FieldStart("active")
		e.Bool(d.IsActive)
		e.FieldStart("all")
		e.Bool(d.ApplyToAllProducts)
		e.FieldStart("products")
		e.ArrStart()
		for _, id := range d.ApplicableProducts {
			e.Str(id)
		}
		e.ArrEnd()
		e.FieldStart("image")
		e.Str(d.FeaturedImage)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func decodeDiscounts(d *jx.Decoder) ([]discount.Discount, error) {
	list := []discount.Discount{}
	err := d.Arr(func(d *jx.Decoder) error {
		var item discount.Discount
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				item.ID, err = d.Str()
			case "name":
				item.Name, err = d.Str()
			case "description":
				item.Description, err = d.Str()
			case "pct":
				item.Percentage, err = d.Int()
			case "start":
				item.StartDate, err = decodeTime(d)
			case "end":
				item.EndDate, err = decodeTime(d)
			case "active":
				item.IsActive, err = d.Bool()
			case "all":
				item.ApplyToAllProducts, err = d.Bool()
			case "products":
				err = d.Arr(func(d *jx.Decoder) error {
					id, err := d.Str()
					if err != nil {
						return err
					}
					item.ApplicableProducts = append(item.ApplicableProducts, id)
					return nil
				})
			case "image":
				item.FeaturedImage, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		list = append(list, item)
		return nil
	})
	return list, err
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}
