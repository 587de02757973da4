// Package counter buffers hot-path increments in Redis and flushes them to MySQL in batches.
package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const businessViewsKey = "business:counters:views"

// Counter holds the Redis buffer and the database the buffer drains into
type Counter struct {
	rdb *redis.Client
	db  *gorm.DB
}

func New(rdb *redis.Client, db *gorm.DB) *Counter {
	return &Counter{rdb: rdb, db: db}
}

// AddBusinessView increments the pending view counter for a business in Redis
func (c *Counter) AddBusinessView(ctx context.Context, businessID uint) error {
	field := strconv.FormatUint(uint64(businessID), 10)
	return c.rdb.HIncrBy(ctx, businessViewsKey, field, 1).Err()
}

// PendingBusinessViews returns the buffered, not yet flushed views of a business
func (c *Counter) PendingBusinessViews(ctx context.Context, businessID uint) (int64, error) {
	field := strconv.FormatUint(uint64(businessID), 10)
	n, err := c.rdb.HGet(ctx, businessViewsKey, field).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// FlushAll applies every buffered counter to the database
func (c *Counter) FlushAll(ctx context.Context) error {
	return c.flushHashToTable(ctx, businessViewsKey, "businesses", "view_count")
}

// flushHashToTable drains a Redis hash and applies the increments in one UPDATE.
// RENAME to a temporary key keeps increments that arrive during the flush.
func (c *Counter) flushHashToTable(ctx context.Context, redisKey, table, column string) error {
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := c.rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		if err == redis.Nil || strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		return err
	}
	defer c.rdb.Del(ctx, tmpKey)

	data, err := c.rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	sql, args := buildIncrementSQL(table, column, parsePairs(data))
	if sql == "" {
		return nil
	}
	return c.db.WithContext(ctx).Exec(sql, args...).Error
}

type increment struct {
	id  uint64
	inc int64
}

// parsePairs drops malformed and zero entries and sorts by id for stable SQL
func parsePairs(data map[string]string) []increment {
	pairs := make([]increment, 0, len(data))
	for k, v := range data {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		inc, err := strconv.ParseInt(v, 10, 64)
		if err != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, increment{id: id, inc: inc})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })
	return pairs
}

// buildIncrementSQL composes
// UPDATE <table> SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN (...)
func buildIncrementSQL(table, column string, pairs []increment) (string, []interface{}) {
	if len(pairs) == 0 {
		return "", nil
	}

	var b strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	b.WriteString("UPDATE ")
	b.WriteString(table)
	b.WriteString(" SET ")
	b.WriteString(column)
	b.WriteString(" = ")
	b.WriteString(column)
	b.WriteString(" + CASE id")
	for _, p := range pairs {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	b.WriteString(" END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, p.id)
	}
	b.WriteString(")")
	return b.String(), args
}
