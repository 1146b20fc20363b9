package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	pkgredis "github.com/inkhouse/backoffice/pkg/redis"
)

const orderNumberCounter = "order_number"

// NumberSource hands out candidate order numbers. attempt starts at zero and
// grows each time a candidate collided with an existing number.
type NumberSource interface {
	Next(ctx context.Context, tx *gorm.DB, attempt int) (string, error)
}

// FormatOrderNumber renders seq as prefix plus a zero-padded suffix.
func FormatOrderNumber(prefix string, width int, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, width, seq)
}

// parseSequence extracts the numeric suffix of an order number.
func parseSequence(prefix, number string) (int64, bool) {
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(number, prefix), 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

type dbNumberSource struct {
	repo   Repository
	prefix string
	width  int
}

// NewDBNumberSource derives the next number from the highest stored one.
func NewDBNumberSource(repo Repository, prefix string, width int) NumberSource {
	return &dbNumberSource{repo: repo, prefix: prefix, width: width}
}

func (s *dbNumberSource) Next(ctx context.Context, tx *gorm.DB, attempt int) (string, error) {
	seq, err := s.latest(ctx, tx)
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(s.prefix, s.width, seq+1+int64(attempt)), nil
}

func (s *dbNumberSource) latest(ctx context.Context, tx *gorm.DB) (int64, error) {
	latest, err := s.repo.WithTx(tx).LatestOrderNumber(ctx, s.prefix)
	if err != nil {
		return 0, err
	}
	if latest == "" {
		return 0, nil
	}
	seq, ok := parseSequence(s.prefix, latest)
	if !ok {
		return 0, fmt.Errorf("stored order number %q has no numeric suffix", latest)
	}
	return seq, nil
}

type redisNumberSource struct {
	counter  pkgredis.Counter
	fallback *dbNumberSource
}

// NewRedisNumberSource increments a shared counter. The counter is floored to
// the stored maximum whenever it lags behind, e.g. after a Redis flush.
func NewRedisNumberSource(counter pkgredis.Counter, repo Repository, prefix string, width int) NumberSource {
	return &redisNumberSource{
		counter:  counter,
		fallback: &dbNumberSource{repo: repo, prefix: prefix, width: width},
	}
}

func (s *redisNumberSource) Next(ctx context.Context, tx *gorm.DB, attempt int) (string, error) {
	key := s.counter.CounterKey(orderNumberCounter)
	seq, err := s.counter.Incr(ctx, key)
	if err != nil {
		return "", fmt.Errorf("increment order counter: %w", err)
	}
	if attempt > 0 || seq == 1 {
		stored, err := s.fallback.latest(ctx, tx)
		if err != nil {
			return "", err
		}
		if seq <= stored {
			seq = stored + 1 + int64(attempt)
			if err := s.counter.Set(ctx, key, seq, 0); err != nil {
				return "", fmt.Errorf("reset order counter: %w", err)
			}
		}
	}
	return FormatOrderNumber(s.fallback.prefix, s.fallback.width, seq), nil
}
