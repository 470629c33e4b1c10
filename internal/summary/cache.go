package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/store"
)

const cacheKeyPrefix = "yourloops:summary:"

// Cache stores fetched MedicalData per patient.
type Cache struct {
	kv  store.KV
	ttl time.Duration
}

func NewCache(kv store.KV, ttl time.Duration) *Cache {
	return &Cache{kv: kv, ttl: ttl}
}

func cacheKey(patientID string) string { return cacheKeyPrefix + patientID }

// Get returns store.ErrMiss when nothing is cached.
func (c *Cache) Get(ctx context.Context, patientID string) (*domain.MedicalData, error) {
	raw, err := c.kv.Get(ctx, cacheKey(patientID))
	if err != nil {
		return nil, err
	}
	var md domain.MedicalData
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("failed to decode cached summary: %w", err)
	}
	return &md, nil
}

func (c *Cache) Put(ctx context.Context, patientID string, md *domain.MedicalData) error {
	if md == nil {
		return c.Invalidate(ctx, patientID)
	}
	b, err := json.Marshal(md)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, cacheKey(patientID), string(b), c.ttl)
}

func (c *Cache) Invalidate(ctx context.Context, patientID string) error {
	return c.kv.Delete(ctx, cacheKey(patientID))
}

// IsMiss reports whether err is a plain cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, store.ErrMiss)
}
