// Package cache wraps memcached for per-owner, per-period summary caching.
package cache

import (
	"strconv"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"expense-tracker/internal/logger"
)

const keyBase = 10

type config interface {
	Hosts() []string
}

type MemcacheClient struct {
	client *memcache.Client
}

func NewMemcache(config config) (*MemcacheClient, error) {
	logger.Info("memcached hosts", zap.Strings("hosts", config.Hosts()))
	mc := memcache.New(config.Hosts()...)
	return &MemcacheClient{mc}, mc.Ping()
}

// formatKey builds "<ownerID>:<period start>"; one entry per owner and window.
func formatKey(ownerID int64, periodKey string) string {
	return strconv.FormatInt(ownerID, keyBase) + ":" + periodKey
}

func (mc *MemcacheClient) CacheSummary(ownerID int64, periodKey, payload string) error {
	return mc.client.Set(&memcache.Item{
		Key:   formatKey(ownerID, periodKey),
		Value: []byte(payload),
	})
}

func (mc *MemcacheClient) GetSummary(ownerID int64, periodKey string) (string, error) {
	item, err := mc.client.Get(formatKey(ownerID, periodKey))
	if err != nil {
		return "", err
	}
	return string(item.Value), nil
}

func (mc *MemcacheClient) InvalidateSummaries(ownerID int64, periodKeys []string) error {
	logger.Info("invalidate summary cache", zap.Int64("ownerID", ownerID), zap.Strings("periods", periodKeys))

	for _, key := range periodKeys {
		err := mc.client.Delete(formatKey(ownerID, key))
		if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			return err
		}
	}
	return nil
}
