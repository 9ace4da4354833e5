package badger

import (
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/profefe/jsprof/pkg/log"
)

// cache tracks known services with the latest expiration time of their profiles,
// so listing services doesn't scan the service index.
type cache struct {
	mu       sync.RWMutex
	services map[string]uint64
	now      func() time.Time
}

func newCache(logger *log.Logger, db *badger.DB) *cache {
	c := &cache{
		services: make(map[string]uint64),
		now:      time.Now,
	}

	if err := c.prefillServices(db); err != nil {
		logger.Errorw("could not prefill services cache", "err", err)
	}

	return c
}

func (c *cache) prefillServices(db *badger.DB) error {
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // keys-only iteration

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{serviceIndexID}

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			service := key[1 : len(key)-sizeOfProfileID-8] // 8 is for ts-nanos
			c.PutService(string(service), it.Item().ExpiresAt())
		}
		return nil
	})
}

// PutService records a service profile expiring at expiresAt (unix seconds, 0 is never).
func (c *cache) PutService(service string, expiresAt uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.services[service]; ok && (v == 0 || (expiresAt != 0 && v > expiresAt)) {
		return
	}
	c.services[service] = expiresAt
}

// Services returns the sorted list of services with unexpired profiles.
func (c *cache) Services() []string {
	now := uint64(c.now().Unix())

	c.mu.Lock()
	services := make([]string, 0, len(c.services))
	for s, v := range c.services {
		if v == 0 || v > now {
			services = append(services, s)
		} else {
			// the key has expired
			delete(c.services, s)
		}
	}
	c.mu.Unlock()

	sort.Strings(services)

	return services
}
