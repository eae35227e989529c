package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 1

// Pool fans a sweep out to a fixed set of workers using consistent hashing on
// the tracking code, so one code is always handled by the same worker.
type Pool struct {
	workers int
	log     zerolog.Logger
}

// NewPool creates a Pool with numWorkers sharded workers.
// If numWorkers <= 0, a single worker is used.
func NewPool(numWorkers int, log zerolog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &Pool{workers: numWorkers, log: log}
}

// Workers returns the number of workers per run.
func (p *Pool) Workers() int {
	return p.workers
}

// Run calls fn once for every index of keys and returns when all calls are
// done. Keys sharing a worker run in slice order.
func (p *Pool) Run(ctx context.Context, keys []string, fn func(ctx context.Context, i int)) {
	if len(keys) == 0 {
		return
	}

	shards := make([][]int, p.workers)
	for i, key := range keys {
		s := p.shardIndex(key)
		shards[s] = append(shards[s], i)
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for id, idx := range shards {
		if len(idx) == 0 {
			continue
		}
		g.Go(func() error {
			p.log.Debug().Int("worker_id", id).Int("keys", len(idx)).Msg("worker started")
			for _, i := range idx {
				fn(ctx, i)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// shardIndex maps a tracking code deterministically to a worker index.
func (p *Pool) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.workers))
}
