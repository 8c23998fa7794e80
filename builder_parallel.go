package gcset

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// hashBatchSize is how many items are buffered before handing a batch to
// the worker pool. Batching amortizes channel traffic; item order is
// irrelevant because everything is sorted before encoding.
const hashBatchSize = 1024

// hashPool fans item hashing out to worker goroutines during ingest.
// Hashing is the only parallelizable phase: the encoder is strictly
// sequential because anchor positions depend on cumulative bit offsets.
type hashPool struct {
	group  *errgroup.Group
	gctx   context.Context
	cancel context.CancelFunc
	work   chan [][]byte
	hashFn func([]byte) uint64

	mu  sync.Mutex
	out []uint64

	batch   [][]byte
	drained bool
}

func newHashPool(ctx context.Context, hashFn func([]byte) uint64, workers int) *hashPool {
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)

	p := &hashPool{
		group:  group,
		gctx:   gctx,
		cancel: cancel,
		work:   make(chan [][]byte, workers*2),
		hashFn: hashFn,
		batch:  make([][]byte, 0, hashBatchSize),
	}
	for i := 0; i < workers; i++ {
		group.Go(p.run)
	}
	return p
}

func (p *hashPool) run() error {
	for {
		select {
		case batch, ok := <-p.work:
			if !ok {
				return nil
			}
			local := make([]uint64, 0, len(batch))
			for _, item := range batch {
				local = append(local, p.hashFn(item))
			}
			p.mu.Lock()
			p.out = append(p.out, local...)
			p.mu.Unlock()
		case <-p.gctx.Done():
			return p.gctx.Err()
		}
	}
}

// add buffers one item for hashing. The item is copied because callers
// are free to reuse the slice after Add returns.
func (p *hashPool) add(item []byte) error {
	p.batch = append(p.batch, slices.Clone(item))
	if len(p.batch) >= hashBatchSize {
		return p.flushBatch()
	}
	return nil
}

func (p *hashPool) flushBatch() error {
	if len(p.batch) == 0 {
		return nil
	}
	select {
	case p.work <- p.batch:
		p.batch = make([][]byte, 0, hashBatchSize)
		return nil
	case <-p.gctx.Done():
		return p.gctx.Err()
	}
}

// drain submits the final partial batch, waits for the workers, and
// returns every hash produced. Order is unspecified.
func (p *hashPool) drain() ([]uint64, error) {
	if err := p.flushBatch(); err != nil {
		return nil, err
	}
	close(p.work)
	p.drained = true
	if err := p.group.Wait(); err != nil {
		return nil, err
	}
	return p.out, nil
}

// abort cancels the workers and waits for them to exit. Used by
// Builder.Close when a build is abandoned mid-ingest.
func (p *hashPool) abort() {
	p.cancel()
	if !p.drained {
		p.drained = true
		close(p.work)
	}
	_ = p.group.Wait()
}
