// Copyright 2025 James Ross

// Package replicate orchestrates N statistically independent simulation
// replications, optionally spread across worker goroutines, with
// deterministic per-replication seeding (spec.md section 4.4).
package replicate

import (
	"crypto/rand"
	"encoding/binary"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/flyingrobots/queue-net-sim/internal/network"
	"github.com/flyingrobots/queue-net-sim/internal/seed"
)

func randomBaseSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0x2545F4914F6CDD1D
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// defaultReplications is the documented default n_replications (spec.md
// section 6).
const defaultReplications = 30

// Options configures a replication batch.
type Options struct {
	NumReplications int
	NumEvents       int
	BaseSeed        uint64
	BaseSeedSet     bool
	Warmup          int
	WorkerCount     int // <= 0 selects min(GOMAXPROCS, NumReplications)
}

// DefaultOptions returns the documented defaults: 30 replications, 10^6
// events each, auto base seed, no warmup, auto worker count.
func DefaultOptions() Options {
	return Options{
		NumReplications: defaultReplications,
		NumEvents:       1_000_000,
	}
}

// Result holds the raw per-replication outputs, index-aligned with the
// replication id (spec.md section 4.4, "parallel arrays raw_N, raw_T").
type Result struct {
	RawN []float64
	RawT []float64
}

// Run drives NumReplications independent simulations of blueprint,
// partitioned across worker goroutines. Each worker gets a disjoint
// contiguous index range and a private deep clone of blueprint, so no
// synchronization is needed beyond the final join (spec.md section 5,
// "Concurrency & resource model").
func Run(blueprint *network.QueueSystem, opts Options) (Result, error) {
	n := opts.NumReplications
	if n <= 0 {
		n = defaultReplications
	}
	workerCount := opts.WorkerCount
	if workerCount <= 0 {
		workerCount = runtime.GOMAXPROCS(0)
	}
	if workerCount > n {
		workerCount = n
	}

	baseSeed := opts.BaseSeed
	if !opts.BaseSeedSet {
		baseSeed = randomBaseSeed()
	}

	result := Result{RawN: make([]float64, n), RawT: make([]float64, n)}

	ranges := partition(n, workerCount)
	var g errgroup.Group
	for _, r := range ranges {
		r := r
		g.Go(func() error {
			worker := blueprint.Clone()
			for i := r.start; i < r.end; i++ {
				simOpts := network.SimOptions{
					NumEvents: opts.NumEvents,
					Seed:      seed.Derive(baseSeed, i),
					SeedSet:   true,
					Warmup:    opts.Warmup,
				}
				res, err := worker.Sim(simOpts)
				if err != nil {
					return err
				}
				result.RawN[i] = res.MeanN
				result.RawT[i] = res.MeanT
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return result, nil
}

type indexRange struct{ start, end int }

// partition splits [0, n) into workerCount contiguous, roughly equal
// ranges, so each worker's output indices never overlap another's.
func partition(n, workerCount int) []indexRange {
	ranges := make([]indexRange, 0, workerCount)
	base := n / workerCount
	remainder := n % workerCount
	start := 0
	for w := 0; w < workerCount; w++ {
		size := base
		if w < remainder {
			size++
		}
		if size == 0 {
			continue
		}
		ranges = append(ranges, indexRange{start: start, end: start + size})
		start += size
	}
	return ranges
}
