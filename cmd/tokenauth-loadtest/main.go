// Command tokenauth-loadtest measures access validation and full refresh
// rotation throughput against a real or in-process Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type subjectState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		subjects    = flag.Int("subjects", 10000, "number of sessions to issue before measuring")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (validate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}, ContextTimeoutEnabled: true})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}, ContextTimeoutEnabled: true})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := tokenauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("loadtest-signing-key-0123456789ab")
	cfg.RateLimit.Enabled = false
	engine, err := tokenauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]subjectState, *subjects)
	fmt.Printf("issuing %d sessions...\n", *subjects)
	startSeed := time.Now()
	for i := range states {
		s, err := engine.IssueSession(ctx, strconv.Itoa(i+1), tokenauth.RoleUser, fmt.Sprintf("user%d@example.com", i+1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		states[i].access = s.AccessToken
		states[i].refresh = s.RefreshToken
	}
	fmt.Printf("issued in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		access := st.access
		st.mu.Unlock()
		_, err := engine.Authenticate(ctx, access)
		return err
	})

	refreshStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		s, err := engine.RotateBoth(ctx, st.refresh)
		if err != nil {
			return err
		}
		st.access = s.AccessToken
		st.refresh = s.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: access_accepted=%d refresh_full=%d rotation_conflicts=%d\n",
		snap.Counters[tokenauth.MetricAccessAccepted],
		snap.Counters[tokenauth.MetricRefreshFullSuccess],
		snap.Counters[tokenauth.MetricRotationConflict],
	)
}

// runPhase runs op ops times across concurrency workers and records latency.
func runPhase(ops, concurrency int, seedStride int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedStride))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}
