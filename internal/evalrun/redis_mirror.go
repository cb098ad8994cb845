package evalrun

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/choiwab/promptsmith/internal/domain"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// Mirror is a best-effort, read-through cache of run snapshots. It is never
// the system of record: the in-memory Store on the owning replica is always
// authoritative while a run is in flight. A mirror miss or write failure
// never fails a request, it just means GET /eval-runs/{id} has to land on
// the replica that actually owns the run.
type Mirror interface {
	Put(ctx context.Context, run *domain.EvalRun)
	Get(ctx context.Context, runID string) (*domain.EvalRun, bool)
}

type RedisMirror struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewRedisMirror pings addr once at startup; a failure here just means the
// mirror stays disabled for the process lifetime, it never blocks startup.
func NewRedisMirror(addr string, log *logger.Logger) (*RedisMirror, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("evalrun: redis ping: %w", err)
	}
	return &RedisMirror{rdb: rdb, ttl: 2 * time.Hour, log: log.With("component", "evalrun_redis_mirror")}, nil
}

func (m *RedisMirror) Put(ctx context.Context, run *domain.EvalRun) {
	if m == nil || m.rdb == nil || run == nil {
		return
	}
	raw, err := json.Marshal(run)
	if err != nil {
		m.log.Warn("mirror marshal failed", "run_id", run.RunID, "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.rdb.Set(writeCtx, mirrorKey(run.RunID), raw, m.ttl).Err(); err != nil {
		m.log.Warn("mirror write failed", "run_id", run.RunID, "error", err)
	}
}

func (m *RedisMirror) Get(ctx context.Context, runID string) (*domain.EvalRun, bool) {
	if m == nil || m.rdb == nil {
		return nil, false
	}
	raw, err := m.rdb.Get(ctx, mirrorKey(runID)).Bytes()
	if err != nil {
		return nil, false
	}
	var run domain.EvalRun
	if err := json.Unmarshal(raw, &run); err != nil {
		m.log.Warn("mirror decode failed", "run_id", runID, "error", err)
		return nil, false
	}
	return &run, true
}

func (m *RedisMirror) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

func mirrorKey(runID string) string {
	return "promptsmith:evalrun:" + runID
}
