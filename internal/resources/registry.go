package resources

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Registry is the frozen-after-construction set of named external-resource
// handles a plugin invocation's host context can reach. It implements the
// SQL pool "A" (Postgres) / pool "B" (MySQL) split named in the guest ABI.
type Registry struct {
	kv   map[string]*redis.Client
	sqlA map[string]*pgxpool.Pool
	sqlB map[string]*sql.DB
}

// NewRegistry dials every pool named in cfg concurrently — resource files
// commonly name a handful of endpoints across all three pool kinds, and
// there's no reason pgx's connection handshake for one should block mysql's
// or redis's. A single bad DSN fails the whole call: resource definitions
// come from a trusted operator-supplied file, not from the control plane,
// so there is no case analogous to "drop the bad entry and keep going" the
// way there is for a malformed config snapshot.
func NewRegistry(ctx context.Context, cfg *Config) (*Registry, error) {
	reg := &Registry{
		kv:   make(map[string]*redis.Client, len(cfg.KV)),
		sqlA: make(map[string]*pgxpool.Pool, len(cfg.SQLA)),
		sqlB: make(map[string]*sql.DB, len(cfg.SQLB)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for name, dsn := range cfg.KV {
		name, dsn := name, dsn
		g.Go(func() error {
			opts, err := redis.ParseURL(dsn)
			if err != nil {
				return fmt.Errorf("resources: kv %q: parse url: %w", name, err)
			}
			client := redis.NewClient(opts)
			mu.Lock()
			reg.kv[name] = client
			mu.Unlock()
			return nil
		})
	}

	for name, dsn := range cfg.SQLA {
		name, dsn := name, dsn
		g.Go(func() error {
			pool, err := pgxpool.New(gctx, dsn)
			if err != nil {
				return fmt.Errorf("resources: sql_a %q: %w", name, err)
			}
			mu.Lock()
			reg.sqlA[name] = pool
			mu.Unlock()
			return nil
		})
	}

	for name, dsn := range cfg.SQLB {
		name, dsn := name, dsn
		g.Go(func() error {
			db, err := sql.Open("mysql", dsn)
			if err != nil {
				return fmt.Errorf("resources: sql_b %q: %w", name, err)
			}
			mu.Lock()
			reg.sqlB[name] = db
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		reg.Close()
		return nil, err
	}

	return reg, nil
}

// KV returns the named key-value client, if any.
func (r *Registry) KV(name string) (*redis.Client, bool) {
	c, ok := r.kv[name]
	return c, ok
}

// SQLA returns the named Postgres pool (pool kind "A"), if any.
func (r *Registry) SQLA(name string) (*pgxpool.Pool, bool) {
	p, ok := r.sqlA[name]
	return p, ok
}

// SQLB returns the named MySQL pool (pool kind "B"), if any.
func (r *Registry) SQLB(name string) (*sql.DB, bool) {
	db, ok := r.sqlB[name]
	return db, ok
}

// Close releases every pool. Called once at process shutdown.
func (r *Registry) Close() {
	for _, c := range r.kv {
		_ = c.Close()
	}
	for _, p := range r.sqlA {
		p.Close()
	}
	for _, db := range r.sqlB {
		_ = db.Close()
	}
}
