package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/agw/internal/audit"
	"github.com/cuemby/agw/internal/configstore"
	"github.com/cuemby/agw/internal/controlplane"
	"github.com/cuemby/agw/internal/fastpath"
	"github.com/cuemby/agw/internal/gateway"
	"github.com/cuemby/agw/internal/gwtypes"
	"github.com/cuemby/agw/internal/metrics"
	"github.com/cuemby/agw/internal/pluginvm"
	"github.com/cuemby/agw/internal/resources"
	"github.com/cuemby/agw/pkg/log"
)

// Config carries every externally-configurable knob named in the CLI
// surface (cmd/agwd).
type Config struct {
	NodeID          string
	ControlPlaneURL string
	CertDir         string
	ResourcesFile   string
	MetricsAddr     string
	CgroupPath      string
	DisableFastpath bool
	AuditDBPath     string
}

// Run blocks until ctx is cancelled or an irrecoverable startup failure
// occurs (the resources file cannot be read or parsed, or no listener
// bound and the fallback listener also failed to bind). It performs, in
// order: control-plane bootstrap, resource registry construction,
// listener setup, background-loop startup, fast-path attach, and
// metrics server startup.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithComponent("bootstrap")

	store := configstore.New()
	client := controlplane.New(cfg.ControlPlaneURL, cfg.NodeID)

	snap, err := client.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	store.Store(snap)
	metrics.SetConfigVersion(snap.VersionID)
	logger.Info().Str("version", snap.VersionID).Int("listeners", len(snap.Listeners)).Msg("bootstrap snapshot received")

	resourcesCfg, err := resources.LoadConfig(cfg.ResourcesFile)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	reg, err := resources.NewRegistry(ctx, resourcesCfg)
	if err != nil {
		logger.Error().Err(err).Msg("external resource registry failed to initialize, plugin host calls will see unknown pools")
		reg = nil
	} else {
		defer reg.Close()
	}

	vm := pluginvm.New(reg)
	engine := gateway.New(store, vm)

	if cfg.AuditDBPath != "" {
		auditLog, err := audit.Open(cfg.AuditDBPath)
		if err != nil {
			logger.Error().Err(err).Msg("audit log unavailable, deny/error verdicts will not be persisted")
		} else {
			defer auditLog.Close()
			engine.SetAuditLog(auditLog)
		}
	}

	listeners := openSnapshotListeners(cfg.CertDir, snap.Listeners, engine, logger)
	if len(listeners) == 0 {
		logger.Warn().Msg("no listener in the bootstrap snapshot could be bound, installing plaintext fallback")
		fallback, err := serveHTTP("fallback", fallbackAddr, engine, func(name string, err error) {
			logger.Error().Err(err).Str("listener", name).Msg("listener serve error")
		})
		if err != nil {
			return fmt.Errorf("bootstrap: fallback listener: %w", err)
		}
		listeners = append(listeners, fallback)
	}

	go client.Run(ctx, store)
	go reportModuleCacheSize(ctx, vm)

	fp := fastpath.New(cfg.CgroupPath, cfg.DisableFastpath)
	if err := fp.Attach(); err != nil {
		logger.Warn().Err(err).Msg("kernel fast path attach failed, continuing without it")
	}
	defer fp.Close()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, l := range listeners {
		if err := l.server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("listener", l.name).Msg("listener shutdown error")
		}
	}
	return nil
}

func openSnapshotListeners(certDir string, specs []gwtypes.Listener, handler http.Handler, logger zerolog.Logger) []*boundListener {
	listeners := make([]*boundListener, 0, len(specs))
	for _, l := range specs {
		bl, err := openListener(certDir, l, handler, func(name string, err error) {
			logger.Error().Err(err).Str("listener", name).Msg("listener serve error")
		})
		if err != nil {
			logger.Error().Err(err).Str("listener", l.Name).Msg("failed to bind listener, skipping")
			continue
		}
		listeners = append(listeners, bl)
	}
	return listeners
}

func reportModuleCacheSize(ctx context.Context, vm *pluginvm.VM) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetModulesCached(vm.CachedModuleCount())
		}
	}
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info().Str("addr", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
