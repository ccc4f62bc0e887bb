package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/five82/sift/internal/config"
	"github.com/five82/sift/internal/logging"
	"github.com/five82/sift/internal/meili"
	"github.com/five82/sift/internal/metrics"
	"github.com/five82/sift/internal/poller"
	"github.com/five82/sift/internal/prefs"
	"github.com/five82/sift/internal/state"
)

const (
	metricsNamespace = "sift"
	metricsSubsystem = "client"
)

// ErrUsage marks command-line mistakes. The caller prints usage for it.
var ErrUsage = errors.New("usage")

// Options configure one sift invocation.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/sift/prefs.toml
	Args       []string
	Stdout     io.Writer
	Stderr     io.Writer

	// HTTPClient replaces the default transport. Metrics still wrap it.
	HTTPClient meili.Doer
	// Logger replaces the logger built from the config.
	Logger *zap.Logger
}

// env carries the dependencies shared by every command.
type env struct {
	cfg       config.Config
	prefs     prefs.Prefs
	prefsPath string
	client    *meili.Client
	poller    *poller.Poller
	store     *state.Store
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	logger    *zap.Logger
	stdout    io.Writer
	stderr    io.Writer
}

// Run executes the command named by opts.Args until it finishes or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	cmd, ok := lookupCommand(opts.Args[0])
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, opts.Args[0])
	}

	e, err := newEnv(opts)
	if err != nil {
		return err
	}
	defer func() { _ = e.logger.Sync() }()

	if e.cfg.MetricsAddr != "" {
		stop, err := serveMetrics(e.cfg.MetricsAddr, e.registry, e.logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	e.logger.Debug("running command",
		zap.String("command", cmd.name),
		zap.String("endpoint", e.client.Endpoint()),
	)
	return cmd.run(ctx, e, opts.Args[1:])
}

func newEnv(opts Options) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	prefsPath := opts.PrefsPath
	if strings.TrimSpace(prefsPath) == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, _ := prefs.Load(prefsPath)

	logger := opts.Logger
	if logger == nil {
		logger, err = logging.New(cfg.LogLevel, cfg.LogEncoding)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(metricsNamespace, metricsSubsystem, registry)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	var transport meili.Doer = &http.Client{Timeout: cfg.RequestTimeout}
	if opts.HTTPClient != nil {
		transport = opts.HTTPClient
	}

	client, err := meili.NewClient(meili.Options{
		Endpoint:       cfg.Endpoint,
		APIKey:         cfg.APIKey,
		HTTPClient:     m.Doer(transport),
		RequestTimeout: cfg.RequestTimeout,
		RequestIDs:     cfg.RequestIDs,
		Logger:         logger.Named("client"),
	})
	if err != nil {
		return nil, fmt.Errorf("init meilisearch client: %w", err)
	}

	store := &state.Store{}
	e := &env{
		cfg:       cfg,
		prefs:     userPrefs,
		prefsPath: prefsPath,
		client:    client,
		store:     store,
		metrics:   m,
		registry:  registry,
		logger:    logger,
		stdout:    opts.Stdout,
		stderr:    opts.Stderr,
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}
	e.poller = newPoller(cfg, client, store, m, logger)
	return e, nil
}
