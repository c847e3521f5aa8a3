package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openvest/vestd/api/allocations"
	"github.com/openvest/vestd/auth"
	"github.com/openvest/vestd/config"
	"github.com/openvest/vestd/core/claim"
	coremetrics "github.com/openvest/vestd/core/metrics"
	"github.com/openvest/vestd/core/registry"
	"github.com/openvest/vestd/core/store"
	coretransfer "github.com/openvest/vestd/core/transfer"
	"github.com/openvest/vestd/core/vesting"
	"github.com/openvest/vestd/infra/events"
	"github.com/openvest/vestd/infra/logger"
	"github.com/openvest/vestd/infra/metrics"
	"github.com/openvest/vestd/infra/transfer"
	"github.com/openvest/vestd/internal/eventbus"
	"github.com/openvest/vestd/internal/keymutex"
)

// Service wires the registry, claim engine, stores and observability
// together and runs the HTTP surface.
type Service struct {
	Registry *registry.Registry
	Engine   *claim.Engine

	store       store.Store
	bus         eventbus.Bus
	publisher   *events.Publisher
	sink        coremetrics.Sink
	apiAddr     string
	promEnabled bool
	promPort    string
	log         logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var st store.Store
	var err error
	switch cfg.Store.Backend {
	case "memory":
		st = store.NewMemoryStore()
	default:
		st, err = store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	ids := auth.NewStaticProvider(cfg.Auth.Administrator, cfg.Auth.Delegates)
	locks := keymutex.New()
	bus := eventbus.New()
	clock := vesting.SystemClock{}

	reg, err := registry.New(st, ids, locks, bus, sink, clock, logger.New("registry"),
		cfg.Ledger.TokenType, cfg.Ledger.MaxTotalGranted)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	var tr coretransfer.Transferor
	var creds *auth.ClientCred
	if cfg.Transfer.Authenticated {
		creds = auth.NewClientCred(cfg.Auth)
	}
	tr = transfer.NewHTTPClient(cfg.Transfer, creds)

	eng, err := claim.New(st, ids, tr, locks, bus, sink, clock, logger.New("claim-engine"),
		cfg.Ledger.TokenType)
	if err != nil {
		return nil, fmt.Errorf("claim engine: %w", err)
	}

	svc := &Service{
		Registry:    reg,
		Engine:      eng,
		store:       st,
		bus:         bus,
		sink:        sink,
		apiAddr:     cfg.API.Addr,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
		log:         logg,
	}
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(cfg.Events)
		if err != nil {
			return nil, fmt.Errorf("audit publisher: %w", err)
		}
		svc.publisher = pub
	}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.publisher != nil {
		go s.publisher.Run(ctx, s.bus)
	}
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go s.trackState(ctx)

	mux := http.NewServeMux()
	allocations.New(s.Registry, s.Engine, logger.New("api")).Mount(mux)
	srv := &http.Server{Addr: s.apiAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("api listening on %s", s.apiAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// trackState refreshes registry total gauges periodically.
func (s *Service) trackState(ctx context.Context) {
	rec, ok := s.sink.(coremetrics.StateRecorder)
	if !ok {
		return
	}
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			st, err := s.Registry.StateTotals(ctx)
			if err != nil {
				s.log.Warnf("state totals: %v", err)
				continue
			}
			if err := rec.RecordState(st.TotalGranted, st.TotalWithdrawn); err != nil {
				s.log.Warnf("record state: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.publisher != nil {
		s.publisher.Close()
	}
	s.bus.Close()
	return s.store.Close()
}
