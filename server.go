package codecanvas

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"pkt.systems/codecanvas/core"
	"pkt.systems/codecanvas/httpapi"
	"pkt.systems/codecanvas/internal/command"
	"pkt.systems/codecanvas/internal/eventbus"
	"pkt.systems/codecanvas/internal/metrics"
	"pkt.systems/codecanvas/internal/submit"
	"pkt.systems/codecanvas/schema"
	"pkt.systems/codecanvas/sshserver"
	"pkt.systems/pslog"
)

// Server composes the HTTP and SSH front ends over one core service.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service             schema.ServiceConfig
	HTTP                httpapi.Config
	SSH                 sshserver.Config
	Submit              SubmitConfig
	HubHistory          int
	DisableAuditLogging bool
}

// SubmitConfig selects where submissions are delivered besides the log.
type SubmitConfig struct {
	// NATSURL enables publishing submissions to NATS when set.
	NATSURL     string
	NATSSubject string
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	ServiceDeps core.ServiceDeps
	// Registry receives the metrics collectors and backs /metrics. A fresh
	// registry is used when nil.
	Registry *prometheus.Registry
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableSSH  bool
}

// WithHTTP enables the HTTP API server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH server.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// New constructs a composable codecanvas server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}

	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized

	serviceDeps := deps.ServiceDeps
	logger := serviceDeps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
		serviceDeps.Logger = logger
	}

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if serviceDeps.Metrics == nil {
		collectors, err := metrics.New(registry)
		if err != nil {
			return nil, err
		}
		serviceDeps.Metrics = collectors
	}

	var closers []io.Closer
	if serviceDeps.Submissions == nil {
		sink, closer, err := buildSubmissions(cfg.Submit, logger)
		if err != nil {
			return nil, err
		}
		serviceDeps.Submissions = sink
		if closer != nil {
			closers = append(closers, closer)
		}
	}

	var hub *httpapi.Hub
	var bus *eventbus.Bus
	if options.enableSSH {
		bus = eventbus.New(logger)
	}
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HubHistory)
	}
	sinks := make([]core.EventSink, 0, 3)
	if serviceDeps.EventSink != nil {
		sinks = append(sinks, serviceDeps.EventSink)
	}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if bus != nil {
		sinks = append(sinks, bus)
	}
	if len(sinks) == 1 {
		serviceDeps.EventSink = sinks[0]
	} else {
		serviceDeps.EventSink = eventFanout{sinks: sinks}
	}

	service, err := core.NewService(cfg.Service, serviceDeps)
	if err != nil {
		closeAll(closers, logger)
		return nil, err
	}
	cmdHandler := command.NewHandler(service, command.HandlerConfig{
		DisableAuditLogging: cfg.DisableAuditLogging,
	})

	var httpSrv *httpapi.Server
	var sshSrv *sshserver.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, service, cmdHandler, hub, httpapi.ServerDeps{
			Metrics:  serviceDeps.Metrics,
			Gatherer: registry,
		})
	}
	if options.enableSSH {
		sshSrv = &sshserver.Server{
			Addr:         cfg.SSH.Addr,
			HostKeyPath:  cfg.SSH.HostKeyPath,
			Service:      service,
			Handler:      cmdHandler,
			EventBus:     bus,
			Prompt:       cfg.SSH.Prompt,
			InitialLines: cfg.SSH.InitialLines,
			AllowAttach:  cfg.SSH.AllowAttach,
		}
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		httpSrv: httpSrv,
		sshSrv:  sshSrv,
		closers: closers,
	}, nil
}

// buildSubmissions wires the log sink and, when configured, a NATS
// publisher behind the schema validator.
func buildSubmissions(cfg SubmitConfig, logger pslog.Logger) (core.SubmissionSink, io.Closer, error) {
	validator, err := submit.NewValidator()
	if err != nil {
		return nil, nil, err
	}
	sinks := submit.Multi{submit.NewLogSink(logger)}
	var closer io.Closer
	if cfg.NATSURL != "" {
		natsSink, err := submit.DialNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("submit nats connected", "subject", natsSink.Subject())
		sinks = append(sinks, natsSink)
		closer = natsSink
	}
	return submit.Validated(sinks, validator), closer, nil
}

func closeAll(closers []io.Closer, log pslog.Logger) {
	for _, closer := range closers {
		if err := closer.Close(); err != nil {
			log.Warn("server close failed", "err", err)
		}
	}
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	service core.Service
	httpSrv *httpapi.Server
	sshSrv  *sshserver.Server
	closers []io.Closer
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
	stopped bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"ssh", s.options.enableSSH,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"ssh_addr", s.cfg.SSH.Addr,
		"nats", s.cfg.Submit.NATSURL != "",
	)
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.options.enableSSH && s.sshSrv != nil {
		go func() {
			if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("ssh server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	stopped := s.stopped
	s.stopped = true
	log := s.logger
	s.mu.Unlock()
	if !started || stopped {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	closeAll(s.closers, log)
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
