package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nlportal/internal/authentication"
	"nlportal/internal/bedrijf"
	"nlportal/internal/casedefinition"
	"nlportal/internal/formulier"
	"nlportal/internal/gateway"
	"nlportal/internal/gemachtigde"
	"nlportal/internal/klant"
	klanthandler "nlportal/internal/klant/handler"
	"nlportal/internal/messaging"
	"nlportal/internal/payment"
	"nlportal/internal/persoon"
	persoonhandler "nlportal/internal/persoon/handler"
	"nlportal/internal/platform/config"
	"nlportal/internal/platform/httpserver"
	"nlportal/internal/platform/logger"
	"nlportal/internal/platform/metrics"
	"nlportal/internal/platform/redis"
	"nlportal/internal/registry/besluiten"
	"nlportal/internal/registry/brp"
	"nlportal/internal/registry/catalogi"
	"nlportal/internal/registry/documenten"
	"nlportal/internal/registry/hr"
	"nlportal/internal/registry/objecten"
	"nlportal/internal/registry/openformulieren"
	"nlportal/internal/registry/openklant"
	"nlportal/internal/registry/zaken"
	"nlportal/internal/taak"
	httptransport "nlportal/internal/transport/http"
	"nlportal/internal/zaak"
	zaakhandler "nlportal/internal/zaak/handler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.Env, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("nlportal stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []gateway.Option{
		gateway.WithObserver(m),
		gateway.WithLogger(log),
		gateway.WithResourceLoader(gateway.FileLoader{Root: cfg.ResourceRoot}),
	}
	if cfg.TokenExchange.Enabled() {
		exchangeHTTP := &http.Client{Timeout: gateway.DefaultTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
		opts = append(opts, gateway.WithTokenExchanger(
			gateway.NewExchangeClient(cfg.TokenExchange.Endpoint, cfg.TokenExchange.ClientID, cfg.TokenExchange.ClientSecret, exchangeHTTP),
		))
	}

	// Broker
	var brokerOpts []messaging.Option
	health := map[string]httptransport.HealthCheck{}
	rc, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		brokerOpts = append(brokerOpts, messaging.WithBackend(messaging.NewRedisBackend(rc.Client, cfg.Redis.Channel, log)))
		health["redis"] = rc.Health
	}
	broker := messaging.NewBroker(append(brokerOpts, messaging.WithRecorder(m), messaging.WithLogger(log))...)
	defer broker.Close()
	messages := messaging.NewHandler(broker, log)

	routes := httptransport.Config{
		Logger:        log,
		Metrics:       m,
		Gatherer:      reg,
		Verifier:      newVerifier(cfg.Auth),
		AdminToken:    cfg.Server.AdminToken,
		Health:        health,
		Authenticated: []httptransport.Routes{messages.Register},
		Internal:      []httptransport.Routes{messages.RegisterInternal},
	}

	// Registries
	zakenClient, hasZaken, err := registry(cfg, "zaken", zaken.New, opts)
	if err != nil {
		return err
	}
	catalogiClient, hasCatalogi, err := registry(cfg, "catalogi", catalogi.New, opts)
	if err != nil {
		return err
	}
	documentenClient, hasDocumenten, err := registry(cfg, "documenten", documenten.New, opts)
	if err != nil {
		return err
	}
	besluitenClient, hasBesluiten, err := registry(cfg, "besluiten", besluiten.New, opts)
	if err != nil {
		return err
	}
	brpClient, hasBRP, err := registry(cfg, "brp", brp.New, opts)
	if err != nil {
		return err
	}
	hrClient, hasHR, err := registry(cfg, "hr", hr.New, opts)
	if err != nil {
		return err
	}
	objectenClient, hasObjecten, err := registry(cfg, "objecten", objecten.New, opts)
	if err != nil {
		return err
	}
	klantenClient, hasKlanten, err := registry(cfg, "openklant", openklant.New, opts)
	if err != nil {
		return err
	}
	formsClient, hasForms, err := registry(cfg, "openformulieren", openformulieren.New, opts)
	if err != nil {
		return err
	}

	// Services
	if hasZaken && hasCatalogi && hasDocumenten {
		zaakOpts := []zaak.Option{zaak.WithLogger(log)}
		if hasBesluiten {
			zaakOpts = append(zaakOpts, zaak.WithBesluiten(besluitenClient))
		}
		svc, err := zaak.NewService(zakenClient, catalogiClient, documentenClient, zaakOpts...)
		if err != nil {
			return err
		}
		routes.Authenticated = append(routes.Authenticated, zaakhandler.New(svc, log).Register)
	}
	if hasBRP {
		svc, err := persoon.NewService(brpClient)
		if err != nil {
			return err
		}
		routes.Authenticated = append(routes.Authenticated, persoonhandler.New(svc, log).Register)
	}
	if hasHR {
		routes.Authenticated = append(routes.Authenticated, bedrijf.New(hrClient, log).Register)
	}
	if hasBRP || hasHR {
		var personen gemachtigde.PersonenRegistry
		if hasBRP {
			personen = brpClient
		}
		var handels gemachtigde.HandelsRegistry
		if hasHR {
			handels = hrClient
		}
		routes.Authenticated = append(routes.Authenticated, gemachtigde.NewHandler(gemachtigde.NewService(personen, handels), log).Register)
	}
	if hasForms {
		routes.Authenticated = append(routes.Authenticated, formulier.New(formsClient, log).Register)
	}
	if hasKlanten {
		svc, err := klant.NewService(klantenClient, log)
		if err != nil {
			return err
		}
		routes.Authenticated = append(routes.Authenticated, klanthandler.New(svc, log).Register)
	}
	if hasObjecten && cfg.Taken.ObjectTypeURL != "" {
		svc, err := taak.NewService(objectenClient, cfg.Taken.ObjectTypeURL, log)
		if err != nil {
			return err
		}
		routes.Authenticated = append(routes.Authenticated, taak.NewHandler(svc, log).Register)
	}
	if hasObjecten && cfg.CaseDefinitionsFile != "" {
		catalog, err := casedefinition.LoadCatalog(cfg.CaseDefinitionsFile)
		if err != nil {
			return err
		}
		svc, err := casedefinition.NewService(catalog, objectenClient)
		if err != nil {
			return err
		}
		routes.Authenticated = append(routes.Authenticated, casedefinition.NewHandler(svc, log).Register)
	}
	if cfg.Ogone.PSPID != "" {
		svc, err := payment.NewService(payment.Config(cfg.Ogone),
			payment.WithLogger(log),
			payment.WithNotifier(paymentNotifier{publisher: broker.Publisher(), logger: log}),
		)
		if err != nil {
			return err
		}
		h := payment.NewHandler(svc, log)
		routes.Authenticated = append(routes.Authenticated, h.Register)
		routes.Public = append(routes.Public, h.RegisterPublic)
	}

	handler := otelhttp.NewHandler(httptransport.NewRouter(routes), "nlportal")
	srv := httpserver.New(cfg.Server.Addr, handler)

	errs := make(chan error, 2)
	go func() {
		if err := broker.Run(ctx); err != nil {
			errs <- fmt.Errorf("message broker: %w", err)
		}
	}()
	go func() {
		log.Info("starting nlportal", "addr", cfg.Server.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case runErr = <-errs:
	}

	// Close message streams first so Shutdown does not wait on them.
	broker.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return runErr
}

func newVerifier(cfg config.Auth) authentication.Verifier {
	if cfg.JWKSURL != "" {
		return authentication.NewJWKSVerifier(cfg.JWKSURL, cfg.Issuer, cfg.Audience, cfg.JWKSCacheTTL)
	}
	return authentication.NewHMACVerifier(cfg.DevSigningKey, cfg.Issuer)
}

// registry builds the client for a configured registry; ok is false when
// the registries file does not name it.
func registry[T any](cfg config.Config, name string, build func(gateway.Config, ...gateway.Option) (T, error), opts []gateway.Option) (client T, ok bool, err error) {
	rc, ok := cfg.Registries[name]
	if !ok {
		return client, false, nil
	}
	client, err = build(rc, opts...)
	if err != nil {
		return client, false, fmt.Errorf("registry %s: %w", name, err)
	}
	return client, true, nil
}

// paymentNotifier tells the paying principal about the outcome over the
// message stream.
type paymentNotifier struct {
	publisher *messaging.Publisher
	logger    *slog.Logger
}

func (n paymentNotifier) PaymentCompleted(ctx context.Context, r payment.Result) {
	msgType := "betaling.mislukt"
	if r.Succeeded {
		msgType = "betaling.voltooid"
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_, err := n.publisher.Publish(ctx, r.Recipient, msgType, map[string]any{
		"orderId":   r.OrderID,
		"reference": r.Reference,
		"status":    r.Status,
	})
	if err != nil {
		n.logger.WarnContext(ctx, "failed to publish payment outcome", "order_id", r.OrderID, "error", err)
	}
}
