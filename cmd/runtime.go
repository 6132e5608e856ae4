package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/theirongolddev/fintrack/internal/auth"
	"github.com/theirongolddev/fintrack/internal/banks"
	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/gateway"
	"github.com/theirongolddev/fintrack/internal/insights"
	"github.com/theirongolddev/fintrack/internal/market"
	"github.com/theirongolddev/fintrack/internal/notify"
	"github.com/theirongolddev/fintrack/internal/projection"
	"github.com/theirongolddev/fintrack/internal/realtime"
	"github.com/theirongolddev/fintrack/internal/social"
	"github.com/theirongolddev/fintrack/internal/store"
	"github.com/theirongolddev/fintrack/internal/vault"
)

// appRuntime is every service a command may need, built from one config.
type appRuntime struct {
	cfg     config.Config
	secrets config.Secrets

	store    *store.Store
	hub      *realtime.Hub
	kafka    *realtime.KafkaPublisher
	engine   *projection.Engine
	insights *insights.Service
	social   *social.Service
	banks    *banks.Service
	market   *market.Registry
	auth     *auth.Authenticator
}

// openRuntime opens the store and wires the services. Missing secrets
// leave the dependent feature unconfigured rather than failing.
func openRuntime(cfg config.Config) (*appRuntime, error) {
	secrets := config.ReadSecrets(cfg)

	st, err := store.Open(cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	if err := st.SeedCategories(context.Background()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("seeding categories: %w", err)
	}

	rt := &appRuntime{cfg: cfg, secrets: secrets, store: st}

	rt.hub = realtime.NewHub(cfg.Realtime.RingSize)
	if brokers := cfg.Realtime.Kafka.Brokers; len(brokers) > 0 {
		rt.kafka = realtime.NewKafkaPublisher(brokers, cfg.Realtime.Kafka.TopicPrefix)
		rt.hub.SetPublisher(rt.kafka)
	}
	st.SetNotifier(rt.hub)

	rt.engine = projection.NewEngine(cfg.Simulator.Rates)

	// A nil *gateway.Client must not be stored in the interface, or the
	// insight functions would never take their rule-based path.
	var llm gateway.Completer
	if c := gateway.NewClient(gateway.Options{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  secrets.GatewayKey,
		Model:   cfg.Gateway.Model,
		Timeout: config.Duration(cfg.Gateway.Timeout, 30*time.Second),
	}); c != nil {
		llm = c
	}
	rt.insights = insights.New(st, llm, rt.engine, insights.Options{
		TrendMonths: cfg.Functions.TrendMonths,
		BatchSize:   cfg.Functions.BackfillBatchSize,
		BatchPause:  config.Duration(cfg.Functions.BackfillPause, time.Second),
	})

	rt.social = social.New(st, notify.New(cfg.Messaging.BaseURL, cfg.Messaging.PhoneID, secrets.MessagingToken))

	v, err := vault.New(secrets.TokenKey)
	if err != nil && !errors.Is(err, vault.ErrNoKey) {
		rt.Close()
		return nil, err
	}
	rt.banks = banks.New(st, v)

	rt.market = market.NewRegistry(
		market.NewHTTPProvider(cfg.Market.BaseURL, secrets.MarketKey),
		config.Duration(cfg.Market.PollInterval, 15*time.Second),
	)

	if secrets.JWTSecret != "" {
		if rt.auth, err = auth.New(secrets.JWTSecret); err != nil {
			rt.Close()
			return nil, err
		}
	}

	return rt, nil
}

// Close releases the market pollers, the broker writer and the store.
func (rt *appRuntime) Close() {
	if rt.market != nil {
		rt.market.Close()
	}
	if rt.kafka != nil {
		if err := rt.kafka.Close(); err != nil {
			log.Printf("closing kafka publisher: %v", err)
		}
	}
	if err := rt.store.Close(); err != nil {
		log.Printf("closing store: %v", err)
	}
}

// withRuntime loads the config, opens a runtime and runs fn with it.
func withRuntime(fn func(rt *appRuntime) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}
