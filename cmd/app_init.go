package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/alert"
	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/crm"
	"github.com/sells-group/outreach-cli/internal/dedup"
	"github.com/sells-group/outreach-cli/internal/events"
	"github.com/sells-group/outreach-cli/internal/followup"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/responder"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/notion"
	"github.com/sells-group/outreach-cli/pkg/salesforce"
)

// appEnv holds the store, collaborators and pipeline used by the process,
// import, serve and dlq commands.
type appEnv struct {
	Store      store.Store
	Classifier *classify.Classifier
	Qualifier  *qualify.Qualifier
	Publisher  events.Publisher
	Pipeline   *pipeline.Pipeline

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func (e *appEnv) onClose(fn func()) {
	e.closers = append(e.closers, fn)
}

// initApp validates config for mode, opens and migrates the store, wires
// every configured collaborator and builds the Pipeline. Callers should
// defer env.Close().
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	cls, q, err := loadEngine()
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	env := &appEnv{Store: st, Classifier: cls, Qualifier: q}
	env.onClose(func() { _ = st.Close() })

	guard, err := initGuard(ctx, st)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Publisher = initPublisher()
	env.onClose(func() {
		if err := env.Publisher.Close(); err != nil {
			zap.L().Warn("close publisher", zap.Error(err))
		}
	})

	sched, closeSched, err := initScheduler(st)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.onClose(closeSched)

	sink, err := initCRM()
	if err != nil {
		env.Close()
		return nil, err
	}

	mailer, err := initMailer()
	if err != nil {
		env.Close()
		return nil, err
	}

	p, err := pipeline.New(pipeline.Deps{
		Store:      st,
		Classifier: cls,
		Qualifier:  q,
		Composer:   responder.NewComposer(cfg.Responder),
		Mailer:     mailer,
		Guard:      guard,
		Scheduler:  sched,
		Publisher:  env.Publisher,
		CRM:        sink,
		Alerter:    initAlerter(),
	}, pipeline.WithSender(cfg.Responder.From, cfg.Responder.ReplyTo))
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Pipeline = p

	zap.L().Info("pipeline ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("followup", cfg.Followup.Backend),
		zap.String("crm", sink.Name()),
		zap.Bool("dry_run", cfg.Responder.DryRun),
		zap.Bool("kafka", len(cfg.Kafka.Brokers) > 0),
		zap.Bool("redis", cfg.Redis.Addr != ""),
		zap.Bool("alerts", cfg.Alert.WebhookURL != ""),
	)
	return env, nil
}

// loadEngine builds the classifier and qualifier from the built-in rules,
// overlaid with rules.path when set.
func loadEngine() (*classify.Classifier, *qualify.Qualifier, error) {
	rules, err := config.LoadRules(cfg.Rules.Path, config.Rules{
		Classifier: classify.DefaultConfig(),
		Qualifier:  qualify.DefaultConfig(),
	})
	if err != nil {
		return nil, nil, err
	}

	cls, err := classify.New(rules.Classifier)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load classifier rules")
	}
	q, err := qualify.New(rules.Qualifier)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load qualifier rules")
	}
	return cls, q, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the configured store and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initGuard returns a Redis guard when redis.addr is set, otherwise a guard
// backed by the store's processed lookup.
func initGuard(ctx context.Context, st store.Store) (dedup.Guard, error) {
	if cfg.Redis.Addr == "" {
		return dedup.NewStoreGuard(st), nil
	}
	client, err := dedup.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(cfg.Redis.TTLHours) * time.Hour
	zap.L().Info("redis dedup guard enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", ttl))
	return dedup.NewRedisGuard(client, ttl), nil
}

func initPublisher() events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		zap.L().Debug("kafka not configured, events disabled")
		return events.NopPublisher{}
	}
	zap.L().Info("kafka publisher enabled",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

// initScheduler returns the follow-up scheduler for followup.backend and a
// func that releases it.
func initScheduler(st store.Store) (followup.Scheduler, func(), error) {
	switch cfg.Followup.Backend {
	case "", "store":
		return followup.NewStoreScheduler(st), func() {}, nil
	case "temporal":
		c, err := followup.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return followup.NewTemporalScheduler(c, cfg.Temporal.TaskQueue), c.Close, nil
	default:
		return nil, nil, eris.Errorf("unsupported followup backend: %s", cfg.Followup.Backend)
	}
}

// initCRM builds a sink for every configured CRM. With none configured,
// pushes are dropped.
func initAlerter() alert.Notifier {
	if cfg.Alert.WebhookURL == "" {
		return alert.NopNotifier{}
	}
	return alert.NewWebhook(cfg.Alert.WebhookURL)
}

func initCRM() (crm.Sink, error) {
	var sinks crm.MultiSink

	if cfg.Notion.Token != "" && cfg.Notion.LeadDB != "" {
		sinks = append(sinks, crm.NewNotionSink(
			notion.NewClient(cfg.Notion.Token),
			cfg.Notion.LeadDB,
			resilience.DefaultBreakerConfig(),
		))
	}

	if cfg.Salesforce.ClientID != "" {
		sf, err := salesforce.Connect(salesforce.JWTConfig{
			LoginURL: cfg.Salesforce.LoginURL,
			Username: cfg.Salesforce.Username,
			ClientID: cfg.Salesforce.ClientID,
			KeyPath:  cfg.Salesforce.KeyPath,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, crm.NewSalesforceSink(sf, resilience.DefaultBreakerConfig()))
	}

	switch len(sinks) {
	case 0:
		return crm.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// initMailer logs mail in dry-run mode. Otherwise mail goes to the
// configured API, rate-limited and retried.
func initMailer() (responder.Mailer, error) {
	if cfg.Responder.DryRun {
		return responder.LogMailer{}, nil
	}
	if cfg.Responder.Endpoint == "" {
		return nil, eris.New("responder endpoint is required when dry_run is off (OUTREACH_RESPONDER_ENDPOINT)")
	}
	return responder.NewDeliveryMailer(
		responder.NewHTTPMailer(cfg.Responder.Endpoint, cfg.Responder.APIKey),
		cfg.Responder.RatePerSecond,
		resilience.DefaultRetryConfig().WithAttempts(cfg.Responder.MaxAttempts),
	), nil
}
