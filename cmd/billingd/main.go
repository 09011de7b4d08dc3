package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	billinghttp "github.com/studyforge/billing/modules/billing"
	"github.com/studyforge/billing/pkg/billing"
	"github.com/studyforge/billing/pkg/config"
	"github.com/studyforge/billing/pkg/email"
	"github.com/studyforge/billing/pkg/httpserver"
	"github.com/studyforge/billing/pkg/logger"
	"github.com/studyforge/billing/pkg/pg"
	"github.com/studyforge/billing/pkg/plan"
	"github.com/studyforge/billing/pkg/quota"
	"github.com/studyforge/billing/pkg/redis"
)

type appConfig struct {
	Environment      string        `env:"APP_ENV" envDefault:"development"`
	PlansPath        string        `env:"PLANS_PATH" envDefault:"config/plans.yaml"`
	UsageCacheTTL    time.Duration `env:"USAGE_CACHE_TTL" envDefault:"30s"`
	UserDirectoryURL string        `env:"USER_DIRECTORY_URL"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg    appConfig
		pgCfg     pg.Config
		redisCfg  redis.Config
		httpCfg   httpserver.Config
		stripeCfg billing.StripeConfig
		emailCfg  email.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&stripeCfg)
	config.MustLoad(&emailCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, "billingd"))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	src := plan.NewFileSource(appCfg.PlansPath)

	usageStore := quota.NewCachedStore(quota.NewPostgresStore(pool), redisClient, appCfg.UsageCacheTTL)
	subStore := billing.NewPostgresStore(pool)

	provider, err := billing.NewStripeProvider(stripeCfg)
	if err != nil {
		return fmt.Errorf("stripe: %w", err)
	}

	// The quota service needs the billing service's tier resolver, and the
	// billing service needs the quota service's downgrade check. The guard
	// closure breaks the cycle: it binds quotaSvc after construction.
	var quotaSvc quota.Service
	guard := func(ctx context.Context, userID uuid.UUID, target plan.Tier) error {
		if quotaSvc == nil {
			return nil
		}
		return quotaSvc.CanDowngrade(ctx, userID, target)
	}

	opts := []billing.ServiceOption{
		billing.WithLogger(log),
		billing.WithDowngradeGuard(guard),
	}
	if notifier := buildNotifier(appCfg, emailCfg, log); notifier != nil {
		opts = append(opts, billing.WithNotifier(notifier))
	}

	billingSvc, err := billing.NewService(ctx, src, provider, subStore, usageStore, opts...)
	if err != nil {
		return fmt.Errorf("billing service: %w", err)
	}

	quotaSvc, err = quota.NewService(ctx, src, usageStore, billingSvc.TierResolver())
	if err != nil {
		return fmt.Errorf("quota service: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(log))
	r.Get("/ready", httpserver.HealthCheckHandler(log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/billing", billinghttp.Router(billingSvc, quotaSvc, log))

	return httpserver.New(httpCfg, log).Run(ctx, r)
}

// buildNotifier wires billing emails when the deployment can both send mail
// and resolve user addresses. Returns nil otherwise, which leaves the
// service's no-op notifier in place.
func buildNotifier(appCfg appConfig, emailCfg email.Config, log *slog.Logger) billing.Notifier {
	if appCfg.UserDirectoryURL == "" {
		log.Warn("billing emails disabled: USER_DIRECTORY_URL not set")
		return nil
	}

	var sender email.EmailSender
	if emailCfg.PostmarkServerToken != "" {
		var err error
		sender, err = email.NewPostmarkClient(emailCfg)
		if err != nil {
			log.Error("billing emails disabled: postmark init failed", "error", err)
			return nil
		}
	} else {
		sender = email.NewDevSender(log)
	}

	return billing.NewEmailNotifier(sender, directoryEmailLookup(appCfg.UserDirectoryURL), log)
}

// directoryEmailLookup resolves user emails from the platform's internal
// user directory. Account data lives outside this service.
func directoryEmailLookup(baseURL string) billing.EmailLookup {
	client := &http.Client{Timeout: 5 * time.Second}
	return func(ctx context.Context, userID uuid.UUID) (string, error) {
		url := fmt.Sprintf("%s/internal/users/%s/email", baseURL, userID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}

		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("user directory returned %d for %s", resp.StatusCode, userID)
		}

		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", err
		}
		return body.Email, nil
	}
}
