package di

import (
	"context"
	"errors"
	"fmt"
	"io"

	"portfolio-messageboard/backend/internal/github"
	"portfolio-messageboard/backend/internal/normalize"
	"portfolio-messageboard/backend/internal/repository"
	"portfolio-messageboard/backend/internal/service"
	"portfolio-messageboard/backend/pkg/config"
	"portfolio-messageboard/backend/pkg/health"
	"portfolio-messageboard/backend/pkg/logger"
	"portfolio-messageboard/backend/pkg/middleware"
	"portfolio-messageboard/backend/pkg/secrets"

	"golang.org/x/time/rate"
)

// ErrUnknownBackend is returned for a backend name that is not github, file or redis
var ErrUnknownBackend = errors.New("unknown message backend")

// Container holds all the dependencies for the application
type Container struct {
	Config         *config.Config
	Logger         *logger.Logger
	GitHubClient   *github.Client
	Normalizer     *normalize.Normalizer
	Primary        repository.MessageRepository
	Admin          repository.MessageRepository
	MessageService *service.MessageService
	Health         *health.Checker
	RateLimiter    *middleware.RateLimiter

	repos   map[string]repository.MessageRepository
	closers []io.Closer
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	if err := secrets.Init(secrets.VaultConfig{
		Enabled:     cfg.Vault.Enabled,
		Address:     cfg.Vault.Address,
		Token:       cfg.Vault.Token,
		Namespace:   cfg.Vault.Namespace,
		Mount:       cfg.Vault.Mount,
		SecretsPath: cfg.Vault.SecretsPath,
	}, log); err != nil {
		return nil, fmt.Errorf("failed to initialize secrets manager: %w", err)
	}
	token := secrets.GitHubToken(ctx, cfg.GitHub.Token)
	if token == "" {
		log.Warn("No GitHub token configured, remote writes will fail")
	}

	c := &Container{
		Config:     cfg,
		Logger:     log,
		Normalizer: normalize.New(log),
		repos:      make(map[string]repository.MessageRepository),
	}

	c.GitHubClient = github.NewClient(github.Config{
		BaseURL:     cfg.GitHub.BaseURL,
		Owner:       cfg.GitHub.Owner,
		Repo:        cfg.GitHub.Repo,
		IssueNumber: cfg.GitHub.IssueNumber,
		Token:       token,
		PerPage:     cfg.GitHub.PerPage,
		Timeout:     cfg.GitHub.Timeout,
	}, log)

	var err error
	if c.Primary, err = c.repository(cfg.Store.Backend); err != nil {
		c.Close()
		return nil, err
	}
	if c.Admin, err = c.repository(cfg.Store.AdminBackend); err != nil {
		c.Close()
		return nil, err
	}

	c.MessageService = service.NewMessageService(c.Primary, c.Admin, cfg.Security.MaxContentLength, log)

	c.Health = health.NewChecker(log, cfg.Observability.HealthPeriod)
	c.Health.RegisterPingCheck("primary-"+c.Primary.Name(), true, c.Primary)
	if c.Admin != c.Primary {
		c.Health.RegisterPingCheck("admin-"+c.Admin.Name(), false, c.Admin)
	}

	c.RateLimiter = middleware.NewRateLimiter(log, middleware.RateLimiterOptions{
		Limit: rate.Limit(cfg.Security.RateLimit),
		Burst: cfg.Security.RateLimitBurst,
	})

	log.Info("Message backends ready",
		"primary", c.Primary.Name(),
		"admin", c.Admin.Name(),
		"thread", c.GitHubClient.ThreadURL(),
	)
	return c, nil
}

// Repository returns the backend registered under name, building it on first use.
// The same name always yields the same instance so the file store lock is shared.
func (c *Container) Repository(name string) (repository.MessageRepository, error) {
	return c.repository(name)
}

func (c *Container) repository(name string) (repository.MessageRepository, error) {
	if repo, ok := c.repos[name]; ok {
		return repo, nil
	}

	var repo repository.MessageRepository
	switch name {
	case config.BackendGitHub:
		repo = repository.NewCommentRepository(c.GitHubClient, c.Normalizer)
	case config.BackendFile:
		fileRepo, err := repository.NewFileRepository(c.Config.Store.Dir, c.Config.Store.File, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		repo = fileRepo
	case config.BackendRedis:
		redisRepo, err := repository.NewRedisRepository(c.Config.Redis.URL, c.Config.Redis.Key, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		c.closers = append(c.closers, redisRepo)
		repo = redisRepo
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}

	c.repos[name] = repo
	return repo, nil
}

// Close releases backend connections
func (c *Container) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
