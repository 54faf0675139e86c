package cmd

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/audit"
	"github.com/telhawk-systems/keyhawk/internal/config"
	"github.com/telhawk-systems/keyhawk/internal/credentials"
	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/internal/logging"
	"github.com/telhawk-systems/keyhawk/internal/metrics"
	"github.com/telhawk-systems/keyhawk/pkg/output"
)

// app wires the dependencies a command needs.
type app struct {
	cfg      *config.Config
	profile  string
	format   output.Format
	logger   *logging.Logger
	store    credentials.Store
	provider *credentials.Provider
	client   *api.Client
	keygen   *keygen.Client
	registry *prometheus.Registry
	metrics  *metrics.Collector
	closers  []func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	profile, _ := cmd.Flags().GetString("profile")
	format, err := output.ParseFormat(outputFormat(cmd))
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		profile: cfg.ProfileName(profile),
		format:  format,
		logger:  logger,
	}

	store, err := a.newStore()
	if err != nil {
		return nil, err
	}
	a.store = store

	a.provider = credentials.NewProvider(store,
		credentials.WithOverrides(api.Credentials{
			AccountID: cfg.EnvAccountID,
			Token:     cfg.EnvToken,
		}),
		credentials.WithDefaultBaseURL(cfg.BaseURL(a.profile)),
		credentials.WithProviderLogger(a.logger),
	)

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)

	opts := a.clientOptions()
	opts = append(opts,
		api.WithInvalidator(a.provider),
		api.WithObserver(a.metrics),
	)
	if recorder := a.newRecorder(); recorder != nil {
		opts = append(opts, api.WithObserver(recorder))
	}

	a.client = api.New(a.provider, opts...)
	a.keygen = keygen.New(a.client)
	return a, nil
}

func (a *app) newStore() (credentials.Store, error) {
	if a.cfg.Credentials.Backend != config.BackendRedis {
		return credentials.NewProfileStore(a.cfg, a.profile), nil
	}
	store, err := credentials.NewRedisStore(a.cfg.Credentials.RedisURL, a.cfg.KeyPrefix(a.profile))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// newRecorder connects the audit publisher when auditing is enabled. An
// unreachable broker disables auditing for this run with a warning.
func (a *app) newRecorder() *audit.Recorder {
	if !a.cfg.Audit.Enabled {
		return nil
	}

	natsCfg := audit.DefaultNATSConfig()
	if a.cfg.Audit.NatsURL != "" {
		natsCfg.URL = a.cfg.Audit.NatsURL
	}
	pub, err := audit.NewNATSPublisher(natsCfg, a.logger)
	if err != nil {
		output.Warn("Audit disabled: %v", err)
		return nil
	}
	a.closers = append(a.closers, pub.Close)

	var signer *audit.EventSigner
	if a.cfg.Audit.Secret != "" {
		signer = audit.NewEventSigner(a.cfg.Audit.Secret)
	}
	return audit.NewRecorder(pub, signer, a.cfg.Audit.Subject, a.logger)
}

func (a *app) clientOptions() []api.Option {
	return []api.Option{
		api.WithBaseURL(a.cfg.BaseURL(a.profile)),
		api.WithHTTPClient(&http.Client{Timeout: a.cfg.Defaults.TimeoutDuration()}),
		api.WithRetryPolicy(api.RetryPolicy{
			MaxRetries: a.cfg.Retry.MaxRetries,
			BaseDelay:  a.cfg.Retry.BaseDelayDuration(),
			MaxDelay:   a.cfg.Retry.MaxDelayDuration(),
		}),
		api.WithLogger(a.logger),
	}
}

// loginClient returns a client that carries the account but no token, so
// a caller-supplied Authorization header survives.
func (a *app) loginClient(accountID, baseURL string) *keygen.Client {
	if baseURL == "" {
		baseURL = a.cfg.BaseURL(a.profile)
	}
	c := api.New(api.StaticCredentials(api.Credentials{
		AccountID: accountID,
		BaseURL:   baseURL,
	}), append(a.clientOptions(), api.WithObserver(a.metrics))...)
	return keygen.New(c)
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Debug("close failed", logging.Error(err))
		}
	}
}

// run builds the app, calls fn and releases resources.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}
