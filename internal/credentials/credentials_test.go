package credentials

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/config"
	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/internal/logging"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestRedisStore_RoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStoreWithClient(client, "khawk:default")
	ctx := context.Background()

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.Credentials{}, creds)

	want := api.Credentials{AccountID: "acct-1", Token: "tok", BaseURL: "https://licensing.example.com/v1"}
	require.NoError(t, store.Save(ctx, want))

	assert.Equal(t, "acct-1", mustGet(t, mr, "khawk:default:account_id"))
	assert.Equal(t, "tok", mustGet(t, mr, "khawk:default:token"))
	assert.Equal(t, "https://licensing.example.com/v1", mustGet(t, mr, "khawk:default:base_url"))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists("khawk:default:account_id"))
	assert.False(t, mr.Exists("khawk:default:token"))
	assert.False(t, mr.Exists("khawk:default:base_url"))
}

func TestRedisStore_SaveWithoutBaseURLRemovesIt(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStoreWithClient(client, "p")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, api.Credentials{AccountID: "a", Token: "t", BaseURL: "http://old"}))
	require.NoError(t, store.Save(ctx, api.Credentials{AccountID: "a", Token: "t2"}))

	assert.False(t, mr.Exists("p:base_url"))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t2", got.Token)
	assert.Empty(t, got.BaseURL)
}

func TestRedisStore_PrefixesAreIsolated(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	a := NewRedisStoreWithClient(client, "khawk:a")
	b := NewRedisStoreWithClient(client, "khawk:b")
	require.NoError(t, a.Save(ctx, api.Credentials{AccountID: "acct-a", Token: "ta"}))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Token)
}

func TestRedisStore_ConnectionErrors(t *testing.T) {
	_, err := NewRedisStore("not-a-url", "x")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisStore("redis://"+addr, "x")
	assert.Error(t, err)
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+mr.Addr(), "khawk:default")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(context.Background(), api.Credentials{AccountID: "a", Token: "t"}))
	assert.Equal(t, "t", mustGet(t, mr, "khawk:default:token"))
}

func TestProfileStore(t *testing.T) {
	cfg := loadTestConfig(t)
	store := NewProfileStore(cfg, "work")
	ctx := context.Background()

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, creds.Token)
	assert.Equal(t, config.DefaultBaseURL, creds.BaseURL)

	require.NoError(t, store.Save(ctx, api.Credentials{AccountID: "acct-1", Token: "tok", BaseURL: "http://localhost:3000/v1"}))
	assert.Equal(t, "work", cfg.CurrentProfile)

	reloaded, err := config.Load(cfg.Path())
	require.NoError(t, err)
	got, err := NewProfileStore(reloaded, "work").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.Credentials{AccountID: "acct-1", Token: "tok", BaseURL: "http://localhost:3000/v1"}, got)

	require.NoError(t, store.Clear(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Token)
	assert.Equal(t, "acct-1", got.AccountID)
	assert.Equal(t, "http://localhost:3000/v1", got.BaseURL)
}

func TestProfileStore_ClearMissingProfile(t *testing.T) {
	cfg := loadTestConfig(t)
	assert.NoError(t, NewProfileStore(cfg, "ghost").Clear(context.Background()))
}

func TestProfileStore_SaveKeepsEmail(t *testing.T) {
	cfg := loadTestConfig(t)
	require.NoError(t, cfg.SaveProfile("default", config.Profile{Email: "ops@example.com"}))

	store := NewProfileStore(cfg, "")
	require.NoError(t, store.Save(context.Background(), api.Credentials{AccountID: "a", Token: "t"}))
	assert.Equal(t, "ops@example.com", cfg.Profiles["default"].Email)
}

type memStore struct {
	creds   api.Credentials
	cleared int
	loadErr error
}

func (m *memStore) Load(context.Context) (api.Credentials, error) { return m.creds, m.loadErr }
func (m *memStore) Save(_ context.Context, c api.Credentials) error {
	m.creds = c
	return nil
}
func (m *memStore) Clear(context.Context) error {
	m.cleared++
	m.creds = api.Credentials{}
	return nil
}

func TestProvider_Credentials(t *testing.T) {
	ctx := context.Background()

	store := &memStore{}
	p := NewProvider(store, WithDefaultBaseURL("https://api.example.com/v1"))

	_, err := p.Credentials(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	store.creds = api.Credentials{AccountID: "acct-1"}
	_, err = p.Credentials(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	store.creds.Token = "tok"
	creds, err := p.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.Credentials{AccountID: "acct-1", Token: "tok", BaseURL: "https://api.example.com/v1"}, creds)
}

func TestProvider_Overrides(t *testing.T) {
	store := &memStore{creds: api.Credentials{AccountID: "stored", Token: "stored-token", BaseURL: "http://stored"}}
	p := NewProvider(store, WithOverrides(api.Credentials{Token: "env-token"}))

	creds, err := p.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored", creds.AccountID)
	assert.Equal(t, "env-token", creds.Token)
	assert.Equal(t, "http://stored", creds.BaseURL)
}

func TestProvider_LoadError(t *testing.T) {
	boom := errors.New("boom")
	p := NewProvider(&memStore{loadErr: boom})
	_, err := p.Credentials(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestProvider_Invalidate(t *testing.T) {
	var buf bytes.Buffer
	store := &memStore{creds: api.Credentials{AccountID: "a", Token: "t"}}
	p := NewProvider(store, WithProviderLogger(logging.NewWithWriter(&buf, slog.LevelWarn, "text")))

	require.NoError(t, p.InvalidateCredentials(context.Background()))
	assert.Equal(t, 1, store.cleared)
	assert.Contains(t, buf.String(), "token rejected")

	_, err := p.Credentials(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

// The API client clears the redis record when its first attempt is rejected.
func TestProvider_ClearedOnUnauthorized(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStoreWithClient(client, "khawk:default")
	ctx := context.Background()

	provider := NewProvider(store)
	c := api.New(provider,
		api.WithInvalidator(provider),
		api.WithHTTPClient(unauthorizedClient()),
	)
	require.NoError(t, provider.Save(ctx, api.Credentials{AccountID: "acct-1", Token: "expired", BaseURL: "http://licensing.invalid/v1"}))

	_, err := c.Get(ctx, "me", nil)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, mr.Exists("khawk:default:token"))
}

// Stats fans out concurrent requests; every one of them is rejected and
// clears the same profile. Run with -race.
func TestProfileStore_ConcurrentUnauthorized(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", api.MediaType)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"title":"Unauthorized","detail":"Token is expired"}]}`))
	}))
	defer srv.Close()

	cfg := loadTestConfig(t)
	store := NewProfileStore(cfg, "")
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, api.Credentials{AccountID: "acct-1", Token: "expired", BaseURL: srv.URL}))

	provider := NewProvider(store)
	client := keygen.New(api.New(provider, api.WithInvalidator(provider)))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Stats(ctx)
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	assert.Positive(t, hits.Load())
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Token)
	assert.Equal(t, "acct-1", got.AccountID)

	reloaded, err := config.Load(cfg.Path())
	require.NoError(t, err)
	p, err := reloaded.GetProfile("")
	require.NoError(t, err)
	assert.Empty(t, p.Token)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
