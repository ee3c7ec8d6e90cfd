package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alchemorsel/discovery/internal/ports/inbound"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, port int) ConfigPath {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
app:
  log_level: error
server:
  host: 127.0.0.1
  port: %d
database:
  driver: sqlite
  path: ":memory:"
seed:
  enabled: true
  fake_recipes: 20
search:
  page_size: 3
  cache_enabled: true
rate_limit:
  enable: true
  requests_per_min: 600
  burst_size: 50
  max_clients: 100
`, port)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return ConfigPath(path)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestCoreModule_RunsSearches(t *testing.T) {
	var service inbound.DiscoveryService
	app := fxtest.New(t,
		fx.Supply(writeConfig(t, 8080)),
		CoreModule,
		fx.Populate(&service),
	)
	app.RequireStart()
	defer app.RequireStop()

	ctx := context.Background()
	first, err := service.Search(ctx, inbound.SearchCommand{Query: "chicken", SessionID: "fx-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.Recipes)
	assert.Equal(t, 0, first.Metadata.VariationTier)

	second, err := service.Search(ctx, inbound.SearchCommand{Query: "chicken", SessionID: "fx-1"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.Metadata.VariationTier, 1)

	seen := make(map[int64]bool)
	for _, r := range first.Recipes {
		seen[int64(r.ID)] = true
	}
	for _, r := range second.Recipes {
		assert.False(t, seen[int64(r.ID)], "recipe %d shown twice", r.ID)
	}
}

func TestModule_ServesHTTP(t *testing.T) {
	port := freePort(t)
	app := fxtest.New(t, fx.Supply(writeConfig(t, port)), Module)
	app.RequireStart()
	defer app.RequireStop()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// limitRecorder is a session store that reports runtime limit changes
type limitRecorder struct {
	outbound.SessionStore
	applied chan int
}

func (r *limitRecorder) UpdateLimits(ttl time.Duration, maxShownIDs int) {
	select {
	case r.applied <- maxShownIDs:
	default:
	}
}

func TestHotReloadModule_AppliesSessionEdits(t *testing.T) {
	path := writeConfig(t, 8080)
	rec := &limitRecorder{applied: make(chan int, 16)}

	app := fxtest.New(t,
		fx.Supply(path),
		fx.Provide(
			newResources,
			// the watcher may log after the test returns
			zap.NewNop,
			func() outbound.SessionStore { return rec },
		),
		HotReloadModule,
	)
	app.RequireStart()

	require.NoError(t, os.WriteFile(string(path), []byte("session:\n  max_shown_ids: 42\n"), 0o600))
	deadline := time.After(5 * time.Second)
	for applied := false; !applied; {
		select {
		case n := <-rec.applied:
			applied = n == 42
		case <-deadline:
			t.Fatal("config edit was not applied")
		}
	}

	app.RequireStop()
}

func TestResources_CloseAggregatesErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	res := &Resources{ctx: ctx, cancel: cancel}

	var order []string
	res.AddCloser("database", func() error {
		order = append(order, "database")
		return errors.New("db busy")
	})
	res.AddCloser("redis", func() error {
		order = append(order, "redis")
		return errors.New("redis gone")
	})
	res.AddCloser("cache", func() error {
		order = append(order, "cache")
		return nil
	})

	err := res.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close database: db busy")
	assert.Contains(t, err.Error(), "close redis: redis gone")
	assert.Equal(t, []string{"cache", "redis", "database"}, order)
	assert.Error(t, res.Context().Err())

	assert.NoError(t, res.Close())
}
