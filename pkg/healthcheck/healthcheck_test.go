package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func staticChecker(status Status, message string) Checker {
	return CheckerFunc(func(ctx context.Context) Check {
		return Check{Status: status, Message: message, LastChecked: time.Now()}
	})
}

func TestHealthCheck_NoCheckers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestHealthCheck_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		register func(hc *HealthCheck)
		want     Status
	}{
		{
			name: "all healthy",
			register: func(hc *HealthCheck) {
				hc.Register("database", staticChecker(StatusHealthy, ""))
				hc.Register("sessions", staticChecker(StatusHealthy, ""))
			},
			want: StatusHealthy,
		},
		{
			name: "critical failure",
			register: func(hc *HealthCheck) {
				hc.Register("database", staticChecker(StatusUnhealthy, "connection refused"))
				hc.Register("sessions", staticChecker(StatusHealthy, ""))
			},
			want: StatusUnhealthy,
		},
		{
			name: "degraded",
			register: func(hc *HealthCheck) {
				hc.Register("database", staticChecker(StatusDegraded, "pool busy"))
			},
			want: StatusDegraded,
		},
		{
			name: "optional failure only degrades",
			register: func(hc *HealthCheck) {
				hc.Register("database", staticChecker(StatusHealthy, ""))
				hc.RegisterOptional("cache", staticChecker(StatusUnhealthy, "redis down"))
			},
			want: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			tt.register(hc)
			assert.Equal(t, tt.want, hc.Check(context.Background()).Status)
		})
	}
}

func TestHealthCheck_ChecksRunConcurrently(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	slow := CheckerFunc(func(ctx context.Context) Check {
		time.Sleep(100 * time.Millisecond)
		return Check{Status: StatusHealthy}
	})
	for _, name := range []string{"a", "b", "c", "d"} {
		hc.Register(name, slow)
	}

	start := time.Now()
	response := hc.Check(context.Background())

	assert.Len(t, response.Checks, 4)
	assert.Less(t, time.Since(start), 350*time.Millisecond)
}

func TestHealthCheck_Caching(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	var calls atomic.Int32
	hc.Register("counter", CheckerFunc(func(ctx context.Context) Check {
		calls.Add(1)
		return Check{Status: StatusHealthy}
	}))

	hc.Check(context.Background())
	hc.Check(context.Background())
	assert.Equal(t, int32(1), calls.Load())

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}

func TestHealthCheck_Handlers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.SetCacheTTL(0)
	hc.Register("database", staticChecker(StatusHealthy, ""))

	rec := httptest.NewRecorder()
	hc.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "total_duration_ms")

	rec = httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)

	hc.Register("sessions", staticChecker(StatusUnhealthy, "down"))

	rec = httptest.NewRecorder()
	hc.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")

	rec = httptest.NewRecorder()
	hc.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDatabaseChecker(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	checker := NewDatabaseChecker(sqlDB)
	check := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
	assert.NotNil(t, check.Metadata)

	require.NoError(t, sqlDB.Close())
	check = checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.NotEmpty(t, check.Message)
}

func TestRedisChecker_Unreachable(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	check := NewRedisChecker(client).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.NotEmpty(t, check.Message)
}

func TestCustomChecker(t *testing.T) {
	checker := NewCustomChecker("sessions", func(ctx context.Context) (Status, string, interface{}) {
		return StatusHealthy, "", map[string]int{"active": 3}
	})

	check := checker.Check(context.Background())
	assert.Equal(t, "sessions", check.Name)
	assert.Equal(t, StatusHealthy, check.Status)
	assert.Equal(t, map[string]int{"active": 3}, check.Metadata)
}

func TestCheck_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Check{Name: "db", Status: StatusHealthy, Duration: 1500 * time.Millisecond})
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(1500), body["duration_ms"])
}
