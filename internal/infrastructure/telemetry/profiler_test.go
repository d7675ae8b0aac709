package telemetry

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakePyroscope accepts ingest requests so a real session can start
// and flush without a Pyroscope server.
func fakePyroscope(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresServerAddress(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{
		Enabled:         true,
		ApplicationName: "khata-test",
	}, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "server address is required")
}

func TestNewProfiler_RequiresApplicationName(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{
		Enabled:       true,
		ServerAddress: "http://localhost:4040",
	}, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "application name is required")
}

func TestNewProfiler_StartsAgainstServer(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{
		Enabled:           true,
		ServerAddress:     fakePyroscope(t),
		ApplicationName:   "khata-test",
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
}

func TestProfiler_StopIdempotent(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{
		Enabled:         true,
		ServerAddress:   fakePyroscope(t),
		ApplicationName: "khata-test",
		ProfileCPU:      true,
	}, zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestProfiler_StopConcurrent(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{
		Enabled:         true,
		ServerAddress:   fakePyroscope(t),
		ApplicationName: "khata-test",
		ProfileCPU:      true,
	}, zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Stop())
		}()
	}
	wg.Wait()
}

func TestProfiler_GetConfigReturnsACopy(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false, ApplicationName: "khata-test"}, zap.NewNop())
	require.NoError(t, err)

	cfg := p.GetConfig()
	cfg.ApplicationName = "mutated"
	assert.Equal(t, "khata-test", p.GetConfig().ApplicationName)
}

func TestBuildProfileTypes(t *testing.T) {
	p := &Profiler{config: ProfilerConfig{
		ProfileCPU:           true,
		ProfileGoroutines:    true,
		ProfileMutexDuration: true,
	}}

	types := p.buildProfileTypes()
	assert.ElementsMatch(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileGoroutines,
		pyroscope.ProfileMutexDuration,
	}, types)

	assert.Empty(t, (&Profiler{}).buildProfileTypes())
}

func TestNewProfiler_SetsRuntimeSampling(t *testing.T) {
	prevMutex := runtime.SetMutexProfileFraction(-1)
	t.Cleanup(func() {
		runtime.SetMutexProfileFraction(prevMutex)
		runtime.SetBlockProfileRate(0)
	})

	p, err := NewProfiler(ProfilerConfig{
		Enabled:              true,
		ServerAddress:        fakePyroscope(t),
		ApplicationName:      "khata-test",
		ProfileMutexCount:    true,
		MutexProfileFraction: 7,
		ProfileBlockCount:    true,
		BlockProfileRate:     3,
	}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = p.Stop() }()

	assert.Equal(t, 7, runtime.SetMutexProfileFraction(-1))
}
