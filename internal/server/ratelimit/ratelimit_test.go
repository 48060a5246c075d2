package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/results/ring", "GET")
		require.True(t, allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 10-i-1, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/results/ring", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.True(t, info.ResetTime.After(time.Now()))
}

func TestLimiter_WhitelistBlacklist(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Hour,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("10.0.0.1", "/process/folder", "POST")
		assert.True(t, allowed, "whitelisted client is never limited")
	}
	allowed, _ := limiter.Allow("10.0.0.2", "/health", "GET")
	assert.False(t, allowed, "blacklisted client is always rejected")
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false})
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/process/folder", "POST")
		require.True(t, allowed)
		assert.Equal(t, 0, info.Limit)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/process/", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		},
	})
	defer limiter.Stop()

	// Both processing routes share one bucket per client
	allowed, info := limiter.Allow("1.2.3.4", "/process/upload-batch", "POST")
	require.True(t, allowed)
	assert.Equal(t, 10, info.Limit)
	allowed, _ = limiter.Allow("1.2.3.4", "/process/folder", "POST")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("1.2.3.4", "/process/folder", "POST")
	assert.False(t, allowed, "burst of 2 exhausted")

	allowed, _ = limiter.Allow("5.6.7.8", "/process/folder", "POST")
	assert.True(t, allowed, "other clients have their own bucket")

	allowed, info = limiter.Allow("1.2.3.4", "/results/ring", "GET")
	assert.True(t, allowed, "other endpoints use the default limit")
	assert.Equal(t, 100, info.Limit)

	for i := 0; i < 20; i++ {
		allowed, _ = limiter.Allow("1.2.3.4", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var wg sync.WaitGroup
	var allowedCount atomic.Int32
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("127.0.0.1", "/results/x", "GET"); ok {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), allowedCount.Load())
}

func TestLimiter_Cleanup(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		limiter.Allow(fmt.Sprintf("10.0.0.%d", i), "/results/x", "GET")
	}
	limiter.mu.Lock()
	assert.Len(t, limiter.buckets, 5)
	limiter.mu.Unlock()

	limiter.cleanupBuckets(time.Now().Add(time.Second))

	limiter.mu.Lock()
	assert.Empty(t, limiter.buckets)
	limiter.mu.Unlock()
}

func TestLimiter_Refill(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled: true,
		EndpointConfigs: []EndpointConfig{
			{Path: "/process/", Method: "POST", Limit: 20, Window: time.Second, Burst: 1},
		},
	})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("c", "/process/folder", "POST")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("c", "/process/folder", "POST")
	require.False(t, allowed)

	time.Sleep(100 * time.Millisecond)
	allowed, _ = limiter.Allow("c", "/process/folder", "POST")
	assert.True(t, allowed, "token refilled after 1/20s")
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, info := limiter.Allow("127.0.0.1", "/results/x", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
	limiter.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()
	tests := []struct {
		path, method string
		wantPath     string
		unlimited    bool
	}{
		{path: "/process/upload-batch", method: "POST", wantPath: "/process/"},
		{path: "/process/folder", method: "POST", wantPath: "/process/"},
		{path: "/results/ring", method: "GET", wantPath: "/results/"},
		{path: "/health", method: "GET", unlimited: true},
		{path: "/metrics", method: "GET", unlimited: true},
		{path: "/process/folder", method: "GET"},
		{path: "/other", method: "POST"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			switch {
			case tt.unlimited:
				require.NotNil(t, got)
				assert.Equal(t, 0, got.Limit)
			case tt.wantPath == "":
				assert.Nil(t, got)
			default:
				require.NotNil(t, got)
				assert.Equal(t, tt.wantPath, got.Path)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2")
	t.Setenv("RATE_LIMIT_PROCESS_LIMIT", "5")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.True(t, cfg.Whitelist["10.0.0.2"])
	require.NotEmpty(t, cfg.EndpointConfigs)
	assert.Equal(t, 5, cfg.EndpointConfigs[0].Limit)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}

func TestMatchEndpoint_LongestPrefix(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/process/", Method: "POST", Limit: 20},
		{Path: "/process/upload-", Method: "POST", Limit: 5},
		{Path: "/process/folder", Method: "POST", Limit: 1},
	}

	assert.Equal(t, 5, MatchEndpoint("/process/upload-batch", "POST", configs).Limit)
	assert.Equal(t, 1, MatchEndpoint("/process/folder", "POST", configs).Limit)
	assert.Equal(t, 20, MatchEndpoint("/process/other", "POST", configs).Limit)
}
