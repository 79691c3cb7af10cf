// SPDX-License-Identifier: MIT

package postprocess

import (
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// MeasurementMethod selects how LatencySort probes a server (spec §4.6).
type MeasurementMethod string

const (
	MeasureCached MeasurementMethod = "cached"
	MeasurePing   MeasurementMethod = "ping"
	MeasureTCP    MeasurementMethod = "tcp"
	MeasureHTTP   MeasurementMethod = "http"
)

// latencyEntry is one cached measurement.
type latencyEntry struct {
	latency time.Duration
	at      time.Time
}

// latencyCache is a small TTL cache keyed by "type://address:port". Each
// LatencySort instance owns its own cache; it mirrors internal/cache's
// memory backend shape but is scoped to this postprocessor.
type latencyCache struct {
	mu      sync.Mutex
	entries map[string]latencyEntry
	ttl     time.Duration
}

func newLatencyCache(ttl time.Duration) *latencyCache {
	return &latencyCache{entries: make(map[string]latencyEntry), ttl: ttl}
}

func (c *latencyCache) get(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Since(e.at) > c.ttl {
		return 0, false
	}
	return e.latency, true
}

func (c *latencyCache) set(key string, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = latencyEntry{latency: latency, at: time.Now()}
}

// LatencySort sorts servers by measured latency and optionally drops or
// flags servers exceeding a max latency (spec §4.6).
type LatencySort struct {
	method     MeasurementMethod
	descending bool
	maxLatency time.Duration
	dropSlow   bool
	timeout    time.Duration
	cache      *latencyCache
}

// NewLatencySort builds a LatencySort from config keys: method
// ("cached"|"ping"|"tcp"|"http", default "tcp"), descending (bool),
// max_latency_ms (int, 0 disables the bound), drop_slow (bool, default
// false meaning flag with high_latency instead), cache_ttl_seconds (int,
// default 300), probe_timeout_ms (int, default 1500).
func NewLatencySort(config map[string]any) *LatencySort {
	method := MeasureTCP
	if v, ok := config["method"].(string); ok && v != "" {
		method = MeasurementMethod(v)
	}
	descending, _ := config["descending"].(bool)
	dropSlow, _ := config["drop_slow"].(bool)

	maxLatencyMs := intOr(config, "max_latency_ms", 0)
	ttlSeconds := intOr(config, "cache_ttl_seconds", 300)
	timeoutMs := intOr(config, "probe_timeout_ms", 1500)

	return &LatencySort{
		method:     method,
		descending: descending,
		maxLatency: time.Duration(maxLatencyMs) * time.Millisecond,
		dropSlow:   dropSlow,
		timeout:    time.Duration(timeoutMs) * time.Millisecond,
		cache:      newLatencyCache(time.Duration(ttlSeconds) * time.Second),
	}
}

// Name implements Postprocessor.
func (*LatencySort) Name() string { return "latency_sort" }

// Process implements Postprocessor.
func (l *LatencySort) Process(servers []model.ParsedServer, _ *model.PipelineContext, _ *model.FullProfile) ([]model.ParsedServer, error) {
	type measured struct {
		server  model.ParsedServer
		latency time.Duration
		high    bool
	}

	results := make([]measured, 0, len(servers))
	for _, s := range servers {
		key := s.Type + "://" + s.Address + ":" + strconv.Itoa(s.Port)
		latency := l.measure(key, s)

		high := l.maxLatency > 0 && latency > l.maxLatency
		if high && l.dropSlow {
			continue
		}
		meta := s.MetaOrEmpty()
		meta["latency_ms"] = strconv.FormatInt(latency.Milliseconds(), 10)
		if high {
			meta["high_latency"] = "true"
		}
		results = append(results, measured{server: s, latency: latency, high: high})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if l.descending {
			return results[i].latency > results[j].latency
		}
		return results[i].latency < results[j].latency
	})

	out := make([]model.ParsedServer, len(results))
	for i, r := range results {
		out[i] = r.server
	}
	return out, nil
}

func (l *LatencySort) measure(key string, s model.ParsedServer) time.Duration {
	if l.method == MeasureCached {
		if latency, ok := l.cache.get(key); ok {
			return latency
		}
		return l.timeout // unmeasured, treat as worst-case within the probe budget
	}

	if latency, ok := l.cache.get(key); ok {
		return latency
	}

	latency := l.probe(s)
	l.cache.set(key, latency)
	return latency
}

func (l *LatencySort) probe(s model.ParsedServer) time.Duration {
	addr := net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
	start := time.Now()

	switch l.method {
	case MeasureHTTP:
		client := &http.Client{Timeout: l.timeout}
		resp, err := client.Get("https://" + addr + "/")
		if err != nil {
			return l.timeout
		}
		_ = resp.Body.Close()
		return time.Since(start)
	default: // tcp and ping both fall back to a TCP dial; ICMP ping needs
		// raw sockets this process doesn't have privilege for.
		conn, err := net.DialTimeout("tcp", addr, l.timeout)
		if err != nil {
			return l.timeout
		}
		_ = conn.Close()
		return time.Since(start)
	}
}

func intOr(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
