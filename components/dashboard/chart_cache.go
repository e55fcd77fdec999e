package dashboard

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// RenderCache keeps the last rendered chart of each widget.
type RenderCache interface {
	// Chart returns the chart of widgetID when it was rendered from the same
	// fingerprint, and renders and stores it otherwise.
	Chart(widgetID, fingerprint string, render func() (string, error)) (string, error)
	// Forget drops the chart of a removed widget.
	Forget(widgetID string)
}

// ChartCache holds at most one chart per widget. A chart is reused while its
// fingerprint matches and its TTL has not passed; a new fingerprint
// replaces it. A non-positive TTL disables caching.
type ChartCache struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	charts map[string]widgetChart
}

type widgetChart struct {
	fingerprint string
	html        string
	rendered    time.Time
}

// NewChartCache builds a cache whose charts live for ttl.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:    ttl,
		now:    time.Now,
		charts: make(map[string]widgetChart),
	}
}

// Chart implements RenderCache.
func (c *ChartCache) Chart(widgetID, fingerprint string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	c.mu.Lock()
	entry, ok := c.charts[widgetID]
	c.mu.Unlock()
	if ok && entry.fingerprint == fingerprint && c.now().Sub(entry.rendered) < c.ttl {
		return entry.html, nil
	}

	html, err := render()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.charts[widgetID] = widgetChart{fingerprint: fingerprint, html: html, rendered: c.now()}
	c.mu.Unlock()
	return html, nil
}

// Forget implements RenderCache.
func (c *ChartCache) Forget(widgetID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.charts, widgetID)
	c.mu.Unlock()
}

// Len returns the number of cached widget charts.
func (c *ChartCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.charts)
}

// chartFingerprint changes whenever the report, its data or the theme does.
func chartFingerprint(report Report, points []DataPoint, theme string) string {
	data, err := json.Marshal(struct {
		Report Report
		Points []DataPoint
		Theme  string
	}{report, points, theme})
	if err != nil {
		return ""
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// chartElementID turns a widget id into the DOM id and JS identifier suffix
// go-echarts uses for the chart container.
func chartElementID(widgetID string) string {
	return "chart_" + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, widgetID)
}
