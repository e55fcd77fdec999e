// Package datasets provides dashboard.DatasetProvider implementations.
package datasets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

// ErrUnknownSource is returned for data sources without a dataset.
var ErrUnknownSource = errors.New("datasets: unknown data source")

// DefaultFixtures returns the deterministic demo datasets.
func DefaultFixtures() map[dashboard.DataSource][]dashboard.DataPoint {
	return map[dashboard.DataSource][]dashboard.DataPoint{
		dashboard.DataSourceGraduates: {
			{Name: "Engineering", Value: 120, Fill: "#8884d8"},
			{Name: "Business", Value: 95, Fill: "#83a6ed"},
			{Name: "Design", Value: 48, Fill: "#8dd1e1"},
			{Name: "Nursing", Value: 77, Fill: "#82ca9d"},
			{Name: "Law", Value: 31, Fill: "#a4de6c"},
		},
		dashboard.DataSourceCompanies: {
			{Name: "Technology", Value: 42, Fill: "#8884d8"},
			{Name: "Finance", Value: 18, Fill: "#83a6ed"},
			{Name: "Healthcare", Value: 25, Fill: "#8dd1e1"},
			{Name: "Retail", Value: 11, Fill: "#82ca9d"},
		},
		dashboard.DataSourceApplications: {
			{Name: "Submitted", Value: 340, Fill: "#8884d8"},
			{Name: "Interviewing", Value: 120, Fill: "#83a6ed"},
			{Name: "Offered", Value: 45, Fill: "#8dd1e1"},
			{Name: "Hired", Value: 38, Fill: "#82ca9d"},
			{Name: "Rejected", Value: 137, Fill: "#ffc658"},
		},
	}
}

// MockProvider serves in-memory fixtures for tests and local demos.
type MockProvider struct {
	mu   sync.RWMutex
	data map[dashboard.DataSource][]dashboard.DataPoint
}

var _ dashboard.DatasetProvider = (*MockProvider)(nil)

// NewMockProvider builds a provider from data, falling back to DefaultFixtures.
func NewMockProvider(data map[dashboard.DataSource][]dashboard.DataPoint) *MockProvider {
	if data == nil {
		data = DefaultFixtures()
	}
	return &MockProvider{data: data}
}

// Dataset returns a copy of the fixture for source.
func (p *MockProvider) Dataset(ctx context.Context, source dashboard.DataSource) ([]dashboard.DataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	points, ok := p.data[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	return append([]dashboard.DataPoint{}, points...), nil
}

// Set replaces the fixture of source.
func (p *MockProvider) Set(source dashboard.DataSource, points []dashboard.DataPoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[source] = append([]dashboard.DataPoint{}, points...)
}
