package datasets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

func TestMockProviderServesCopies(t *testing.T) {
	provider := NewMockProvider(nil)
	ctx := context.Background()

	for _, source := range []dashboard.DataSource{dashboard.DataSourceGraduates, dashboard.DataSourceCompanies, dashboard.DataSourceApplications} {
		points, err := provider.Dataset(ctx, source)
		require.NoError(t, err, source)
		assert.NotEmpty(t, points, source)
	}

	points, err := provider.Dataset(ctx, dashboard.DataSourceCompanies)
	require.NoError(t, err)
	points[0].Value = -1
	again, err := provider.Dataset(ctx, dashboard.DataSourceCompanies)
	require.NoError(t, err)
	assert.Equal(t, float64(42), again[0].Value)

	_, err = provider.Dataset(ctx, "students")
	assert.ErrorIs(t, err, ErrUnknownSource)

	provider.Set("students", []dashboard.DataPoint{{Name: "A", Value: 1}})
	points, err = provider.Dataset(ctx, "students")
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestMockProviderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockProvider(nil).Dataset(ctx, dashboard.DataSourceGraduates)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHTTPClientDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/datasets/graduates" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected auth header, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Engineering","value":12,"fill":"#8884d8"},{"name":"Design","value":"3.5"}]`))
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL + "/", APIKey: "secret"})
	require.NoError(t, err)

	points, err := client.Dataset(context.Background(), dashboard.DataSourceGraduates)
	require.NoError(t, err)
	assert.Equal(t, []dashboard.DataPoint{
		{Name: "Engineering", Value: 12, Fill: "#8884d8"},
		{Name: "Design", Value: 3.5},
	}, points)
}

func TestHTTPClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/datasets/companies":
			http.Error(w, "upstream exploded", http.StatusBadGateway)
		case "/datasets/applications":
			_, _ = w.Write([]byte(`{"oops":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Dataset(context.Background(), dashboard.DataSourceCompanies)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	_, err = client.Dataset(context.Background(), dashboard.DataSourceApplications)
	assert.ErrorContains(t, err, "decode")

	_, err = client.Dataset(context.Background(), "students")
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = NewHTTPClient(HTTPConfig{})
	assert.Error(t, err)
}

func TestHTTPClientCapsErrorBody(t *testing.T) {
	huge := strings.Repeat("x", 1<<20)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, huge, http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Dataset(context.Background(), dashboard.DataSourceGraduates)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.LessOrEqual(t, len(err.Error()), maxErrorBody+64)
}
