package metrics_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talaria/internal/matching"
	"talaria/internal/metrics"
)

func TestBookRouteDumpsCurrentBook(t *testing.T) {
	m := metrics.New()
	engine := matching.New(16)
	order, err := matching.NewOrder(100, 5, matching.Bid)
	require.NoError(t, err)
	engine.Limit(order)

	router := m.Router(engine.String)
	req := httptest.NewRequest("GET", "/book", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "100: 5")
}
