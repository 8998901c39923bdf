package metrics

import (
	"errors"
	"testing"
	"time"

	"shopsim/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.SubtickRan("economy", time.Millisecond, nil)
	r.SubtickRan("economy", time.Millisecond, errors.New("boom"))
	r.OrdersGenerated("salon", 3)
	r.OrdersGenerated("salon", 0)
	r.OrderFinished("salon", game.StatusCompleted)
	r.DriverStarted()
	r.DriverStarted()
	r.DriverStopped()
	r.FlushFinished(time.Second, nil)

	require.Equal(t, 1.0, testutil.ToFloat64(r.subtickErrors.WithLabelValues("economy")))
	require.Equal(t, 3.0, testutil.ToFloat64(r.ordersCreated.WithLabelValues("salon")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.ordersFinished.WithLabelValues("salon", "completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.drivers))

	n, err := testutil.GatherAndCount(reg, "shopsim_flush_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
