package clock_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	clockv1 "git.fiblab.net/sim/protos/v2/go/city/clock/v1"
	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/clock"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

func TestClock(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 7200, Total: 3, Interval: 0.5})
	assert.Equal(t, 3600.0, c.T)
	assert.Equal(t, "01:00:00", c.String())
	assert.False(t, c.IsLastStep())

	assert.True(t, c.Next())
	assert.Equal(t, 3600.5, c.T)
	h, m, s := c.GetHourMinuteSecond()
	assert.Equal(t, 1, h)
	assert.Equal(t, 0, m)
	assert.Equal(t, 0.5, s)

	assert.True(t, c.Next())
	assert.True(t, c.IsLastStep())
	assert.False(t, c.Next())

	c.Init()
	assert.Equal(t, int32(7200), c.InternalStep)
}

func TestNow(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 10, Total: 5, Interval: 1})
	mux := http.NewServeMux()
	mux.Handle(c.Handler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := clockv1connect.NewClockServiceClient(http.DefaultClient, srv.URL)
	res, err := client.Now(context.Background(), connect.NewRequest(&clockv1.NowRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Msg.T)

	c.Next()
	res, err = client.Now(context.Background(), connect.NewRequest(&clockv1.NowRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 11.0, res.Msg.T)
}
