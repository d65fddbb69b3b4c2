package clock

import (
	"context"
	"math"
	"net/http"

	"connectrpc.com/connect"
	clockv1 "git.fiblab.net/sim/protos/v2/go/city/clock/v1"
	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
)

func (c *Clock) publish() {
	c.published.Store(math.Float64bits(c.T))
}

// Handler 创建ClockService的HTTP处理器
// 返回：挂载路径与处理器，供任务的HTTP服务注册
func (c *Clock) Handler(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
	return clockv1connect.NewClockServiceHandler(c, opts...)
}

// Now 获取当前仿真时间
// 说明：可以在仿真运行期间被并发调用
func (c *Clock) Now(ctx context.Context, in *connect.Request[clockv1.NowRequest]) (*connect.Response[clockv1.NowResponse], error) {
	return connect.NewResponse(&clockv1.NowResponse{
		T: math.Float64frombits(c.published.Load()),
	}), nil
}
