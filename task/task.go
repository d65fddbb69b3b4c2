package task

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/clock"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/model"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/tactical"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

// waitForServerReady 等待服务器就绪
// 功能：通过HTTP请求检查服务器是否已经启动并可以响应
// 参数：addr-服务器地址，retryCount-重试次数，interval-重试间隔
// 返回：错误信息，如果服务器就绪则返回nil
func waitForServerReady(addr string, retryCount int, interval time.Duration) error {
	client := &http.Client{
		Timeout: interval,
	}
	for range retryCount {
		resp, err := client.Get(addr)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("server `%v` did not become ready after %d retries", addr, retryCount)
}

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态
// 说明：管理时钟、路网、车辆管理器与对外的HTTP服务
type Context struct {
	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 路网
	net *network.Network
	// 战术规划器
	planner *tactical.Planner
	// 车辆管理器
	vehicleManager *vehicle.Manager

	// 运行时配置文件
	runtimeConfig *config.RuntimeConfig

	// HTTP服务（ClockService与/metrics），监听地址为空时不启动
	server   *http.Server
	listener net.Listener
}

// NewContext 创建新的仿真任务上下文
// 参数：
//   - job: 任务名称
//   - listen: HTTP监听地址，为空表示不提供服务
//   - c: 校验后的配置
//
// 返回：初始化完成的Context实例
// 算法说明：
// 1. 补全运行时配置，创建时钟
// 2. 构建路网
// 3. 创建跟车模型、变道模型与战术规划器
// 4. 创建车辆管理器并初始化车辆
// 5. 启动HTTP服务（如果需要）
func NewContext(job string, listen string, c config.Config) (*Context, error) {
	ctx := &Context{job: job}
	ctx.runtimeConfig = config.NewRuntimeConfig(c)
	ctx.clock = clock.New(c.Control.Step)

	var err error
	if ctx.net, err = network.New(c.Network); err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	params, err := tactical.NewParams(ctx.runtimeConfig.Tactical, ctx.runtimeConfig.LaneChange.Duration)
	if err != nil {
		return nil, err
	}
	cf := model.NewIDM(ctx.runtimeConfig.CarFollowing)
	lcm := model.NewMOBIL(cf, ctx.runtimeConfig.LaneChange, cf.UsualBrakingA(), params.HardVeto)
	ctx.planner = tactical.NewPlanner(ctx.net, cf, lcm, params)

	ctx.vehicleManager = vehicle.NewManager(ctx.net, ctx.planner, c.Control.Seed)
	if err := ctx.vehicleManager.Init(c.Vehicles); err != nil {
		return nil, err
	}

	if listen != "" {
		if err := ctx.serve(listen); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

// serve 启动HTTP服务并等待就绪
func (ctx *Context) serve(listen string) error {
	mux := http.NewServeMux()
	mux.Handle(ctx.clock.Handler())
	mux.Handle("/metrics", promhttp.Handler())
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	ctx.listener = l
	ctx.server = &http.Server{Handler: mux}
	go func() {
		if err := ctx.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicf("failed to serve: %v", err)
		}
	}()
	return waitForServerReady("http://"+l.Addr().String()+"/metrics", 10, 100*time.Millisecond)
}

// Addr HTTP服务的实际监听地址，未启动时为空
func (ctx *Context) Addr() string {
	if ctx.listener == nil {
		return ""
	}
	return ctx.listener.Addr().String()
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) Network() *network.Network {
	return ctx.net
}

func (ctx *Context) Planner() *tactical.Planner {
	return ctx.planner
}

func (ctx *Context) VehicleManager() *vehicle.Manager {
	return ctx.vehicleManager
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// Close 请求停止主循环并关闭HTTP服务，可以重复调用
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	if ctx.server != nil {
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ctx.server.Shutdown(shutdown); err != nil {
			log.Warnf("http server shutdown: %v", err)
		}
	}
}
