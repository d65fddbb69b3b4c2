package task

import (
	"flag"
	"sync"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 算法说明：
// 1. 心跳日志：定期输出时刻与车辆统计
// 2. 并行准备：
//   - 路网：把信号灯状态写入车道
//   - 车辆管理器：先更新车道链表节点，再更新snapshot
//
// 说明：准备阶段结束后，更新阶段只读取本阶段提交的数据
func (ctx *Context) prepare() {
	if *heartBeatInterval > 0 && ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		stat := ctx.vehicleManager.Snapshot()
		log.Infof(
			"STEP: %d(%d:%d:%.2f) running=%d arrived=%d",
			ctx.clock.InternalStep,
			hour, minute, second,
			len(ctx.vehicleManager.Vehicles()), stat.NumArrived,
		)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx.net.Prepare() // network
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx.vehicleManager.PrepareNode() // lane lists
		ctx.vehicleManager.Prepare()     // vehicle
	}()
	wg.Wait()
}

// update 更新阶段，每步执行一次
// 功能：推进信号灯相位，为每辆车规划并推进一个时间步长
// 说明：信号灯的运行时数据与车辆互不读取，可以并行更新
func (ctx *Context) update() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx.net.Update(ctx.clock.DT) // network
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx.vehicleManager.Update(ctx.clock.T, ctx.clock.DT) // vehicle
	}()
	wg.Wait()
}

// Run 运行主循环直到结束步或收到关闭指令
func (ctx *Context) Run() {
	log.Infof("job %s starts at %v", ctx.job, ctx.clock)
	for !ctx.closed.Load() {
		ctx.prepare()
		log.Debugf("step %d: prepare complete", ctx.clock.InternalStep)
		ctx.update()
		log.Debugf("step %d: update complete", ctx.clock.InternalStep)
		if !ctx.clock.Next() {
			break
		}
	}
	// 提交最后一步的结果
	ctx.prepare()
	stat := ctx.vehicleManager.Snapshot()
	log.Infof("engine complete: arrived=%d travel_time=%.1f travel_distance=%.1f",
		stat.NumArrived, stat.TravelTime, stat.TravelDistance)
	ctx.Close()
}
