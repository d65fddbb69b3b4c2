package clock

import (
	"fmt"
	"sync/atomic"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

// Clock 仿真时钟
// 功能：管理仿真步数与当前时刻，并通过ClockService对外提供当前时刻
// 说明：T与InternalStep只在准备阶段由主循环修改，RPC读取的是原子保存的副本
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT         float64 // 每步的时间间隔（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，模拟区间[START, END)

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前步数

	published atomic.Uint64 // 供RPC读取的T
}

// New 根据配置创建时钟
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 重置为起始步
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
	c.publish()
}

// Next 前进一步
// 返回：是否仍在模拟区间内
func (c *Clock) Next() bool {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
	c.publish()
	return c.InternalStep < c.END_STEP
}

// IsLastStep 当前是否为最后一步
func (c *Clock) IsLastStep() bool {
	return c.InternalStep+1 >= c.END_STEP
}

// String 格式化为HH:MM:SS
func (c *Clock) String() string {
	hour, minute, second := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, int(second))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
