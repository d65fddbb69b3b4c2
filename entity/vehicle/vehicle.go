package vehicle

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/route"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/tactical"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/container"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/randengine"
)

const defaultLength = 5.0 // 未配置时的车辆长度（米）

// vehicleRuntime 车辆运行时数据
// 说明：该数据结构需要可以被直接复制，snapshot是上一步结束时的runtime
type vehicleRuntime struct {
	Lane   entity.LaneID // 所在车道
	S      float64       // 车头在车道上的位置
	V      float64       // 速度
	A      float64       // 本步加速度
	LastLC float64       // 上次变道时刻
	Left   bool          // 已驶出路网
}

// Vehicle 车辆
// 功能：战术规划面对的车辆，持有路线、运行时数据与车道链表节点
// 说明：update阶段只修改自己的runtime，读取其他车辆时只读snapshot
type Vehicle struct {
	container.IncrementalItemBase

	m *Manager

	id     int32
	typ    entity.GTUType
	maxV   float64
	length float64
	route  *route.Fixed
	rand   *randengine.Engine

	runtime, snapshot vehicleRuntime

	// 车道链表节点及其所在车道
	node     *container.ListNode[laneEntry]
	nodeLane entity.LaneID

	plan *tactical.OperationalPlan // 最近一次规划结果
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("Vehicle{id:%d, type:%s, lane:%v, s:%.2f, v:%.2f}", v.id, v.typ, v.runtime.Lane, v.runtime.S, v.runtime.V)
}

func (v *Vehicle) ID() int32 {
	return v.id
}

func (v *Vehicle) Type() entity.GTUType {
	return v.typ
}

func (v *Vehicle) Lane() entity.LaneID {
	return v.runtime.Lane
}

func (v *Vehicle) S() float64 {
	return v.runtime.S
}

func (v *Vehicle) V() float64 {
	return v.runtime.V
}

func (v *Vehicle) MaxV() float64 {
	return v.maxV
}

func (v *Vehicle) Length() float64 {
	return v.length
}

func (v *Vehicle) LastLaneChangeTime() float64 {
	return v.runtime.LastLC
}

func (v *Vehicle) Route() tactical.RoutePlanner {
	return v.route
}

func (v *Vehicle) Perception() tactical.Perception {
	return &perception{v: v}
}

// Rand 车辆独立的随机数引擎
func (v *Vehicle) Rand() *randengine.Engine {
	return v.rand
}

// Plan 最近一次规划结果，尚未规划时为nil
func (v *Vehicle) Plan() *tactical.OperationalPlan {
	return v.plan
}

// Left 车辆是否已驶出路网
func (v *Vehicle) Left() bool {
	return v.runtime.Left
}

// ChangeLaneInstantaneously 立即移动到side侧的相邻车道
// 说明：位置按车道长度比例投影，只修改本车的runtime
func (v *Vehicle) ChangeLaneInstantaneously(side entity.Side) error {
	net := v.m.net
	from := v.runtime.Lane
	to := net.AccessibleAdjacentLane(from, side, v.typ)
	if !to.Valid() {
		return fmt.Errorf("no accessible %v lane next to %v", side, net.Lane(from))
	}
	v.runtime.S = net.ProjectS(from, to, v.runtime.S)
	v.runtime.Lane = to
	v.runtime.LastLC = v.m.t
	log.Debugf("vehicle %d changes lane %v -> %v at %.2f", v.id, net.Lane(from), net.Lane(to), v.m.t)
	return nil
}

// update 更新阶段
// 功能：生成运行计划并沿计划路径推进dt秒
// 返回：isEnd-车辆是否在本步驶出路网
func (v *Vehicle) update(dt float64) (isEnd bool) {
	plan, err := v.m.planner.BuildPlan(v, v.m.t)
	if err != nil {
		// 无法构建前方路径，原地停车等待下一步
		log.Errorf("vehicle %d: %v", v.id, err)
		v.runtime.V = 0
		v.runtime.A = 0
		v.plan = nil
		return false
	}
	v.plan = plan
	return v.advance(plan, dt)
}

// advance 沿计划路径推进dt秒
// 算法说明：
// 1. 由计划得到dt秒后的速度与行驶距离
// 2. 从路径起点沿路径上的车道依次扣除车道长度，得到新的车道与位置
// 3. 超出路径末端时：出口车道驶出路网，需要停车的末端停在车道末端
func (v *Vehicle) advance(plan *tactical.OperationalPlan, dt float64) (isEnd bool) {
	net := v.m.net
	path := plan.Path
	v.runtime.A = plan.Acceleration()
	v.runtime.V = plan.SpeedAt(dt)
	s := path.Start + plan.DistanceAt(dt)
	i := 0
	lane := net.Lane(path.Lanes[0])
	for s > lane.Length() && i+1 < len(path.Lanes) {
		s -= lane.Length()
		i++
		lane = net.Lane(path.Lanes[i])
	}
	if s > lane.Length() {
		if lane.IsSink() {
			v.runtime.Left = true
			return true
		}
		if path.EndsAtStop {
			s = lane.Length()
			v.runtime.V = 0
		} else {
			// 前方路径短于本步行驶距离，下一步继续
			s = math.Nextafter(lane.Length(), 0)
		}
	}
	v.runtime.Lane = lane.Handle()
	v.runtime.S = s
	return false
}

// prepare 准备阶段：snapshot更新
func (v *Vehicle) prepare() {
	v.snapshot = v.runtime
}

// newVehicleNode 创建车道链表节点
func newVehicleNode(v *Vehicle) *container.ListNode[laneEntry] {
	return &container.ListNode[laneEntry]{S: v.runtime.S, Value: laneEntry{v: v}}
}

// laneEntry 车道链表中的车辆
// 说明：链表在规划阶段被其他车辆并发读取，只能暴露snapshot
type laneEntry struct {
	v *Vehicle
}

func (e laneEntry) V() float64 {
	return e.v.snapshot.V
}

func (e laneEntry) Length() float64 {
	return e.v.length
}

// newVehicle 创建车辆
func newVehicle(m *Manager, id int32, typ entity.GTUType, lane *network.Lane, s, speed, maxV, length float64, r *route.Fixed) *Vehicle {
	if length == 0 {
		length = defaultLength
	}
	v := &Vehicle{
		m:        m,
		id:       id,
		typ:      typ,
		maxV:     maxV,
		length:   length,
		route:    r,
		rand:     randengine.Fork(m.seed, id),
		nodeLane: entity.NoID,
	}
	v.runtime = vehicleRuntime{
		Lane:   lane.Handle(),
		S:      s,
		V:      speed,
		LastLC: math.Inf(-1),
	}
	v.snapshot = v.runtime
	return v
}
