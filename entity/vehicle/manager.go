package vehicle

import (
	"errors"
	"fmt"
	"sync"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/route"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/tactical"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/container"
)

var (
	vehiclesRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vehicles_running",
		Help: "Vehicles currently on the network",
	})
	vehiclesArrived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vehicles_arrived_total",
		Help: "Vehicles that left the network through a sink lane",
	})
)

// GlobalRuntime 全局运行时数据
type GlobalRuntime struct {
	NumArrived     int32   // 已驶出路网的车辆数
	TravelTime     float64 // 总行驶时间
	TravelDistance float64 // 总行驶距离
}

// Manager 车辆管理器
// 功能：管理所有车辆与各车道上的车辆链表，按准备/更新两阶段推进
type Manager struct {
	net     *network.Network
	planner *tactical.Planner
	seed    uint64

	data     map[int32]*Vehicle
	vehicles *container.IncrementalArray[*Vehicle]
	lanes    []*container.List[laneEntry] // 按车道句柄索引

	leaving    []*Vehicle // 本步驶出路网的车辆
	leavingMtx sync.Mutex

	t float64 // 当前规划时刻

	snapshot, runtime GlobalRuntime
	runtimeMtx        sync.Mutex
}

// NewManager 创建车辆管理器
// 参数：net-路网，planner-战术规划器，seed-随机数种子
func NewManager(net *network.Network, planner *tactical.Planner, seed uint64) *Manager {
	m := &Manager{
		net:      net,
		planner:  planner,
		seed:     seed,
		data:     make(map[int32]*Vehicle),
		vehicles: container.NewIncrementalArray[*Vehicle](),
		lanes:    make([]*container.List[laneEntry], net.NumLanes()),
	}
	for i := range m.lanes {
		m.lanes[i] = &container.List[laneEntry]{ID: net.Lane(entity.LaneID(i)).String()}
	}
	return m
}

// Init 根据配置创建全部车辆
// 功能：解析每辆车的起点与路线，路线三选一（固定路段、目标节点、routing结果）
// 返回：第一个无法创建的车辆的错误
func (m *Manager) Init(cs []config.Vehicle) error {
	type result struct {
		v   *Vehicle
		err error
	}
	results := parallel.GoMap(cs, func(c config.Vehicle) result {
		v, err := m.newVehicleFromConfig(c)
		return result{v, err}
	})
	if r, ok := lo.Find(results, func(r result) bool { return r.err != nil }); ok {
		return r.err
	}
	vehicles := lo.Map(results, func(r result, _ int) *Vehicle { return r.v })
	if dup := lo.FindDuplicatesBy(vehicles, func(v *Vehicle) int32 { return v.id }); len(dup) > 0 {
		return fmt.Errorf("vehicle: duplicated id %d", dup[0].id)
	}
	m.data = lo.SliceToMap(vehicles, func(v *Vehicle) (int32, *Vehicle) {
		return v.id, v
	})
	for _, v := range vehicles {
		m.vehicles.Add(v)
	}
	log.Infof("Vehicle: %d", len(vehicles))
	return nil
}

func (m *Manager) newVehicleFromConfig(c config.Vehicle) (*Vehicle, error) {
	h, ok := m.net.LaneByID(c.Lane)
	if !ok {
		return nil, fmt.Errorf("vehicle %d: no lane %d", c.ID, c.Lane)
	}
	lane := m.net.Lane(h)
	if c.S > lane.Length() {
		return nil, fmt.Errorf("vehicle %d: s %.2f beyond %v with length %.2f", c.ID, c.S, lane, lane.Length())
	}
	typ := entity.GTUType(c.Type)
	if !lane.IsCompatible(typ) {
		return nil, fmt.Errorf("vehicle %d: %v is not accessible to %s", c.ID, lane, typ)
	}
	r, err := m.newRoute(c.Route, lane.Link(), typ)
	if err != nil {
		return nil, fmt.Errorf("vehicle %d: %w", c.ID, err)
	}
	if !r.Contains(lane.Link()) {
		return nil, fmt.Errorf("vehicle %d: route does not contain %v", c.ID, m.net.Link(lane.Link()))
	}
	return newVehicle(m, c.ID, typ, lane, c.S, c.V, c.MaxV, c.Length, r), nil
}

// newRoute 按配置创建路线
func (m *Manager) newRoute(c config.Route, start entity.LinkID, typ entity.GTUType) (*route.Fixed, error) {
	switch {
	case len(c.Links) > 0:
		return route.FromLinkIDs(m.net, c.Links, 0)
	case c.Destination != nil:
		dest, ok := m.net.NodeByID(*c.Destination)
		if !ok {
			return nil, fmt.Errorf("no destination node %d", *c.Destination)
		}
		res, err := route.ShortestPath(m.net, start, dest, typ)
		if err != nil {
			return nil, err
		}
		return route.FromResponse(m.net, res)
	case c.Journey != "":
		return route.ParseResponse(m.net, c.Journey)
	}
	return nil, errors.New("no route")
}

// Get 根据ID获取车辆，不存在时panic
func (m *Manager) Get(id int32) *Vehicle {
	if v, ok := m.data[id]; !ok {
		log.Panicf("no id %d in vehicle data", id)
		return nil
	} else {
		return v
	}
}

// GetOrError 根据ID获取车辆（带错误处理）
func (m *Manager) GetOrError(id int32) (*Vehicle, error) {
	if v, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in vehicle data", id)
	} else {
		return v, nil
	}
}

// Vehicles 仍在路网上的车辆
func (m *Manager) Vehicles() []*Vehicle {
	return m.vehicles.Data()
}

// Snapshot 上一步结束时的全局统计
func (m *Manager) Snapshot() GlobalRuntime {
	return m.snapshot
}

// Lane 车道上按位置升序排列的车辆
func (m *Manager) Lane(id entity.LaneID) []*Vehicle {
	return lo.Map(m.lanes[id].Values(), func(e laneEntry, _ int) *Vehicle { return e.v })
}

// PrepareNode 准备阶段：车道链表节点更新
// 算法说明：
// 1. 驶出路网的车辆从链表中移除，生效数组的增删
// 2. 车道不变的车辆只更新节点的键值
// 3. 车道变化（含新加入）的车辆换一个新节点插入新车道，避免同一节点的移除与插入交错
// 4. 并行恢复每条车道链表的顺序，并把各车道车辆数写入路网供信号灯使用
func (m *Manager) PrepareNode() {
	for _, v := range m.leaving {
		if v.node != nil {
			m.lanes[v.nodeLane].Remove(v.node)
			v.node = nil
		}
		delete(m.data, v.id)
	}
	m.leaving = nil
	m.vehicles.Prepare()

	moved := parallel.GoMapFilter(m.vehicles.Data(), func(v *Vehicle) (*Vehicle, bool) {
		if v.node != nil && v.nodeLane == v.runtime.Lane {
			v.node.S = v.runtime.S
			return nil, false
		}
		return v, true
	})
	for _, v := range moved {
		if v.node != nil {
			m.lanes[v.nodeLane].Remove(v.node)
		}
		v.node = newVehicleNode(v)
		v.nodeLane = v.runtime.Lane
		m.lanes[v.nodeLane].Insert(v.node)
	}
	parallel.GoFor(m.lanes, func(l *container.List[laneEntry]) { l.Resort() })
	for i, l := range m.lanes {
		m.net.SetOccupancy(entity.LaneID(i), l.Len())
	}
	vehiclesRunning.Set(float64(m.vehicles.Len()))
}

// Prepare 准备阶段：snapshot更新
func (m *Manager) Prepare() {
	parallel.GoFor(m.vehicles.Data(), func(v *Vehicle) { v.prepare() })
	m.snapshot = m.runtime
	log.Debug("VehicleManager: prepare done")
}

// Update 更新阶段：为每辆车规划并推进dt秒
// 参数：t-当前时刻，dt-时间步长
func (m *Manager) Update(t, dt float64) {
	m.t = t
	parallel.GoFor(m.vehicles.Data(), func(v *Vehicle) {
		before := v.snapshot
		isEnd := v.update(dt)
		m.recordRunning(dt, v.plan)
		if isEnd {
			log.Debugf("vehicle %d leaves the network from %v at %.2f", v.id, m.net.Lane(before.Lane), t)
			m.leave(v)
		}
	})
}

func (m *Manager) leave(v *Vehicle) {
	m.leavingMtx.Lock()
	m.leaving = append(m.leaving, v)
	m.leavingMtx.Unlock()
	m.vehicles.Remove(v)
	vehiclesArrived.Inc()

	m.runtimeMtx.Lock()
	defer m.runtimeMtx.Unlock()
	m.runtime.NumArrived++
}

// recordRunning 记录车辆本步的行驶时间与距离
func (m *Manager) recordRunning(dt float64, plan *tactical.OperationalPlan) {
	ds := 0.0
	if plan != nil {
		ds = plan.DistanceAt(dt)
	}
	m.runtimeMtx.Lock()
	defer m.runtimeMtx.Unlock()
	m.runtime.TravelTime += dt
	m.runtime.TravelDistance += ds
}
