package network

import (
	"fmt"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
)

// Network 路网
// 功能：以arena形式保存全部节点、路段、车道，通过句柄（下标）访问
// 说明：拓扑在构建后不再变化；规划阶段只读，信号灯状态只在Prepare阶段写入
type Network struct {
	nodes []Node
	links []Link
	lanes []Lane

	nodeIndex map[int32]entity.NodeID
	linkIndex map[int32]entity.LinkID
	laneIndex map[int32]entity.LaneID

	lights    []signal
	occupancy []int // 各车道上的车辆数，由车辆管理器在准备阶段写入
}

// signal 信号灯控制器
// 说明：prepare把灯色写入受控车道，update推进相位
type signal interface {
	prepare()
	update(dt float64)
}

// 获取Node
func (n *Network) Node(id entity.NodeID) *Node {
	if id < 0 || int(id) >= len(n.nodes) {
		log.Panicf("no handle %d in node data", id)
	}
	return &n.nodes[id]
}

// 获取Link
func (n *Network) Link(id entity.LinkID) *Link {
	if id < 0 || int(id) >= len(n.links) {
		log.Panicf("no handle %d in link data", id)
	}
	return &n.links[id]
}

// Lane 根据句柄获取Lane，句柄无效时panic
func (n *Network) Lane(id entity.LaneID) *Lane {
	if id < 0 || int(id) >= len(n.lanes) {
		log.Panicf("no handle %d in lane data", id)
	}
	return &n.lanes[id]
}

// LaneOrError 根据句柄获取Lane（带错误处理）
func (n *Network) LaneOrError(id entity.LaneID) (*Lane, error) {
	if id < 0 || int(id) >= len(n.lanes) {
		return nil, fmt.Errorf("no handle %d in lane data", id)
	}
	return &n.lanes[id], nil
}

// LaneByID 根据配置ID查找Lane句柄
func (n *Network) LaneByID(id int32) (entity.LaneID, bool) {
	h, ok := n.laneIndex[id]
	return h, ok
}

// LinkByID 根据配置ID查找Link句柄
func (n *Network) LinkByID(id int32) (entity.LinkID, bool) {
	h, ok := n.linkIndex[id]
	return h, ok
}

// NodeByID 根据配置ID查找Node句柄
func (n *Network) NodeByID(id int32) (entity.NodeID, bool) {
	h, ok := n.nodeIndex[id]
	return h, ok
}

func (n *Network) NumNodes() int { return len(n.nodes) }
func (n *Network) NumLinks() int { return len(n.links) }
func (n *Network) NumLanes() int { return len(n.lanes) }

// NextLanes 类型t可以驶入的后继车道
func (n *Network) NextLanes(id entity.LaneID, t entity.GTUType) []entity.LaneID {
	lane := n.Lane(id)
	if len(lane.successors) == 0 {
		return nil
	}
	res := make([]entity.LaneID, 0, len(lane.successors))
	for _, next := range lane.successors {
		if n.lanes[next].IsCompatible(t) {
			res = append(res, next)
		}
	}
	return res
}

// AccessibleAdjacentLane 类型t可以合法变道进入的相邻车道
// 返回：车道句柄，不存在时为entity.NoID
func (n *Network) AccessibleAdjacentLane(id entity.LaneID, side entity.Side, t entity.GTUType) entity.LaneID {
	lane := n.Lane(id)
	adj := lane.sides[side]
	if !adj.Valid() || !lane.CanChange(side, t) || !n.lanes[adj].IsCompatible(t) {
		return entity.NoID
	}
	return adj
}

// CompatibleLanes 路段上类型t可以使用的车道（从左到右）
func (n *Network) CompatibleLanes(id entity.LinkID, t entity.GTUType) []entity.LaneID {
	link := n.Link(id)
	res := make([]entity.LaneID, 0, len(link.lanes))
	for _, l := range link.lanes {
		if n.lanes[l].IsCompatible(t) {
			res = append(res, l)
		}
	}
	return res
}

// CountCompatibleLanes 路段上类型t可以使用的车道数
func (n *Network) CountCompatibleLanes(id entity.LinkID, t entity.GTUType) int {
	count := 0
	for _, l := range n.Link(id).lanes {
		if n.lanes[l].IsCompatible(t) {
			count++
		}
	}
	return count
}

// ViableOutLinks 节点处类型t可以继续行驶的驶出路段
// 说明：非车道化路段总是可行，车道化路段至少要有一条可用车道
func (n *Network) ViableOutLinks(id entity.NodeID, t entity.GTUType) []entity.LinkID {
	node := n.Node(id)
	res := make([]entity.LinkID, 0, len(node.out))
	for _, l := range node.out {
		link := &n.links[l]
		if !link.laneBased || n.CountCompatibleLanes(l, t) > 0 {
			res = append(res, l)
		}
	}
	return res
}

// ProjectS 变道时将s坐标按长度比例投影到目标车道
func (n *Network) ProjectS(from, to entity.LaneID, s float64) float64 {
	f, t := n.Lane(from), n.Lane(to)
	if f.length == 0 {
		return 0
	}
	return s / f.length * t.length
}

// Prepare 准备阶段，将信号灯状态写入车道
func (n *Network) Prepare() {
	parallel.GoFor(n.lights, func(l signal) { l.prepare() })
}

// Update 更新阶段，推进信号灯相位
func (n *Network) Update(dt float64) {
	parallel.GoFor(n.lights, func(l signal) { l.update(dt) })
}

// SetOccupancy 设置车道上的车辆数
// 说明：只能在准备阶段调用，供自适应信号灯在更新阶段读取
func (n *Network) SetOccupancy(id entity.LaneID, count int) {
	n.occupancy[id] = count
}

// Pressure 车道压力：本车道车辆数减去各后继车道的平均车辆数
func (n *Network) Pressure(id entity.LaneID) float64 {
	lane := n.Lane(id)
	p := float64(n.occupancy[id])
	if len(lane.successors) == 0 {
		return p
	}
	out := 0
	for _, next := range lane.successors {
		out += n.occupancy[next]
	}
	return p - float64(out)/float64(len(lane.successors))
}
