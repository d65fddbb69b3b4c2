package vehicle

import (
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/tactical"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/container"
)

// perception 基于车道链表的感知
// 说明：本车位置取runtime（规划中可能已经变道），其他车辆取链表中的snapshot
type perception struct {
	v *Vehicle
}

func (p *perception) ForwardHeadway() *tactical.Headway {
	return p.leader(p.v.runtime.Lane, p.v.runtime.S)
}

func (p *perception) BackwardHeadway() *tactical.Headway {
	return p.follower(p.v.runtime.Lane, p.v.runtime.S)
}

// NeighboringHeadways 相邻车道在本车投影位置处的前后车
// 说明：不能合法进入的方向返回Lane为entity.NoID的结果
func (p *perception) NeighboringHeadways(side entity.Side) tactical.Traffic {
	net := p.v.m.net
	from := p.v.runtime.Lane
	target := net.AccessibleAdjacentLane(from, side, p.v.typ)
	if !target.Valid() {
		return tactical.Traffic{Lane: entity.NoID}
	}
	s := net.ProjectS(from, target, p.v.runtime.S)
	return tactical.Traffic{
		Lane:     target,
		Leader:   p.leader(target, s),
		Follower: p.follower(target, s),
	}
}

func (p *perception) SpeedLimit() float64 {
	return p.v.m.net.Lane(p.v.runtime.Lane).SpeedLimit(p.v.typ)
}

// ForwardHeadwayObject 前方需要停车的信号灯
// 算法说明：沿路线向前检查前瞻距离内各车道末端的信号灯
//   - 红灯：需要停车
//   - 黄灯：剩余时间内以当前速度无法通过时需要停车
func (p *perception) ForwardHeadwayObject() *tactical.Headway {
	m := p.v.m
	params := m.planner.Params()
	lane := m.net.Lane(p.v.runtime.Lane)
	distance := lane.Length() - p.v.runtime.S
	for steps := 0; steps <= params.MaxWalkSteps; steps++ {
		if p.mustStop(lane, distance) {
			return &tactical.Headway{
				ID:       lane.ID(),
				Kind:     tactical.HeadwayTrafficLight,
				Distance: distance,
			}
		}
		if distance >= params.Lookahead || lane.IsSink() {
			break
		}
		next, err := tactical.NextLaneOnRoute(m.net, p.v.route, lane.Handle(), p.v.typ)
		if err != nil {
			break
		}
		lane = m.net.Lane(next)
		distance += lane.Length()
	}
	return nil
}

func (p *perception) mustStop(lane *network.Lane, distance float64) bool {
	state, remaining := lane.Light()
	switch state {
	case mapv2.LightState_LIGHT_STATE_RED:
		return true
	case mapv2.LightState_LIGHT_STATE_YELLOW:
		return p.v.runtime.V*remaining < distance
	default:
		return false
	}
}

// leader 从车道lane的位置s开始沿路线向前查找前车
// 返回：前车，净距为前车车尾到s；前瞻距离内没有时返回nil
func (p *perception) leader(lane entity.LaneID, s float64) *tactical.Headway {
	m := p.v.m
	params := m.planner.Params()
	offset := -s
	for steps := 0; steps <= params.MaxWalkSteps; steps++ {
		node := m.lanes[lane].Ahead(s)
		for node != nil && node.Value.v == p.v {
			node = node.Next()
		}
		if node != nil {
			return p.headway(node, offset+node.S-node.L())
		}
		l := m.net.Lane(lane)
		offset += l.Length()
		if offset >= params.Lookahead || l.IsSink() {
			return nil
		}
		next, err := tactical.NextLaneOnRoute(m.net, p.v.route, lane, p.v.typ)
		if err != nil {
			return nil
		}
		lane, s = next, -1
	}
	return nil
}

// follower 车道lane上位置s后方的后车
// 返回：后车，净距为本车车尾到后车车头；只在本车道上查找
func (p *perception) follower(lane entity.LaneID, s float64) *tactical.Headway {
	node := p.v.m.lanes[lane].Behind(s)
	for node != nil && node.Value.v == p.v {
		node = node.Prev()
	}
	if node == nil {
		return nil
	}
	return p.headway(node, s-p.v.length-node.S)
}

func (p *perception) headway(node *container.ListNode[laneEntry], distance float64) *tactical.Headway {
	return &tactical.Headway{
		ID:       node.Value.v.id,
		Kind:     tactical.HeadwayGTU,
		Distance: distance,
		Speed:    node.V(),
	}
}
