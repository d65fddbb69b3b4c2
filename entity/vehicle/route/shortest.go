package route

import (
	"fmt"

	"git.fiblab.net/general/common/v2/mathutil"
	routingv2 "git.fiblab.net/sim/protos/v2/go/city/routing/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/container"
)

// 非车道化路段的通行速度（米/秒）
const nonLaneBasedSpeed = 5.0

// freeFlowTime 类型t以自由流速度通过路段的时间
func freeFlowTime(net *network.Network, id entity.LinkID, t entity.GTUType) float64 {
	link := net.Link(id)
	if !link.LaneBased() {
		return link.Length() / nonLaneBasedSpeed
	}
	lanes := net.CompatibleLanes(id, t)
	if len(lanes) == 0 {
		return mathutil.INF
	}
	maxV := lo.Max(lo.Map(lanes, func(l entity.LaneID, _ int) float64 {
		return net.Lane(l).SpeedLimit(t)
	}))
	return link.Length() / maxV
}

// ShortestPath 按自由流通行时间搜索从start路段到目标节点的路线
// 参数：net-路网，start-车辆当前所在路段，dest-目标节点，t-车辆类型
// 返回：与routing服务相同格式的结果，包含一个驾车Journey（第一条路段为start）
// 算法说明：以start终点为起点在节点图上做Dijkstra，边为类型t可以驶入的路段，权重为自由流通行时间
func ShortestPath(net *network.Network, start entity.LinkID, dest entity.NodeID, t entity.GTUType) (*routingv2.GetRouteResponse, error) {
	origin := net.Link(start).To()
	cost := make([]float64, net.NumNodes())
	via := make([]entity.LinkID, net.NumNodes())
	done := make([]bool, net.NumNodes())
	for i := range cost {
		cost[i] = mathutil.INF
		via[i] = entity.NoID
	}
	cost[origin] = 0
	pq := container.NewPriorityQueue[entity.NodeID]()
	pq.HeapPush(origin, 0)
	for pq.Len() > 0 {
		node, c := pq.HeapPop()
		if done[node] {
			continue
		}
		done[node] = true
		if node == dest {
			break
		}
		for _, out := range net.ViableOutLinks(node, t) {
			to := net.Link(out).To()
			if nc := c + freeFlowTime(net, out, t); nc < cost[to] {
				cost[to] = nc
				via[to] = out
				pq.HeapPush(to, nc)
			}
		}
	}
	if !done[dest] {
		return nil, fmt.Errorf("route: %v is not reachable from %v for %s", net.Node(dest), net.Link(start), t)
	}
	links := []entity.LinkID{}
	for node := dest; node != origin; node = net.Link(via[node]).From() {
		links = append(links, via[node])
	}
	links = append(links, start)
	links = lo.Reverse(links)
	log.Debugf("shortest path from %v to %v: %d links, %.1fs", net.Link(start), net.Node(dest), len(links), cost[dest])
	return &routingv2.GetRouteResponse{
		Journeys: []*routingv2.Journey{{
			Type: routingv2.JourneyType_JOURNEY_TYPE_DRIVING,
			Driving: &routingv2.DrivingJourneyBody{
				RoadIds: lo.Map(links, func(l entity.LinkID, _ int) int32 { return net.Link(l).ID() }),
				Eta:     cost[dest] + freeFlowTime(net, start, t),
			},
		}},
	}, nil
}
