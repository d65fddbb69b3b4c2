package tactical

import (
	"errors"
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
)

// ErrNoNextLane 车道末端没有可继续的车道
var ErrNoNextLane = errors.New("no next lane")

// LanePathInfo 前方路径
type LanePathInfo struct {
	Lanes      []entity.LaneID  // 依次经过的车道，第一条为车辆当前车道
	Start      float64          // 在第一条车道上的起点
	Length     float64          // 从起点到路径末端的长度
	Line       []geometry.Point // 路径折线
	EndsAtStop bool             // 路径末端需要停车（断头路或路线无法确定）
}

func (p *LanePathInfo) String() string {
	return fmt.Sprintf("LanePathInfo{lanes:%v, start:%.2f, length:%.2f, stop:%v}", p.Lanes, p.Start, p.Length, p.EndsAtStop)
}

// NextLaneOnRoute 按路线选择车道lane的下一条车道
// 返回：下一条车道；没有后继车道时返回ErrNoNextLane，分叉处路线无法确定时返回路线的错误
// 说明：只有一条后继车道时不询问路线；多条时取路线指定路段上的第一条后继
func NextLaneOnRoute(net *network.Network, route RoutePlanner, lane entity.LaneID, t entity.GTUType) (entity.LaneID, error) {
	next := net.NextLanes(lane, t)
	switch len(next) {
	case 0:
		return entity.NoID, ErrNoNextLane
	case 1:
		return next[0], nil
	}
	link := net.Link(net.Lane(lane).Link())
	nextLink, err := route.NextLink(link.To(), link.Handle(), t)
	if err != nil {
		return entity.NoID, err
	}
	for _, l := range next {
		if net.Lane(l).Link() == nextLink {
			return l, nil
		}
	}
	return entity.NoID, fmt.Errorf("%w: %v has no successor on %v", ErrNetworkInconsistency, net.Lane(lane), net.Link(nextLink))
}

// LanePath 从车辆车头位置沿前方车道构建路径
// 功能：依次经过后继车道直到长度达到前瞻距离，分叉处询问路线
// 说明：遇到断头路或路线无法确定时路径末端需要停车，遇到出口车道时不需要
func (p *Planner) LanePath(agent Agent) (*LanePathInfo, error) {
	net := p.net
	info, err := p.currentLanePath(agent)
	if err != nil {
		return nil, err
	}
	lane := net.Lane(agent.Lane())
	for steps := 0; info.Length < p.params.Lookahead && steps < p.params.MaxWalkSteps; steps++ {
		if lane.IsSink() {
			break
		}
		next, err := NextLaneOnRoute(net, agent.Route(), lane.Handle(), agent.Type())
		if err != nil {
			if !errors.Is(err, ErrNoNextLane) {
				log.Debugf("vehicle %d: lane path stops at %v: %v", agent.ID(), lane, err)
			}
			info.EndsAtStop = true
			break
		}
		lane = net.Lane(next)
		info.Lanes = append(info.Lanes, next)
		info.Length += lane.Length()
		info.Line = append(info.Line, lane.PositionByS(lane.Length()))
	}
	return info, nil
}

// currentLanePath 只包含当前车道剩余部分的路径，不查询路线
func (p *Planner) currentLanePath(agent Agent) (*LanePathInfo, error) {
	lane, err := p.net.LaneOrError(agent.Lane())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPath, err)
	}
	s := agent.S()
	return &LanePathInfo{
		Lanes:  []entity.LaneID{lane.Handle()},
		Start:  s,
		Length: lane.Length() - s,
		Line:   []geometry.Point{lane.PositionByS(s), lane.PositionByS(lane.Length())},
	}, nil
}
