package tactical

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
)

// walker 一次顶层前瞻查询的状态
// 说明：steps在递归调用间共享，用于限制零长度车道环路上的遍历
type walker struct {
	net      *network.Network
	route    RoutePlanner
	t        entity.GTUType
	keepSide entity.Side // 路线偏好的保持侧，车道消失时先尝试另一侧
	maxSteps int
	steps    int
}

func (w *walker) step() bool {
	w.steps++
	return w.steps <= w.maxSteps
}

// Suitability 计算在车道lane的位置pos上，为保持在路线上需要在多远距离内离开该车道
// 参数：lane-车道，pos-车头位置，t-车辆类型，route-路线，horizon-前瞻时间（秒）
// 返回：车道适宜性；路网或路线不一致时返回ErrNetworkInconsistency
// 算法说明：
// 1. 剩余时间spareTime = horizon - 剩余长度/限速，不大于0时无需关心
// 2. 沿路段逐个节点前进，直到找到真正的分叉节点
//   - 当前路段只有0条可用车道：路网不一致
//   - 当前路段只有1条可用车道：车辆自然会在该车道上，无需变道
//   - 节点没有可继续的路段：断头路，由车道消失前瞻处理
//   - 非车道化路段：任何车道都一样
//   - 只有一条可继续的路段：前进并扣除通行时间，车道消失时强制横移到能继续的相邻车道
//
// 3. 在分叉节点向路线询问下一路段，对每条能接入该路段的车道递归计算适宜性并加上已走过的距离
// 4. 当前车道在候选集合中时直接返回其值
// 5. 否则向左右两侧逐条查找候选车道，按所需变道次数加权，返回较大的一侧
func (p *Planner) Suitability(
	lane entity.LaneID, pos float64, t entity.GTUType, route RoutePlanner, horizon float64,
) (Suitability, error) {
	w := &walker{
		net:      p.net,
		route:    route,
		t:        t,
		keepSide: p.params.PreferredSide,
		maxSteps: p.params.MaxWalkSteps,
	}
	return w.suitability(lane, pos, horizon)
}

func (w *walker) suitability(lane entity.LaneID, pos float64, horizon float64) (Suitability, error) {
	net, t := w.net, w.t
	l := net.Lane(lane)
	remainingDistance := l.Length() - pos
	spareTime := horizon - remainingDistance/l.SpeedLimit(t)
	currentLane := lane
	linkBeforeBranch := l.Link()
	nextNode := net.Link(linkBeforeBranch).To()
	for {
		if !w.step() {
			log.Debugf("suitability walk from %v stopped after %d steps", lane, w.maxSteps)
			return NoChangeNeeded, nil
		}
		if spareTime <= 0 {
			return NoChangeNeeded, nil
		}
		switch net.CountCompatibleLanes(linkBeforeBranch, t) {
		case 0:
			return Suitability{}, fmt.Errorf("%w: no compatible lanes on %v for %s",
				ErrNetworkInconsistency, net.Link(linkBeforeBranch), t)
		case 1:
			return NoChangeNeeded, nil
		}
		outs := net.ViableOutLinks(nextNode, t)
		if len(outs) == 0 {
			return NoChangeNeeded, nil
		}
		if len(outs) > 1 && net.Node(nextNode).IncidentLinks() > 2 {
			break
		}
		nextLink := net.Link(outs[0])
		if !nextLink.LaneBased() {
			return NoChangeNeeded, nil
		}
		remainingDistance += nextLink.Length()
		if len(net.NextLanes(currentLane, t)) == 0 {
			shifted, ok := w.forcedShift(currentLane)
			if !ok {
				return Suitability{}, fmt.Errorf("%w: %v ends and no adjacent lane continues",
					ErrNetworkInconsistency, net.Lane(currentLane))
			}
			currentLane = shifted
		}
		currentLane = net.NextLanes(currentLane, t)[0]
		next := net.Lane(currentLane)
		spareTime -= next.Length() / next.SpeedLimit(t)
		linkBeforeBranch = nextLink.Handle()
		nextNode = nextLink.To()
	}

	linkAfterBranch, err := w.route.NextLink(nextNode, linkBeforeBranch, t)
	if err != nil {
		return Suitability{}, fmt.Errorf("%w: no route beyond %v: %v", ErrNetworkInconsistency, net.Node(nextNode), err)
	}
	candidates := make(map[entity.LaneID]Suitability)
	for _, before := range net.CompatibleLanes(linkBeforeBranch, t) {
		for _, connecting := range net.NextLanes(before, t) {
			if net.Lane(connecting).Link() != linkAfterBranch {
				continue
			}
			// 递归时沿用剩余时间而不是完整的前瞻时间，保证在有环路网上终止
			value, err := w.suitability(connecting, 0, spareTime)
			if err != nil {
				return Suitability{}, err
			}
			value = value.Add(remainingDistance)
			if old, ok := candidates[before]; !ok || value.Le(old) {
				candidates[before] = value
			}
		}
	}
	if len(candidates) == 0 {
		return Suitability{}, fmt.Errorf("%w: no lane on %v continues into %v",
			ErrNetworkInconsistency, net.Link(linkBeforeBranch), net.Link(linkAfterBranch))
	}
	if value, ok := candidates[currentLane]; ok {
		return value, nil
	}
	total := net.CountCompatibleLanes(net.Lane(currentLane).Link(), t)
	left := w.withLaneChanges(currentLane, remainingDistance, candidates, total, entity.LEFT)
	right := w.withLaneChanges(currentLane, remainingDistance, candidates, total, entity.RIGHT)
	if left.IsVacateNow() && right.IsVacateNow() {
		return Suitability{}, fmt.Errorf("%w: changing lanes in any direction from %v does not reach a suitable lane",
			ErrNetworkInconsistency, net.Lane(currentLane))
	}
	// 两侧相等时取左侧
	if left.Ge(right) {
		return left, nil
	}
	return right, nil
}

// forcedShift 车道消失时横移到最近的能继续行驶的相邻车道
// 说明：同样距离时先尝试远离保持侧的方向
func (w *walker) forcedShift(lane entity.LaneID) (entity.LaneID, bool) {
	order := [2]entity.Side{w.keepSide.Opposite(), w.keepSide}
	cursor := [2]entity.LaneID{lane, lane}
	for {
		moved := false
		for i, side := range order {
			if !cursor[i].Valid() {
				continue
			}
			cursor[i] = w.net.AccessibleAdjacentLane(cursor[i], side, w.t)
			if !cursor[i].Valid() {
				continue
			}
			moved = true
			if len(w.net.NextLanes(cursor[i], w.t)) > 0 {
				return cursor[i], true
			}
		}
		if !moved {
			return entity.NoID, false
		}
	}
}

// withLaneChanges 需要变道才能到达候选车道时的加权适宜性
// 算法说明：
// 1. 沿side方向逐条经过可合法进入的相邻车道，记录变道次数，直到进入候选集合
// 2. 没有更多相邻车道时返回VacateNow
// 3. 结果 = remainingDistance * (n - used + 1 + fraction) / (n + fraction)
//   - n为不适宜车道数（总可用车道数 - 候选车道数）
//   - fraction在找到的值为NoChangeNeeded时取0，否则取0.5
func (w *walker) withLaneChanges(
	start entity.LaneID, remainingDistance float64,
	candidates map[entity.LaneID]Suitability, totalLanes int, side entity.Side,
) Suitability {
	used := 0
	lane := start
	var found Suitability
	for ok := false; !ok; found, ok = candidates[lane] {
		used++
		lane = w.net.AccessibleAdjacentLane(lane, side, w.t)
		if !lane.Valid() {
			return VacateNow
		}
	}
	fraction := 0.5
	if found.IsNoChangeNeeded() {
		fraction = 0
	}
	notSuitable := float64(totalLanes - len(candidates))
	if notSuitable+fraction <= 0 {
		return Distance(remainingDistance)
	}
	return Distance(remainingDistance * (notSuitable - float64(used) + 1 + fraction) / (notSuitable + fraction))
}

// LaneDrop 计算在车道lane的位置pos上，车道在前瞻时间内消失前剩余的距离
// 算法说明：沿后继车道前进
//  1. 遇到出口车道：NoChangeNeeded
//  2. 没有后继车道：返回累计剩余距离
//  3. 多于一条后继车道：任何选择都可以，NoChangeNeeded
//  4. 前瞻时间耗尽：NoChangeNeeded
func (p *Planner) LaneDrop(lane entity.LaneID, pos float64, t entity.GTUType, horizon float64) Suitability {
	net := p.net
	l := net.Lane(lane)
	remainingLength := l.Length() - pos
	remainingTime := horizon - remainingLength/l.SpeedLimit(t)
	for steps := 0; remainingTime >= 0; steps++ {
		if steps >= p.params.MaxWalkSteps {
			log.Debugf("lane drop walk from %v stopped after %d steps", lane, steps)
			break
		}
		if l.IsSink() {
			return NoChangeNeeded
		}
		next := net.NextLanes(l.Handle(), t)
		switch len(next) {
		case 0:
			return Distance(remainingLength)
		case 1:
		default:
			return NoChangeNeeded
		}
		l = net.Lane(next[0])
		remainingTime -= l.Length() / l.SpeedLimit(t)
		remainingLength += l.Length()
	}
	return NoChangeNeeded
}

// SuitabilityFor 车辆当前车道（side为entity.NoSide）或左右相邻车道的路线适宜性
// 说明：路网不一致只记录日志并按NoChangeNeeded处理
func (p *Planner) SuitabilityFor(agent Agent, side entity.Side) Suitability {
	lane := agent.Lane()
	if side != entity.NoSide {
		lane = p.net.AccessibleAdjacentLane(lane, side, agent.Type())
		if !lane.Valid() {
			return VacateNow
		}
	}
	s, err := p.Suitability(lane, agent.S(), agent.Type(), agent.Route(), p.params.TimeHorizon)
	if err != nil {
		networkInconsistencies.Inc()
		log.Warnf("vehicle %d has a route problem in suitability: %v", agent.ID(), err)
		return NoChangeNeeded
	}
	return s
}

// LaneDropFor 车辆当前车道（side为entity.NoSide）或左右相邻车道的车道消失距离
func (p *Planner) LaneDropFor(agent Agent, side entity.Side) Suitability {
	lane := agent.Lane()
	if side != entity.NoSide {
		lane = p.net.AccessibleAdjacentLane(lane, side, agent.Type())
		if !lane.Valid() {
			return VacateNow
		}
	}
	return p.LaneDrop(lane, agent.S(), agent.Type(), p.params.TimeHorizon)
}
