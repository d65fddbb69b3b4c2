package tactical

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
)

// 最小的激励值，表示必须离开/不能进入该车道
var mostNegative = -math.MaxFloat64

// Acceleration 在stopDistance内恰好停车所需的加速度：-v²/(2d)
func Acceleration(v, stopDistance float64) float64 {
	return -v * v / 2 / stopDistance
}

// incentive 把适宜性转换为可与其他激励比较的加速度
// 说明：NoChangeNeeded不产生约束，VacateNow与0距离为最小值
func incentive(v float64, s Suitability) float64 {
	switch s.Kind() {
	case KindNoChangeNeeded:
		return 0
	case KindVacateNow:
		return mostNegative
	}
	if s.Meters() <= 0 {
		return mostNegative
	}
	return Acceleration(v, s.Meters())
}

func sideOK(s Suitability) bool {
	return s.IsNoChangeNeeded() || s.IsVacateNow()
}

// DefaultIncentives 默认激励向量：保持当前车道，偏好保持侧
func (p *Planner) DefaultIncentives() [3]float64 {
	var res [3]float64
	res[entity.IncentiveCurrent] = p.params.StayIncentive
	res[p.params.PreferredSide.IncentiveIndex()] = p.params.PreferredIncentive
	res[p.params.PreferredSide.Opposite().IncentiveIndex()] = p.params.NonPreferredIncentive
	return res
}

// ComposeIncentives 合成{左, 当前, 右}三个方向的变道激励
// 参数：agent-车辆，defaults-默认激励
// 返回：激励向量；当前车道即将消失且两侧都无法进入时返回保守向量与ErrUnreachableLane
// 算法说明：
// 1. 路线适宜性（A）
//   - 三者都是NoChangeNeeded：保持默认值
//   - 当前车道NoChangeNeeded：当前保持默认值，两侧按适宜性转换（VacateNow为最小值）
//   - 否则三者都按适宜性转换，由相对大小决定方向
//
// 2. 车道消失（B），以A的结果为输入，每条车道取A与车道消失转换值中较小者，只会让激励更严格
//   - A中低于硬否决阈值的一侧视为VacateNow
//   - 当前车道消失且某一侧至少持续同样远：当前车道再取非偏好激励与转换值中较小者
//   - 当前车道消失且两侧都是VacateNow：返回ErrUnreachableLane
//
// 说明：两侧之间的取舍由合成后的激励大小体现，路线与车道消失中更严格的一方决定该侧的激励
func (p *Planner) ComposeIncentives(agent Agent, defaults [3]float64) ([3]float64, error) {
	v := agent.V()
	left := p.SuitabilityFor(agent, entity.LEFT)
	current := p.SuitabilityFor(agent, entity.NoSide)
	right := p.SuitabilityFor(agent, entity.RIGHT)

	res := defaults
	switch {
	case left.IsNoChangeNeeded() && current.IsNoChangeNeeded() && right.IsNoChangeNeeded():
	case current.IsNoChangeNeeded():
		res[entity.IncentiveLeft] = incentive(v, left)
		res[entity.IncentiveRight] = incentive(v, right)
	default:
		res = [3]float64{incentive(v, left), incentive(v, current), incentive(v, right)}
	}
	return p.checkLaneDrops(agent, res)
}

func (p *Planner) vetoed(a float64) bool {
	return math.IsNaN(a) || a < p.params.HardVeto
}

func (p *Planner) checkLaneDrops(agent Agent, in [3]float64) ([3]float64, error) {
	v := agent.V()
	var drops [3]Suitability
	drops[entity.IncentiveCurrent] = p.LaneDropFor(agent, entity.NoSide)
	for _, side := range entity.Sides {
		i := side.IncentiveIndex()
		if p.vetoed(in[i]) {
			drops[i] = VacateNow
		} else {
			drops[i] = p.LaneDropFor(agent, side)
		}
	}
	current := drops[entity.IncentiveCurrent]
	left, right := drops[entity.IncentiveLeft], drops[entity.IncentiveRight]
	if current.IsNoChangeNeeded() && sideOK(left) && sideOK(right) {
		return in, nil
	}
	res := in
	tighten := func(i int) {
		res[i] = math.Min(res[i], incentive(v, drops[i]))
	}
	if current.IsNoChangeNeeded() {
		tighten(entity.IncentiveLeft)
		tighten(entity.IncentiveRight)
		return res, nil
	}
	// 当前车道即将消失
	for _, side := range entity.Sides {
		tighten(side.IncentiveIndex())
	}
	escapable := false
	for _, side := range entity.Sides {
		if d := drops[side.IncentiveIndex()]; !d.IsVacateNow() && current.Le(d) {
			escapable = true
		}
	}
	if escapable {
		res[entity.IncentiveCurrent] = math.Min(res[entity.IncentiveCurrent],
			math.Min(p.params.NonPreferredIncentive, incentive(v, current)))
		return res, nil
	}
	tighten(entity.IncentiveCurrent)
	if left.IsVacateNow() && right.IsVacateNow() {
		return res, fmt.Errorf("%w: %v ends within %v and no adjacent lane is accessible",
			ErrUnreachableLane, agent.Lane(), current)
	}
	return res, nil
}
