package model

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/tactical"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/randengine"
)

// 两侧都值得变道时，按收益抽样方向的最大权重
const maxSideWeight = 100

// randomized 自带随机数引擎的车辆
type randomized interface {
	Rand() *randengine.Engine
}

// MOBIL 变道模型
// 功能：比较变道前后本车与相关后车的加速度，加上战术规划给出的激励，决定变道方向与纵向加速度
// 说明：其他车辆的最大速度未知，用限速代替
type MOBIL struct {
	cf tactical.CarFollowingModel

	politeness   float64 // 礼让系数
	threshold    float64 // 变道收益阈值
	safeBrakingA float64 // 目标车道后车可接受的最大减速度
	minInterval  float64 // 两次变道的最小间隔
	duration     float64 // 决策有效时长
	hardVeto     float64 // 激励低于该值的车道不能进入
}

// NewMOBIL 创建变道模型
// 参数：cf-跟车模型，c-变道参数，usualBrakingA-常用制动加速度，hardVeto-激励硬否决阈值
func NewMOBIL(cf tactical.CarFollowingModel, c config.LaneChange, usualBrakingA, hardVeto float64) *MOBIL {
	return &MOBIL{
		cf:           cf,
		politeness:   lo.FromPtrOr(c.Politeness, config.DefaultPoliteness),
		threshold:    lo.FromPtrOr(c.Threshold, config.DefaultThreshold),
		safeBrakingA: usualBrakingA + lo.FromPtrOr(c.SafeBrakingBias, config.DefaultSafeBrakingBias),
		minInterval:  lo.FromPtrOr(c.MinInterval, config.DefaultMinInterval),
		duration:     c.Duration,
		hardVeto:     hardVeto,
	}
}

func (m *MOBIL) follow(speed, maxSpeed float64, leader *tactical.Headway, speedLimit float64) float64 {
	if leader == nil {
		return m.cf.Accelerate(speed, maxSpeed, mathutil.INF, mathutil.INF, speedLimit)
	}
	return m.cf.Accelerate(speed, maxSpeed, leader.Speed, leader.Distance, speedLimit)
}

// followBeyond 后车越过本车直接跟随leader时的加速度
// 参数：base-后车车头到本车车头的距离
func (m *MOBIL) followBeyond(speed float64, leader *tactical.Headway, base, speedLimit float64) float64 {
	if leader == nil {
		return m.cf.Accelerate(speed, speedLimit, mathutil.INF, mathutil.INF, speedLimit)
	}
	return m.cf.Accelerate(speed, speedLimit, leader.Speed, base+leader.Distance, speedLimit)
}

func (m *MOBIL) vetoed(incentive float64) bool {
	return math.IsNaN(incentive) || incentive < m.hardVeto
}

// ComputeLaneChangeAndAcceleration 决定变道方向与纵向加速度
// 算法说明：
// 1. 不变道时的加速度a0为本车道跟车加速度
// 2. 距离上次变道不足最小间隔时不变道
// 3. 对每个可进入且未被否决的方向：
//   - 与目标车道前车、后车重叠时不能变道
//   - 目标车道后车的减速度超过safeBrakingA时不能变道
//   - 收益 = (an - a0) + politeness * (当前后车与目标后车的加速度变化) + (该方向激励 - 当前车道激励)
//
// 4. 收益超过阈值的方向中选择一个，两侧都满足时用车辆的随机数引擎按收益抽样
func (m *MOBIL) ComputeLaneChangeAndAcceleration(
	agent tactical.Agent, now float64,
	same, left, right tactical.Traffic,
	speedLimit float64, incentives [3]float64,
) (tactical.LaneMovementStep, error) {
	v, maxV, length := agent.V(), agent.MaxV(), agent.Length()
	a0 := m.follow(v, maxV, same.Leader, speedLimit)
	step := tactical.LaneMovementStep{
		Side:         entity.NoSide,
		Acceleration: a0,
		ValidUntil:   now + m.duration,
	}
	if now-agent.LastLaneChangeTime() < m.minInterval {
		return step, nil
	}

	// 当前车道后车在本车离开后的加速度变化
	deltaOld := 0.0
	if f := same.Follower; f != nil {
		before := m.cf.Accelerate(f.Speed, speedLimit, v, f.Distance, speedLimit)
		deltaOld = m.followBeyond(f.Speed, same.Leader, f.Distance+length, speedLimit) - before
	}

	var deltas, accs [2]float64
	for i, traffic := range [2]tactical.Traffic{left, right} {
		side := entity.Sides[i]
		if !traffic.Available() || m.vetoed(incentives[side.IncentiveIndex()]) {
			continue
		}
		if l := traffic.Leader; l != nil && l.Distance <= 0 {
			continue
		}
		an := m.follow(v, maxV, traffic.Leader, speedLimit)
		deltaNew := 0.0
		if f := traffic.Follower; f != nil {
			if f.Distance <= 0 {
				continue
			}
			after := m.cf.Accelerate(f.Speed, speedLimit, v, f.Distance, speedLimit)
			if after < m.safeBrakingA {
				continue
			}
			deltaNew = after - m.followBeyond(f.Speed, traffic.Leader, f.Distance+length, speedLimit)
		}
		incentive := incentives[side.IncentiveIndex()] - incentives[entity.IncentiveCurrent]
		if delta := an - a0 + m.politeness*(deltaOld+deltaNew) + incentive; delta > m.threshold {
			deltas[i] = delta
			accs[i] = an
		}
	}

	var chosen int
	switch {
	case deltas[0] > 0 && deltas[1] > 0:
		if r, ok := agent.(randomized); ok {
			weights := []float64{math.Min(deltas[0], maxSideWeight), math.Min(deltas[1], maxSideWeight)}
			chosen = int(r.Rand().DiscreteDistribution(weights))
		} else if deltas[1] > deltas[0] {
			chosen = 1
		}
	case deltas[0] > 0:
		chosen = 0
	case deltas[1] > 0:
		chosen = 1
	default:
		return step, nil
	}
	step.Side = entity.Sides[chosen]
	step.Acceleration = accs[chosen]
	log.Debugf("vehicle %d changes to the %v with gain %.3f", agent.ID(), step.Side, deltas[chosen])
	return step, nil
}
