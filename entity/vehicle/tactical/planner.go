package tactical

import (
	"errors"
	"fmt"
	"math"
	"time"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

const (
	standStillDuration = 1.0  // 静止计划时长（秒）
	zeroAcceleration   = 1e-6 // 视为0的加速度
)

// Params 战术规划参数
type Params struct {
	TimeHorizon   float64     // 路线适宜性前瞻时间
	Lookahead     float64     // 前方路径长度
	DriftingSpeed float64     // 视为静止的速度
	HardVeto      float64     // 激励低于该值的一侧视为必须离开
	PlanDuration  float64     // 变道模型未给出有效期时的计划时长
	PreferredSide entity.Side // 路线偏好的保持侧
	MaxWalkSteps  int         // 单次前向遍历的最大步数

	StayIncentive         float64
	PreferredIncentive    float64
	NonPreferredIncentive float64
}

// NewParams 从运行时配置生成规划参数
// 说明：未配置的可选参数使用config中的默认值
func NewParams(c config.Tactical, planDuration float64) (Params, error) {
	side, err := entity.ParseSide(c.PreferredSide)
	if err != nil {
		return Params{}, fmt.Errorf("tactical: preferred side: %w", err)
	}
	return Params{
		TimeHorizon:           c.TimeHorizon,
		Lookahead:             c.Lookahead,
		DriftingSpeed:         lo.FromPtrOr(c.DriftingSpeed, config.DefaultDriftingSpeed),
		HardVeto:              lo.FromPtrOr(c.HardVeto, config.DefaultHardVeto),
		PlanDuration:          planDuration,
		PreferredSide:         side,
		MaxWalkSteps:          c.MaxWalkSteps,
		StayIncentive:         lo.FromPtrOr(c.StayIncentive, config.DefaultStayIncentive),
		PreferredIncentive:    lo.FromPtrOr(c.PreferredIncentive, config.DefaultPreferredIncentive),
		NonPreferredIncentive: lo.FromPtrOr(c.NonPreferredIncentive, config.DefaultNonPreferredIncentive),
	}, nil
}

// Planner 车道化战术规划器
// 功能：组合路线适宜性、车道消失前瞻、跟车模型与变道模型，为每辆车生成运行计划
// 说明：规划器本身无状态，可以被多辆车并发使用
type Planner struct {
	net    *network.Network
	cf     CarFollowingModel
	lcm    LaneChangeModel
	params Params
}

// NewPlanner 创建战术规划器
// 参数：net-路网，cf-跟车模型，lcm-变道模型，params-规划参数
func NewPlanner(net *network.Network, cf CarFollowingModel, lcm LaneChangeModel, params Params) *Planner {
	return &Planner{
		net:    net,
		cf:     cf,
		lcm:    lcm,
		params: params,
	}
}

// Params 规划参数
func (p *Planner) Params() Params {
	return p.params
}

// BuildPlan 生成车辆从startTime开始的运行计划
// 参数：agent-车辆，startTime-开始时刻
// 返回：运行计划；只有变道后无法构建前方路径时返回错误（ErrPath）
// 算法说明：
// 1. 最大速度近似为0：静止1秒，路径只包含当前车道，不查询路线
// 2. 合成变道激励，交给变道模型得到变道方向、加速度与有效期
//   - 可恢复的错误（两侧都无法进入、变道模型失败）降级为不变道、只跟车
//
// 3. 需要变道时立即完成横向移动并重建前方路径
// 4. 加速度只向下修正：前方红灯等停车对象、前方路径末端的停车需求
// 5. 加速度近似为0且车速低于阈值：静止（保留本次是否变道）；否则生成匀速或匀加速计划
func (p *Planner) BuildPlan(agent Agent, startTime float64) (*OperationalPlan, error) {
	begin := time.Now()
	defer func() { planDuration.Observe(time.Since(begin).Seconds()) }()

	if agent.MaxV() < p.params.DriftingSpeed {
		path, err := p.currentLanePath(agent)
		if err != nil {
			return nil, err
		}
		plansBuilt.WithLabelValues("standstill").Inc()
		return StandStill(path, path.Line[0], startTime, standStillDuration), nil
	}
	path, err := p.LanePath(agent)
	if err != nil {
		return nil, err
	}
	perception := agent.Perception()
	speedLimit := perception.SpeedLimit()

	step, ok := p.decide(agent, perception, startTime, speedLimit)
	if !ok {
		step = LaneMovementStep{
			Side:         entity.NoSide,
			Acceleration: p.followAcceleration(agent, perception.ForwardHeadway(), speedLimit),
			ValidUntil:   startTime + p.params.PlanDuration,
		}
	}
	duration := step.ValidUntil - startTime
	if duration <= 0 {
		duration = p.params.PlanDuration
	}

	laneChanged := false
	if step.Side != entity.NoSide {
		from := agent.Lane()
		if err := agent.ChangeLaneInstantaneously(step.Side); err != nil {
			return nil, fmt.Errorf("%w: vehicle %d lane change %v from %v: %v", ErrPath, agent.ID(), step.Side, from, err)
		}
		laneChanged = true
		laneChanges.WithLabelValues(step.Side.String()).Inc()
		if path, err = p.LanePath(agent); err != nil {
			return nil, err
		}
	}

	a := step.Acceleration
	if object := perception.ForwardHeadwayObject(); object != nil {
		a = math.Min(a, p.cf.Accelerate(agent.V(), agent.MaxV(), 0, object.Distance, speedLimit))
	}
	if path.EndsAtStop {
		a = math.Min(a, p.cf.Accelerate(agent.V(), agent.MaxV(), 0, path.Length, speedLimit))
	}

	if a < zeroAcceleration && agent.V() < p.params.DriftingSpeed {
		plansBuilt.WithLabelValues("standstill").Inc()
		plan := StandStill(path, path.Line[0], startTime, standStillDuration)
		plan.LaneChanged = laneChanged
		return plan, nil
	}
	plansBuilt.WithLabelValues("moving").Inc()
	return &OperationalPlan{
		StartTime:   startTime,
		StartSpeed:  agent.V(),
		Path:        path,
		Segments:    SegmentsOff(agent.V(), duration, a),
		LaneChanged: laneChanged,
		Location:    path.Line[0],
	}, nil
}

// decide 合成激励并调用变道模型
// 返回：变道模型的决策；false表示需要降级为只跟车
func (p *Planner) decide(agent Agent, perception Perception, now, speedLimit float64) (LaneMovementStep, bool) {
	incentives, err := p.ComposeIncentives(agent, p.DefaultIncentives())
	if err != nil {
		if errors.Is(err, ErrUnreachableLane) {
			unreachableLanes.Inc()
		}
		log.Warnf("vehicle %d stays on %v: %v", agent.ID(), agent.Lane(), err)
		return LaneMovementStep{}, false
	}
	same := Traffic{
		Lane:     agent.Lane(),
		Leader:   perception.ForwardHeadway(),
		Follower: perception.BackwardHeadway(),
	}
	step, err := p.lcm.ComputeLaneChangeAndAcceleration(
		agent, now,
		same, perception.NeighboringHeadways(entity.LEFT), perception.NeighboringHeadways(entity.RIGHT),
		speedLimit, incentives,
	)
	if err != nil {
		log.Warnf("vehicle %d lane change model failed: %v", agent.ID(), err)
		return LaneMovementStep{}, false
	}
	return step, true
}

// followAcceleration 只考虑本车道前车的跟车加速度
func (p *Planner) followAcceleration(agent Agent, leader *Headway, speedLimit float64) float64 {
	if leader == nil {
		return p.cf.Accelerate(agent.V(), agent.MaxV(), mathutil.INF, mathutil.INF, speedLimit)
	}
	return p.cf.Accelerate(agent.V(), agent.MaxV(), leader.Speed, leader.Distance, speedLimit)
}
