package network

import (
	"flag"
	"fmt"

	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/container"
)

var (
	yellowTime     = flag.Float64("tl.mp_yellow_time", 3, "最大压力法黄灯时间")
	allRedTime     = flag.Float64("tl.mp_all_red_time", 3, "最大压力法全红时间")
	phaseTime      = flag.Float64("tl.mp_phase_time", 15, "最大压力法相位时间")
	maxRepeatCount = flag.Int("tl.mp_max_repeat_count", 6, "最大压力法每个相位最多重复的次数")
)

// mpRuntime 最大压力信号灯运行时数据
type mpRuntime struct {
	index            int                  // 当前相位
	nextIndex        int                  // 过渡相位之后的下一个相位
	repeatCount      int                  // 当前相位重复的次数
	remainingT       float64              // 当前相位（或过渡相位）剩余时间
	transitionPhases [][]mapv2.LightState // 过渡相位：黄灯、全红
	transitionTimes  []float64            // 过渡相位持续时长
}

// maxPressureLight 最大压力信号灯
// 功能：不按固定顺序切换，每个相位结束后选择绿灯车道压力之和最大的相位
// 说明：车道压力来自车辆管理器写入的车道车辆数，见Network.Pressure
type maxPressureLight struct {
	net    *Network
	node   entity.NodeID
	lanes  []*Lane
	phases [][]mapv2.LightState

	runtime mpRuntime
}

func newMaxPressureLight(n *Network, node entity.NodeID, lanes []*Lane, c config.TrafficLight) (*maxPressureLight, error) {
	phases := make([][]mapv2.LightState, 0, len(c.Phases))
	for i, p := range c.Phases {
		if len(p.States) != len(lanes) {
			return nil, fmt.Errorf("traffic light at node %d: phase %d has %d states for %d lanes", c.Node, i, len(p.States), len(lanes))
		}
		phase := make([]mapv2.LightState, 0, len(p.States))
		for _, s := range p.States {
			state, ok := lightStates[s]
			if !ok {
				return nil, fmt.Errorf("traffic light at node %d: bad state %q", c.Node, s)
			}
			phase = append(phase, state)
		}
		phases = append(phases, phase)
	}
	return &maxPressureLight{
		net:     n,
		node:    node,
		lanes:   lanes,
		phases:  phases,
		runtime: mpRuntime{remainingT: *phaseTime},
	}, nil
}

// prepare 把当前相位写入车道
// 说明：至少两个相位才有信控，否则全绿；过渡期间下一相位仍为绿灯的车道把下一相位的时长也算入剩余时间
func (l *maxPressureLight) prepare() {
	if len(l.phases) < 2 {
		for _, lane := range l.lanes {
			lane.SetLight(mapv2.LightState_LIGHT_STATE_GREEN, mathutil.INF)
		}
		return
	}
	r := l.runtime
	if len(r.transitionPhases) == 0 {
		for i, lane := range l.lanes {
			lane.SetLight(l.phases[r.index][i], r.remainingT)
		}
		return
	}
	phase := r.transitionPhases[0]
	nextPhase := l.phases[r.nextIndex]
	if len(r.transitionPhases) > 1 {
		nextPhase = r.transitionPhases[1]
	}
	for i, lane := range l.lanes {
		if phase[i] == mapv2.LightState_LIGHT_STATE_GREEN && nextPhase[i] == mapv2.LightState_LIGHT_STATE_GREEN {
			lane.SetLight(phase[i], r.remainingT+*phaseTime)
		} else {
			lane.SetLight(phase[i], r.remainingT)
		}
	}
}

// update 推进相位
// 算法说明：
// 1. 当前相位未结束：不变
// 2. 过渡相位结束：进入下一个过渡相位或选定的相位
// 3. 正常相位结束：计算每个相位绿灯车道的压力和，取最大者
//   - 与当前相位相同：延长一个相位时间，连续延长达到上限时改选压力第二大的相位
//   - 与当前相位不同：生成黄灯（绿转红的车道）与全红（红转绿的车道）过渡相位
func (l *maxPressureLight) update(dt float64) {
	if len(l.phases) < 2 {
		return
	}
	r := &l.runtime
	r.remainingT -= dt
	if r.remainingT > 0 {
		return
	}
	switch {
	case len(r.transitionPhases) == 1:
		r.index = r.nextIndex
		r.remainingT += *phaseTime
		r.transitionPhases = nil
		r.transitionTimes = nil
	case len(r.transitionPhases) > 1:
		r.transitionPhases = r.transitionPhases[1:]
		r.transitionTimes = r.transitionTimes[1:]
		r.remainingT += r.transitionTimes[0]
	default:
		pressures := lo.Map(l.lanes, func(lane *Lane, _ int) float64 {
			return l.net.Pressure(lane.handle)
		})
		pq := container.NewPriorityQueue[int]()
		for i, phase := range l.phases {
			pressure := 0.
			for j, state := range phase {
				if state == mapv2.LightState_LIGHT_STATE_GREEN {
					pressure += pressures[j]
				}
			}
			pq.HeapPush(i, -pressure) // 小顶堆，压力越大越靠前
		}
		maxIndex, _ := pq.HeapPop()
		if maxIndex == r.index {
			if r.repeatCount >= *maxRepeatCount {
				maxIndex, _ = pq.HeapPop()
			} else {
				r.remainingT += *phaseTime
				r.repeatCount++
			}
		}
		if maxIndex != r.index {
			l.startTransition(maxIndex)
		}
	}
	if r.remainingT <= 0 {
		log.Warnf("traffic light at %v remaining time %f <= 0", l.net.Node(l.node), r.remainingT)
	}
}

// startTransition 生成从当前相位到next的过渡相位
// 说明：顺序为 当前相位--黄灯--全红（如果需要）--next
func (l *maxPressureLight) startTransition(next int) {
	r := &l.runtime
	r.nextIndex = next
	r.repeatCount = 1
	current, nextPhase := l.phases[r.index], l.phases[next]
	yellowPhase := make([]mapv2.LightState, len(l.lanes))
	allRedPhase := make([]mapv2.LightState, len(l.lanes))
	copy(yellowPhase, current)
	copy(allRedPhase, nextPhase)
	hasAllRedPhase := false
	for i, state := range current {
		if state == mapv2.LightState_LIGHT_STATE_GREEN && nextPhase[i] == mapv2.LightState_LIGHT_STATE_RED {
			yellowPhase[i] = mapv2.LightState_LIGHT_STATE_YELLOW
		}
		if state == mapv2.LightState_LIGHT_STATE_RED && nextPhase[i] == mapv2.LightState_LIGHT_STATE_GREEN {
			allRedPhase[i] = mapv2.LightState_LIGHT_STATE_RED
			hasAllRedPhase = true
		}
	}
	r.transitionPhases = [][]mapv2.LightState{yellowPhase}
	r.transitionTimes = []float64{*yellowTime}
	if hasAllRedPhase {
		r.transitionPhases = append(r.transitionPhases, allRedPhase)
		r.transitionTimes = append(r.transitionTimes, *allRedTime)
	}
	r.remainingT += r.transitionTimes[0]
}
