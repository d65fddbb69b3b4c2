package network

import (
	"fmt"

	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

var lightStates = map[string]mapv2.LightState{
	"red":    mapv2.LightState_LIGHT_STATE_RED,
	"yellow": mapv2.LightState_LIGHT_STATE_YELLOW,
	"green":  mapv2.LightState_LIGHT_STATE_GREEN,
}

type tlRuntime struct {
	step       int32   // 当前相位
	remainingT float64 // 当前相位剩余时间
}

// trafficLight 固定相位信号灯
// 功能：按照预设的相位顺序和时长循环切换，并把每条受控车道的灯色写入车道末端
type trafficLight struct {
	node  entity.NodeID
	tl    *mapv2.TrafficLight
	lanes []*Lane

	timeBeforeChange [][]float64 // [lane][phase] 相位结束后该车道灯色继续保持的时间
	snapshot         tlRuntime
	runtime          tlRuntime
}

func newTrafficLight(node entity.NodeID, lanes []*Lane, c config.TrafficLight) (*trafficLight, error) {
	tl := &mapv2.TrafficLight{}
	total := 0.0
	for i, p := range c.Phases {
		if len(p.States) != len(lanes) {
			return nil, fmt.Errorf("traffic light at node %d: phase %d has %d states for %d lanes", c.Node, i, len(p.States), len(lanes))
		}
		phase := &mapv2.Phase{Duration: p.Duration}
		for _, s := range p.States {
			state, ok := lightStates[s]
			if !ok {
				return nil, fmt.Errorf("traffic light at node %d: bad state %q", c.Node, s)
			}
			phase.States = append(phase.States, state)
		}
		tl.Phases = append(tl.Phases, phase)
		total += p.Duration
	}
	if total <= 0 {
		return nil, fmt.Errorf("traffic light at node %d: cycle length must be positive", c.Node)
	}
	l := &trafficLight{
		node:  node,
		tl:    tl,
		lanes: lanes,
		runtime: tlRuntime{
			step:       0,
			remainingT: tl.Phases[0].Duration,
		},
	}
	l.initTimeBeforeChange()
	l.snapshot = l.runtime
	return l, nil
}

// initTimeBeforeChange 计算每条车道在每个相位结束后灯色还会保持多久
// 算法说明：
// 1. 从后往前遍历相位，相邻相位灯色相同则累加时长
// 2. 所有相位灯色相同的车道视为永不变化
// 3. 首尾相位灯色相同时，把首部连续段的时长补到尾部
func (l *trafficLight) initTimeBeforeChange() {
	phases := l.tl.Phases
	numPhases := len(phases)
	l.timeBeforeChange = make([][]float64, len(l.lanes))
	for laneIndex := range l.lanes {
		time := make([]float64, numPhases)
		allTheSame := true
		for phaseIndex := numPhases - 2; phaseIndex >= 0; phaseIndex-- {
			if phases[phaseIndex+1].States[laneIndex] == phases[phaseIndex].States[laneIndex] {
				time[phaseIndex] = time[phaseIndex+1] + phases[phaseIndex+1].Duration
			} else {
				allTheSame = false
			}
		}
		if allTheSame {
			for i := range time {
				time[i] = mathutil.INF
			}
		} else if last := phases[numPhases-1].States[laneIndex]; last == phases[0].States[laneIndex] {
			t0 := time[0] + phases[0].Duration
			for phaseIndex := numPhases - 1; phaseIndex >= 0; phaseIndex-- {
				if phases[phaseIndex].States[laneIndex] != last {
					break
				}
				time[phaseIndex] += t0
			}
		}
		l.timeBeforeChange[laneIndex] = time
	}
}

func (l *trafficLight) prepare() {
	l.snapshot = l.runtime
	p := l.tl.Phases[l.snapshot.step]
	for i, lane := range l.lanes {
		lane.SetLight(p.States[i], l.snapshot.remainingT+l.timeBeforeChange[i][l.snapshot.step])
	}
}

func (l *trafficLight) update(dt float64) {
	l.runtime.remainingT -= dt
	for l.runtime.remainingT <= 0 {
		l.runtime.step = (l.runtime.step + 1) % int32(len(l.tl.Phases))
		l.runtime.remainingT += l.tl.Phases[l.runtime.step].Duration
	}
}
