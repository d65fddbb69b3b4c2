package tactical

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
)

// Segment 运动段，加速度为0时为匀速段
type Segment struct {
	Duration     float64
	Acceleration float64
}

// SegmentsOff 从速度v开始以加速度a运动duration秒
// 说明：减速过程中提前停车时，停车后补一个静止段
func SegmentsOff(v, duration, a float64) []Segment {
	if a < 0 && v+a*duration < 0 {
		tStop := -v / a
		segments := []Segment{{Duration: tStop, Acceleration: a}}
		if rest := duration - tStop; rest > 0 {
			segments = append(segments, Segment{Duration: rest})
		}
		return segments
	}
	return []Segment{{Duration: duration, Acceleration: a}}
}

// OperationalPlan 运行计划
// 功能：一次规划得到的短时运动决策，沿前方路径按分段的速度/加速度运动
type OperationalPlan struct {
	StartTime   float64
	StartSpeed  float64
	Path        *LanePathInfo // 变道之后构建的前方路径
	Segments    []Segment
	LaneChanged bool // 本次规划执行了变道
	Standstill  bool // 静止计划
	Location    geometry.Point
}

// StandStill 在location处静止duration秒
func StandStill(path *LanePathInfo, location geometry.Point, startTime, duration float64) *OperationalPlan {
	return &OperationalPlan{
		StartTime:  startTime,
		Path:       path,
		Segments:   []Segment{{Duration: duration}},
		Standstill: true,
		Location:   location,
	}
}

func (p *OperationalPlan) String() string {
	return fmt.Sprintf("OperationalPlan{t:%.2f, v:%.2f, a:%.3f, duration:%.2f, lc:%v, standstill:%v}",
		p.StartTime, p.StartSpeed, p.Acceleration(), p.Duration(), p.LaneChanged, p.Standstill)
}

// Duration 计划总时长
func (p *OperationalPlan) Duration() float64 {
	total := 0.0
	for _, s := range p.Segments {
		total += s.Duration
	}
	return total
}

// EndTime 计划结束时刻
func (p *OperationalPlan) EndTime() float64 {
	return p.StartTime + p.Duration()
}

// Acceleration 第一段的加速度
func (p *OperationalPlan) Acceleration() float64 {
	if len(p.Segments) == 0 {
		return 0
	}
	return p.Segments[0].Acceleration
}

// state 计划开始后dt时刻的行驶距离与速度
func (p *OperationalPlan) state(dt float64) (distance, v float64) {
	v = p.StartSpeed
	for _, s := range p.Segments {
		if dt <= 0 {
			break
		}
		t := min(dt, s.Duration)
		distance += v*t + s.Acceleration*t*t/2
		v += s.Acceleration * t
		dt -= t
	}
	if dt > 0 {
		// 超出计划时长后按最终速度外推
		distance += v * dt
	}
	return max(distance, 0), max(v, 0)
}

// DistanceAt 计划开始后dt时刻沿路径行驶的距离
func (p *OperationalPlan) DistanceAt(dt float64) float64 {
	d, _ := p.state(dt)
	return d
}

// SpeedAt 计划开始后dt时刻的速度
func (p *OperationalPlan) SpeedAt(dt float64) float64 {
	_, v := p.state(dt)
	return v
}
