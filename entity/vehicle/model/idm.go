package model

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

const idmTheta = 4 // IDM模型的速度指数

// IDM 智能驾驶模型（跟车模型）
// 功能：根据本车速度、期望速度、前车速度与净距计算纵向加速度
type IDM struct {
	maxA          float64 // 最大加速度
	usualBrakingA float64 // 常用制动加速度（负数）
	maxBrakingA   float64 // 最大制动加速度（负数）
	minGap        float64 // 静止时的最小车距
	headway       float64 // 安全车头时距
}

func NewIDM(c config.CarFollowing) *IDM {
	return &IDM{
		maxA:          c.MaxA,
		usualBrakingA: c.UsualBrakingA,
		maxBrakingA:   c.MaxBrakingA,
		minGap:        c.MinGap,
		headway:       c.Headway,
	}
}

// UsualBrakingA 常用制动加速度
func (m *IDM) UsualBrakingA() float64 {
	return m.usualBrakingA
}

// Accelerate 跟车加速度
// 参数：speed-本车速度，maxSpeed-本车最大速度，leaderSpeed-前车速度，gap-净距，speedLimit-限速
// 返回：限制在[maxBrakingA, maxA]内的加速度；gap不小于mathutil.INF表示前方没有约束
// 算法说明：
// 1. 期望速度取本车最大速度与限速中的较小者
// 2. 期望车距：s* = minGap + max(0, v*headway + v*(v-v_leader)/(2*sqrt(a*b)))
// 3. 加速度：a = maxA * (1 - (v/v0)^4 - (s*/gap)^2)
func (m *IDM) Accelerate(speed, maxSpeed, leaderSpeed, gap, speedLimit float64) float64 {
	targetV := math.Min(maxSpeed, speedLimit)
	if targetV <= 0 {
		if speed > 0 {
			return m.maxBrakingA
		}
		return 0
	}
	if gap <= 0 {
		// 已经发生碰撞，紧急制动
		return m.maxBrakingA
	}
	// https://en.wikipedia.org/wiki/Intelligent_driver_model
	acc := m.maxA * (1 - math.Pow(speed/targetV, idmTheta))
	if gap < mathutil.INF {
		sStar := m.minGap + math.Max(0, speed*m.headway+speed*(speed-leaderSpeed)/2/math.Sqrt(-m.usualBrakingA*m.maxA))
		acc -= m.maxA * math.Pow(sStar/gap, 2)
	}
	return lo.Clamp(acc, m.maxBrakingA, m.maxA)
}
