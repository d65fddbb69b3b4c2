package tactical

import (
	"fmt"
	"math"
)

// SuitabilityKind 适宜性取值类型
type SuitabilityKind uint8

const (
	KindDistance       SuitabilityKind = iota // 须在给定距离内离开车道
	KindNoChangeNeeded                        // 在前瞻范围内或到下一个分叉前都无需变道
	KindVacateNow                             // 车道不可用，须立即离开
)

// Suitability 车道适宜性
// 功能：描述为保持在路线上（或避免车道消失），车辆需要在多远距离内离开该车道
// 说明：距离总是非负的；两个哨兵值用类型区分，不依赖数值比较
type Suitability struct {
	kind     SuitabilityKind
	distance float64
}

var (
	NoChangeNeeded = Suitability{kind: KindNoChangeNeeded}
	VacateNow      = Suitability{kind: KindVacateNow}
)

// Distance 构造有限距离的适宜性，负数与NaN按0处理
func Distance(d float64) Suitability {
	if !(d > 0) {
		d = 0
	}
	return Suitability{kind: KindDistance, distance: d}
}

// Kind 取值类型
func (s Suitability) Kind() SuitabilityKind { return s.kind }

// IsNoChangeNeeded 是否无需变道
func (s Suitability) IsNoChangeNeeded() bool { return s.kind == KindNoChangeNeeded }

// IsVacateNow 是否必须立即离开
func (s Suitability) IsVacateNow() bool { return s.kind == KindVacateNow }

// IsDistance 是否为具体距离
func (s Suitability) IsDistance() bool { return s.kind == KindDistance }

// Meters 用于比较的距离：NoChangeNeeded为+Inf，VacateNow为0
func (s Suitability) Meters() float64 {
	switch s.kind {
	case KindNoChangeNeeded:
		return math.Inf(1)
	case KindVacateNow:
		return 0
	default:
		return s.distance
	}
}

// Add 累加已经走过的距离，哨兵值保持不变
func (s Suitability) Add(d float64) Suitability {
	if s.kind != KindDistance {
		return s
	}
	return Distance(s.distance + d)
}

// Le 按Meters比较，是否不大于o
func (s Suitability) Le(o Suitability) bool {
	return s.Meters() <= o.Meters()
}

// Ge 按Meters比较，是否不小于o
func (s Suitability) Ge(o Suitability) bool {
	return s.Meters() >= o.Meters()
}

func (s Suitability) String() string {
	switch s.kind {
	case KindNoChangeNeeded:
		return "NoChangeNeeded"
	case KindVacateNow:
		return "VacateNow"
	default:
		return fmt.Sprintf("Distance(%.2f)", s.distance)
	}
}
