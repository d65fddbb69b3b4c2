package network

import (
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
)

// Lane 车道
// 功能：路段内的一条纵向可行驶车道，记录几何、限速、通行类型与前后左右连接关系
// 说明：除信号灯状态外，仿真过程中只读
type Lane struct {
	id     int32         // 配置中的ID
	handle entity.LaneID // arena下标
	link   entity.LinkID // 所属路段
	index  int           // 在路段中的序号，0为最左侧

	length      float64          // 长度
	line        []geometry.Point // 中心线
	lineLengths []float64        // 中心线上各点的累积长度

	gtuTypes   map[entity.GTUType]struct{} // 可通行类型，为空表示全部
	maxV       float64                     // 默认限速
	maxVByType map[entity.GTUType]float64  // 按类型的限速

	successors   []entity.LaneID
	predecessors []entity.LaneID
	sides        [2]entity.LaneID // 左右相邻车道

	noChange    [2]bool                     // 向左/右变道被禁止
	changeTypes map[entity.GTUType]struct{} // 允许变道的类型，为空表示全部

	sink bool // 车辆在车道末端离开路网

	lightState          mapv2.LightState // 车道末端的信号灯状态
	lightStateRemaining float64          // 信号灯状态剩余时间
}

func (l *Lane) String() string {
	return fmt.Sprintf("Lane{id:%d, link:%v, index:%d}", l.id, l.link, l.index)
}

// 获取Lane配置ID
func (l *Lane) ID() int32 {
	return l.id
}

// 获取Lane句柄
func (l *Lane) Handle() entity.LaneID {
	return l.handle
}

// 获取Lane所属Link
func (l *Lane) Link() entity.LinkID {
	return l.link
}

// 获取Lane在Link中的序号（从左往右）
func (l *Lane) Index() int {
	return l.index
}

// 获取Lane长度
func (l *Lane) Length() float64 {
	return l.length
}

// 获取Lane中心线
func (l *Lane) Line() []geometry.Point {
	return l.line
}

// IsCompatible 类型t的交通参与者能否使用本车道
func (l *Lane) IsCompatible(t entity.GTUType) bool {
	if len(l.gtuTypes) == 0 {
		return true
	}
	_, ok := l.gtuTypes[t]
	return ok
}

// SpeedLimit 类型t在本车道上的限速
func (l *Lane) SpeedLimit(t entity.GTUType) float64 {
	if v, ok := l.maxVByType[t]; ok {
		return v
	}
	return l.maxV
}

// 获取后继车道（不区分类型）
func (l *Lane) Successors() []entity.LaneID {
	return l.successors
}

// 获取前驱车道
func (l *Lane) Predecessors() []entity.LaneID {
	return l.predecessors
}

// AdjacentLane 物理上相邻的车道，不存在时返回entity.NoID
func (l *Lane) AdjacentLane(side entity.Side) entity.LaneID {
	return l.sides[side]
}

// CanChange 类型t能否合法地从本车道向side侧变道
func (l *Lane) CanChange(side entity.Side, t entity.GTUType) bool {
	if l.noChange[side] {
		return false
	}
	if len(l.changeTypes) == 0 {
		return true
	}
	_, ok := l.changeTypes[t]
	return ok
}

// 车辆在车道末端离开路网
func (l *Lane) IsSink() bool {
	return l.sink
}

// Light 车道末端信号灯状态与剩余时间
func (l *Lane) Light() (mapv2.LightState, float64) {
	return l.lightState, l.lightStateRemaining
}

// SetLight 设置信号灯状态
// 说明：只能在Prepare阶段调用，规划阶段车道只读
func (l *Lane) SetLight(state mapv2.LightState, remaining float64) {
	l.lightState = state
	l.lightStateRemaining = remaining
}

func (l *Lane) resetLight() {
	l.SetLight(mapv2.LightState_LIGHT_STATE_GREEN, mathutil.INF)
}

// PositionByS 将车道s坐标转换为xy坐标
func (l *Lane) PositionByS(s float64) (pos geometry.Point) {
	// 路段长度可能与几何长度不一致，按比例换算
	total := l.lineLengths[len(l.lineLengths)-1]
	if total == 0 {
		return l.line[0]
	}
	s = lo.Clamp(s, 0, l.length) / l.length * total
	if i := sort.SearchFloat64s(l.lineLengths, s); i == 0 {
		pos = l.line[0]
	} else {
		sHigh, sLow := l.lineLengths[i], l.lineLengths[i-1]
		k := (s - sLow) / (sHigh - sLow)
		pos = geometry.Blend(l.line[i-1], l.line[i], k)
	}
	return
}
