package tactical

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
)

// HeadwayKind 感知对象类型
type HeadwayKind uint8

const (
	HeadwayGTU          HeadwayKind = iota // 其他车辆
	HeadwayTrafficLight                    // 需要停车的信号灯
	HeadwayStop                            // 其他停车点
)

// Headway 感知到的对象
type Headway struct {
	ID       int32       // 对象ID
	Kind     HeadwayKind // 对象类型
	Distance float64     // 净距（米），对前方对象为本车车头到对象车尾，对后方对象为对象车头到本车车尾
	Speed    float64     // 对象速度（米/秒）
}

func (h Headway) String() string {
	return fmt.Sprintf("Headway{id:%d, kind:%d, distance:%.2f, v:%.2f}", h.ID, h.Kind, h.Distance, h.Speed)
}

// Traffic 某条车道上的前车与后车
type Traffic struct {
	Lane     entity.LaneID // entity.NoID表示该方向没有可合法进入的车道
	Leader   *Headway      // 前车，nil表示没有
	Follower *Headway      // 后车，nil表示没有
}

// Available 该方向是否存在可合法进入的车道
func (t Traffic) Available() bool {
	return t.Lane.Valid()
}

// Perception 车辆对周边环境的感知
// 说明：规划期间只读取上一周期提交的快照
type Perception interface {
	// 本车道前车
	ForwardHeadway() *Headway
	// 本车道后车
	BackwardHeadway() *Headway
	// 左/右侧车道在本车投影位置处的前后车
	NeighboringHeadways(side entity.Side) Traffic
	// 当前车道限速
	SpeedLimit() float64
	// 前方需要停车的对象（红灯等），nil表示没有约束
	ForwardHeadwayObject() *Headway
}

// CarFollowingModel 跟车模型
type CarFollowingModel interface {
	Accelerate(speed, maxSpeed, leaderSpeed, gap, speedLimit float64) float64
}

// LaneMovementStep 变道模型的决策结果
type LaneMovementStep struct {
	Side         entity.Side // 变道方向，entity.NoSide表示不变道
	Acceleration float64     // 纵向加速度
	ValidUntil   float64     // 决策有效截止时刻
}

// LaneChangeModel 变道模型
// 说明：incentives按{左, 当前, 右}排列
type LaneChangeModel interface {
	ComputeLaneChangeAndAcceleration(
		agent Agent, now float64,
		same, left, right Traffic,
		speedLimit float64, incentives [3]float64,
	) (LaneMovementStep, error)
}

// RoutePlanner 战略路线规划
// 功能：在分叉节点给出继续路线的下一路段，无法给出时返回错误
type RoutePlanner interface {
	NextLink(node entity.NodeID, previous entity.LinkID, t entity.GTUType) (entity.LinkID, error)
}

// Agent 战术规划面对的车辆
// 说明：除ChangeLaneInstantaneously外只读，变道只修改车辆自身的运行时数据
type Agent interface {
	ID() int32
	Type() entity.GTUType
	Lane() entity.LaneID
	S() float64 // 车头在车道上的位置
	V() float64
	MaxV() float64
	Length() float64
	LastLaneChangeTime() float64
	Route() RoutePlanner
	Perception() Perception
	ChangeLaneInstantaneously(side entity.Side) error
}
