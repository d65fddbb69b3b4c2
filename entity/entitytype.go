package entity

import "fmt"

// 方位常量
const (
	LEFT  Side = 0 // 左侧
	RIGHT Side = 1 // 右侧
)

// 激励向量下标，顺序为{左, 当前, 右}
const (
	IncentiveLeft    = 0
	IncentiveCurrent = 1
	IncentiveRight   = 2
)

// NoID 表示不存在的句柄
const NoID = -1

// NodeID 节点句柄（arena下标）
type NodeID int32

// LinkID 路段句柄（arena下标）
type LinkID int32

// LaneID 车道句柄（arena下标）
type LaneID int32

func (id NodeID) String() string { return fmt.Sprintf("Node(%d)", int32(id)) }
func (id LinkID) String() string { return fmt.Sprintf("Link(%d)", int32(id)) }
func (id LaneID) String() string { return fmt.Sprintf("Lane(%d)", int32(id)) }

// Valid 句柄是否有效
func (id NodeID) Valid() bool { return id >= 0 }

// Valid 句柄是否有效
func (id LinkID) Valid() bool { return id >= 0 }

// Valid 句柄是否有效
func (id LaneID) Valid() bool { return id >= 0 }

// GTUType 交通参与者类型，如car、truck、bus
type GTUType string

// Side 横向方向
// 说明：取值为LEFT或RIGHT，NoSide表示不变道
type Side int

const NoSide Side = -1

// Sides 按左、右顺序遍历
var Sides = [2]Side{LEFT, RIGHT}

func (s Side) String() string {
	switch s {
	case LEFT:
		return "left"
	case RIGHT:
		return "right"
	default:
		return "none"
	}
}

// Opposite 反方向
func (s Side) Opposite() Side {
	switch s {
	case LEFT:
		return RIGHT
	case RIGHT:
		return LEFT
	default:
		return NoSide
	}
}

// IncentiveIndex 方向在激励向量中的下标
func (s Side) IncentiveIndex() int {
	switch s {
	case LEFT:
		return IncentiveLeft
	case RIGHT:
		return IncentiveRight
	default:
		return IncentiveCurrent
	}
}

// ParseSide 从配置字符串解析方向
func ParseSide(s string) (Side, error) {
	switch s {
	case "left":
		return LEFT, nil
	case "right":
		return RIGHT, nil
	default:
		return NoSide, fmt.Errorf("bad side %q", s)
	}
}
