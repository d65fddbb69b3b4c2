package network

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
)

// Node 路网节点
type Node struct {
	id     int32
	handle entity.NodeID
	pos    geometry.Point
	in     []entity.LinkID // 驶入的路段
	out    []entity.LinkID // 驶出的路段
}

func (n *Node) String() string {
	return fmt.Sprintf("Node{id:%d}", n.id)
}

func (n *Node) ID() int32 { return n.id }
func (n *Node) Handle() entity.NodeID { return n.handle }
func (n *Node) Position() geometry.Point { return n.pos }
func (n *Node) InLinks() []entity.LinkID { return n.in }
func (n *Node) OutLinks() []entity.LinkID { return n.out }

// IncidentLinks 关联的路段总数（驶入+驶出）
func (n *Node) IncidentLinks() int {
	return len(n.in) + len(n.out)
}

// Link 有向路段
// 功能：连接两个节点，包含从左到右排列的车道
// 说明：非车道化路段不包含车道，作为不可分割的整体处理
type Link struct {
	id        int32
	handle    entity.LinkID
	from, to  entity.NodeID
	length    float64
	laneBased bool
	lanes     []entity.LaneID // 从左到右
}

func (l *Link) String() string {
	return fmt.Sprintf("Link{id:%d}", l.id)
}

func (l *Link) ID() int32 { return l.id }
func (l *Link) Handle() entity.LinkID { return l.handle }
func (l *Link) From() entity.NodeID { return l.from }
func (l *Link) To() entity.NodeID { return l.to }
func (l *Link) Length() float64 { return l.length }
func (l *Link) LaneBased() bool { return l.laneBased }
func (l *Link) Lanes() []entity.LaneID { return l.lanes }
