package route

import (
	"errors"
	"fmt"

	routingv2 "git.fiblab.net/sim/protos/v2/go/city/routing/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
)

var (
	// ErrRouteEnd 已经到达路线的最后一条路段
	ErrRouteEnd = errors.New("route: end of route")
	// ErrOffRoute 查询的路段或节点不在路线上
	ErrOffRoute = errors.New("route: off route")
)

// Fixed 固定路段序列的路线
// 功能：按给定的路段顺序回答分叉处的下一路段
// 说明：构建后只读，可以在规划阶段被并发查询
type Fixed struct {
	net   *network.Network
	links []entity.LinkID
	next  map[entity.LinkID]entity.LinkID // 上一路段 -> 下一路段
	eta   float64                         // 预计用时（秒）
}

// NewFixed 创建固定路线
// 参数：net-路网，links-依次经过的路段，eta-预计用时
// 返回：路线；相邻路段不首尾相接或路段重复出现时返回错误
func NewFixed(net *network.Network, links []entity.LinkID, eta float64) (*Fixed, error) {
	if len(links) == 0 {
		return nil, errors.New("route: empty link sequence")
	}
	r := &Fixed{
		net:   net,
		links: links,
		next:  make(map[entity.LinkID]entity.LinkID, len(links)),
		eta:   eta,
	}
	if dup := lo.FindDuplicates(links); len(dup) > 0 {
		return nil, fmt.Errorf("route: link %v appears more than once", net.Link(dup[0]))
	}
	for i := 0; i+1 < len(links); i++ {
		cur, nxt := net.Link(links[i]), net.Link(links[i+1])
		if cur.To() != nxt.From() {
			return nil, fmt.Errorf("route: %v does not continue into %v", cur, nxt)
		}
		r.next[links[i]] = links[i+1]
	}
	return r, nil
}

// FromLinkIDs 按配置中的路段ID创建固定路线
func FromLinkIDs(net *network.Network, ids []int32, eta float64) (*Fixed, error) {
	links := make([]entity.LinkID, 0, len(ids))
	for _, id := range ids {
		h, ok := net.LinkByID(id)
		if !ok {
			return nil, fmt.Errorf("route: no link %d", id)
		}
		links = append(links, h)
	}
	return NewFixed(net, links, eta)
}

// NextLink 在节点node处、从路段previous驶出后应进入的路段
func (r *Fixed) NextLink(node entity.NodeID, previous entity.LinkID, t entity.GTUType) (entity.LinkID, error) {
	next, ok := r.next[previous]
	if !ok {
		if previous == r.links[len(r.links)-1] {
			return entity.NoID, fmt.Errorf("%w after %v", ErrRouteEnd, r.net.Link(previous))
		}
		return entity.NoID, fmt.Errorf("%w: %v", ErrOffRoute, r.net.Link(previous))
	}
	if r.net.Link(previous).To() != node {
		return entity.NoID, fmt.Errorf("%w: %v does not end at %v", ErrOffRoute, r.net.Link(previous), r.net.Node(node))
	}
	return next, nil
}

// Links 路线上的全部路段
func (r *Fixed) Links() []entity.LinkID {
	return r.links
}

// Contains 路段是否在路线上
func (r *Fixed) Contains(link entity.LinkID) bool {
	return lo.Contains(r.links, link)
}

// Eta 预计用时
func (r *Fixed) Eta() float64 {
	return r.eta
}

// ToPb 转为routing服务的Journey格式
func (r *Fixed) ToPb() *routingv2.Journey {
	return &routingv2.Journey{
		Type: routingv2.JourneyType_JOURNEY_TYPE_DRIVING,
		Driving: &routingv2.DrivingJourneyBody{
			RoadIds: lo.Map(r.links, func(l entity.LinkID, _ int) int32 {
				return r.net.Link(l).ID()
			}),
			Eta: r.eta,
		},
	}
}
