package network

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

const defaultLaneWidth = 3.2

// New 根据配置构建路网
// 功能：创建节点、路段、车道，建立前后与左右连接关系，创建信号灯
// 参数：c-路网配置
// 返回：构建完成的路网，配置不一致时返回错误
// 算法说明：
// 1. 节点：建立ID到句柄的映射
// 2. 路段：检查端点，计算长度，车道按从左到右的顺序生成平行中心线
// 3. 车道连接：后继必须位于以本路段终点为起点的路段上，前驱由后继反推
// 4. 末端没有后继、但终点驶出非车道化路段的车道视为出口
// 5. 信号灯：受控车道必须以信号灯所在节点为终点
func New(c config.Network) (*Network, error) {
	n := &Network{
		nodeIndex: make(map[int32]entity.NodeID, len(c.Nodes)),
		linkIndex: make(map[int32]entity.LinkID, len(c.Links)),
		laneIndex: make(map[int32]entity.LaneID),
	}
	for _, nc := range c.Nodes {
		if _, ok := n.nodeIndex[nc.ID]; ok {
			return nil, fmt.Errorf("duplicate node id %d", nc.ID)
		}
		h := entity.NodeID(len(n.nodes))
		n.nodeIndex[nc.ID] = h
		n.nodes = append(n.nodes, Node{id: nc.ID, handle: h, pos: geometry.Point{X: nc.X, Y: nc.Y}})
	}
	for _, lc := range c.Links {
		if err := n.addLink(lc); err != nil {
			return nil, err
		}
	}
	if err := n.connectLanes(c.Links); err != nil {
		return nil, err
	}
	n.occupancy = make([]int, len(n.lanes))
	for _, tc := range c.TrafficLights {
		if err := n.addTrafficLight(tc); err != nil {
			return nil, err
		}
	}
	for i := range n.lanes {
		n.lanes[i].resetLight()
	}
	log.Infof("network: %d nodes, %d links, %d lanes, %d traffic lights",
		len(n.nodes), len(n.links), len(n.lanes), len(n.lights))
	return n, nil
}

func (n *Network) addLink(c config.Link) error {
	if _, ok := n.linkIndex[c.ID]; ok {
		return fmt.Errorf("duplicate link id %d", c.ID)
	}
	from, ok := n.nodeIndex[c.From]
	if !ok {
		return fmt.Errorf("link %d: no from node %d", c.ID, c.From)
	}
	to, ok := n.nodeIndex[c.To]
	if !ok {
		return fmt.Errorf("link %d: no to node %d", c.ID, c.To)
	}
	start, end := n.nodes[from].pos, n.nodes[to].pos
	dx, dy := end.X-start.X, end.Y-start.Y
	length := c.Length
	if length == 0 {
		length = math.Hypot(dx, dy)
	}
	if length <= 0 {
		return fmt.Errorf("link %d: length must be positive", c.ID)
	}
	if c.NonLaneBased && len(c.Lanes) > 0 {
		return fmt.Errorf("link %d: non-lane-based link cannot have lanes", c.ID)
	}
	if !c.NonLaneBased && len(c.Lanes) == 0 {
		return fmt.Errorf("link %d: lane-based link needs at least one lane", c.ID)
	}
	h := entity.LinkID(len(n.links))
	n.linkIndex[c.ID] = h
	link := Link{
		id:        c.ID,
		handle:    h,
		from:      from,
		to:        to,
		length:    length,
		laneBased: !c.NonLaneBased,
	}
	// 右侧法向量
	normal := geometry.Point{}
	if d := math.Hypot(dx, dy); d > 0 {
		normal = geometry.Point{X: dy / d, Y: -dx / d}
	}
	widths := lo.Map(c.Lanes, func(lc config.Lane, _ int) float64 {
		if lc.Width == 0 {
			return defaultLaneWidth
		}
		return lc.Width
	})
	offset := -lo.Sum(widths) / 2
	for i, lc := range c.Lanes {
		if _, ok := n.laneIndex[lc.ID]; ok {
			return fmt.Errorf("duplicate lane id %d", lc.ID)
		}
		center := offset + widths[i]/2
		offset += widths[i]
		lh := entity.LaneID(len(n.lanes))
		n.laneIndex[lc.ID] = lh
		lane := Lane{
			id:         lc.ID,
			handle:     lh,
			link:       h,
			index:      i,
			length:     length,
			maxV:       lc.MaxSpeed,
			maxVByType: make(map[entity.GTUType]float64, len(lc.SpeedLimits)),
			gtuTypes: lo.SliceToMap(lc.GTUTypes, func(t string) (entity.GTUType, struct{}) {
				return entity.GTUType(t), struct{}{}
			}),
			changeTypes: lo.SliceToMap(lc.ChangeTypes, func(t string) (entity.GTUType, struct{}) {
				return entity.GTUType(t), struct{}{}
			}),
			noChange: [2]bool{lc.NoLeftChange, lc.NoRightChange},
			sides:    [2]entity.LaneID{entity.NoID, entity.NoID},
			sink:     lc.Sink,
		}
		for t, v := range lc.SpeedLimits {
			lane.maxVByType[entity.GTUType(t)] = v
		}
		lane.line = []geometry.Point{
			{X: start.X + normal.X*center, Y: start.Y + normal.Y*center},
			{X: end.X + normal.X*center, Y: end.Y + normal.Y*center},
		}
		lane.lineLengths = geometry.GetPolylineLengths2D(lane.line)
		if i > 0 {
			left := link.lanes[i-1]
			lane.sides[entity.LEFT] = left
			n.lanes[left].sides[entity.RIGHT] = lh
		}
		link.lanes = append(link.lanes, lh)
		n.lanes = append(n.lanes, lane)
	}
	n.links = append(n.links, link)
	n.nodes[from].out = append(n.nodes[from].out, h)
	n.nodes[to].in = append(n.nodes[to].in, h)
	return nil
}

func (n *Network) connectLanes(links []config.Link) error {
	for _, linkConfig := range links {
		for _, lc := range linkConfig.Lanes {
			h := n.laneIndex[lc.ID]
			lane := &n.lanes[h]
			endNode := n.links[lane.link].to
			for _, succID := range lc.Successors {
				succ, ok := n.laneIndex[succID]
				if !ok {
					return fmt.Errorf("lane %d: no successor lane %d", lc.ID, succID)
				}
				if n.links[n.lanes[succ].link].from != endNode {
					return fmt.Errorf("lane %d: successor lane %d does not start at node %d",
						lc.ID, succID, n.nodes[endNode].id)
				}
				lane.successors = append(lane.successors, succ)
				n.lanes[succ].predecessors = append(n.lanes[succ].predecessors, h)
			}
			if len(lane.successors) == 0 && !lane.sink {
				for _, out := range n.nodes[endNode].out {
					if !n.links[out].laneBased {
						lane.sink = true
						break
					}
				}
			}
		}
	}
	return nil
}

func (n *Network) addTrafficLight(c config.TrafficLight) error {
	node, ok := n.nodeIndex[c.Node]
	if !ok {
		return fmt.Errorf("traffic light: no node %d", c.Node)
	}
	lanes := make([]*Lane, 0, len(c.Lanes))
	for _, id := range c.Lanes {
		h, ok := n.laneIndex[id]
		if !ok {
			return fmt.Errorf("traffic light at node %d: no lane %d", c.Node, id)
		}
		lane := &n.lanes[h]
		if n.links[lane.link].to != node {
			return fmt.Errorf("traffic light at node %d: lane %d does not end at the node", c.Node, id)
		}
		lanes = append(lanes, lane)
	}
	var tl signal
	var err error
	switch c.Algorithm {
	case "", "fixed":
		tl, err = newTrafficLight(node, lanes, c)
	case "max_pressure":
		tl, err = newMaxPressureLight(n, node, lanes, c)
	default:
		err = fmt.Errorf("traffic light at node %d: unknown algorithm %q", c.Node, c.Algorithm)
	}
	if err != nil {
		return err
	}
	n.lights = append(n.lights, tl)
	return nil
}
