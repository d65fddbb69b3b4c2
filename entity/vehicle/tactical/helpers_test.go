package tactical_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/tactical"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

const car entity.GTUType = "car"

// 120km/h
const highwayLimit = 120 / 3.6

func buildNetwork(t *testing.T, c config.Network) *network.Network {
	t.Helper()
	net, err := network.New(c)
	require.NoError(t, err)
	return net
}

func laneID(t *testing.T, net *network.Network, id int32) entity.LaneID {
	t.Helper()
	h, ok := net.LaneByID(id)
	require.True(t, ok, "lane %d", id)
	return h
}

func linkID(t *testing.T, net *network.Network, id int32) entity.LinkID {
	t.Helper()
	h, ok := net.LinkByID(id)
	require.True(t, ok, "link %d", id)
	return h
}

func defaultParams() tactical.Params {
	return tactical.Params{
		TimeHorizon:           90,
		Lookahead:             250,
		DriftingSpeed:         1e-3,
		HardVeto:              -10,
		PlanDuration:          0.5,
		PreferredSide:         entity.RIGHT,
		MaxWalkSteps:          10000,
		StayIncentive:         0.1,
		PreferredIncentive:    0.3,
		NonPreferredIncentive: -0.3,
	}
}

// stubRoute 按上一路段查找下一路段
type stubRoute map[entity.LinkID]entity.LinkID

func (r stubRoute) NextLink(node entity.NodeID, previous entity.LinkID, t entity.GTUType) (entity.LinkID, error) {
	if next, ok := r[previous]; ok {
		return next, nil
	}
	return entity.NoID, fmt.Errorf("no link after %v", previous)
}

type stubPerception struct {
	leader, follower *tactical.Headway
	object           *tactical.Headway
	limit            float64
}

func (p *stubPerception) ForwardHeadway() *tactical.Headway { return p.leader }
func (p *stubPerception) BackwardHeadway() *tactical.Headway { return p.follower }
func (p *stubPerception) NeighboringHeadways(side entity.Side) tactical.Traffic {
	return tactical.Traffic{Lane: entity.NoID}
}
func (p *stubPerception) SpeedLimit() float64 { return p.limit }
func (p *stubPerception) ForwardHeadwayObject() *tactical.Headway { return p.object }

type stubAgent struct {
	net        *network.Network
	id         int32
	lane       entity.LaneID
	s, v, maxV float64
	route      tactical.RoutePlanner
	perception *stubPerception
	changeErr  error
}

func newAgent(net *network.Network, lane entity.LaneID, s, v float64) *stubAgent {
	return &stubAgent{
		net:        net,
		id:         1,
		lane:       lane,
		s:          s,
		v:          v,
		maxV:       40,
		route:      stubRoute{},
		perception: &stubPerception{limit: highwayLimit},
	}
}

func (a *stubAgent) ID() int32 { return a.id }
func (a *stubAgent) Type() entity.GTUType { return car }
func (a *stubAgent) Lane() entity.LaneID { return a.lane }
func (a *stubAgent) S() float64 { return a.s }
func (a *stubAgent) V() float64 { return a.v }
func (a *stubAgent) MaxV() float64 { return a.maxV }
func (a *stubAgent) Length() float64 { return 5 }
func (a *stubAgent) LastLaneChangeTime() float64 { return math.Inf(-1) }
func (a *stubAgent) Route() tactical.RoutePlanner { return a.route }
func (a *stubAgent) Perception() tactical.Perception { return a.perception }
func (a *stubAgent) ChangeLaneInstantaneously(side entity.Side) error {
	if a.changeErr != nil {
		return a.changeErr
	}
	target := a.net.Lane(a.lane).AdjacentLane(side)
	if !target.Valid() {
		return fmt.Errorf("no lane on the %v of %v", side, a.lane)
	}
	a.s = a.net.ProjectS(a.lane, target, a.s)
	a.lane = target
	return nil
}

// stopCF 在gap处刚好停车的跟车模型，没有前车时以1m/s²加速
type stopCF struct{}

func (stopCF) Accelerate(speed, maxSpeed, leaderSpeed, gap, speedLimit float64) float64 {
	if math.IsInf(gap, 1) || gap >= 1e300 {
		return 1
	}
	return tactical.Acceleration(speed, gap)
}

// stubLCM 记录收到的激励并返回固定决策
type stubLCM struct {
	side       entity.Side
	a          float64
	calls      int
	incentives [3]float64
}

func (m *stubLCM) ComputeLaneChangeAndAcceleration(
	agent tactical.Agent, now float64,
	same, left, right tactical.Traffic,
	speedLimit float64, incentives [3]float64,
) (tactical.LaneMovementStep, error) {
	m.calls++
	m.incentives = incentives
	return tactical.LaneMovementStep{Side: m.side, Acceleration: m.a, ValidUntil: now + 0.5}, nil
}

// deadEndNetwork 单车道，前方100m断头
func deadEndNetwork() config.Network {
	return config.Network{
		Nodes: []config.Node{{ID: 1, X: 0, Y: 0}, {ID: 2, X: 100, Y: 0}},
		Links: []config.Link{{ID: 1, From: 1, To: 2, Lanes: []config.Lane{{ID: 11, MaxSpeed: highwayLimit}}}},
	}
}

// mergeNetwork 两车道在50m处汇为一条，右侧车道消失，汇入后的车道100m后离开路网
func mergeNetwork() config.Network {
	return config.Network{
		Nodes: []config.Node{{ID: 1, X: 0, Y: 0}, {ID: 2, X: 50, Y: 0}, {ID: 3, X: 150, Y: 0}},
		Links: []config.Link{
			{ID: 1, From: 1, To: 2, Lanes: []config.Lane{
				{ID: 11, MaxSpeed: highwayLimit, Successors: []int32{21}},
				{ID: 12, MaxSpeed: highwayLimit},
			}},
			{ID: 2, From: 2, To: 3, Lanes: []config.Lane{{ID: 21, MaxSpeed: highwayLimit, Sink: true}}},
		},
	}
}

// exitNetwork 三车道300m后分叉：左侧两条车道进入主线（link 2），最右侧车道进入出口（link 3）
func exitNetwork() config.Network {
	return config.Network{
		Nodes: []config.Node{{ID: 1, X: 0, Y: 0}, {ID: 2, X: 300, Y: 0}, {ID: 3, X: 600, Y: 0}, {ID: 4, X: 600, Y: -100}},
		Links: []config.Link{
			{ID: 1, From: 1, To: 2, Lanes: []config.Lane{
				{ID: 11, MaxSpeed: 30, Successors: []int32{21}},
				{ID: 12, MaxSpeed: 30, Successors: []int32{22}},
				{ID: 13, MaxSpeed: 30, Successors: []int32{31}},
			}},
			{ID: 2, From: 2, To: 3, Lanes: []config.Lane{
				{ID: 21, MaxSpeed: 30, Sink: true},
				{ID: 22, MaxSpeed: 30, Sink: true},
			}},
			{ID: 3, From: 2, To: 4, Lanes: []config.Lane{{ID: 31, MaxSpeed: 30, Sink: true}}},
		},
	}
}
