package tactical_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/tactical"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

func TestSuitabilityValue(t *testing.T) {
	assert.Equal(t, 0.0, tactical.Distance(-3).Meters())
	assert.Equal(t, 0.0, tactical.Distance(math.NaN()).Meters())
	assert.True(t, tactical.Distance(0).IsDistance())
	assert.True(t, math.IsInf(tactical.NoChangeNeeded.Meters(), 1))
	assert.Equal(t, 0.0, tactical.VacateNow.Meters())

	// 哨兵值累加距离后不变
	assert.Equal(t, tactical.NoChangeNeeded, tactical.NoChangeNeeded.Add(5))
	assert.Equal(t, tactical.VacateNow, tactical.VacateNow.Add(5))
	assert.Equal(t, tactical.Distance(15), tactical.Distance(10).Add(5))

	assert.True(t, tactical.VacateNow.Le(tactical.Distance(1)))
	assert.True(t, tactical.Distance(1).Le(tactical.NoChangeNeeded))
	assert.True(t, tactical.Distance(2).Ge(tactical.Distance(2)))
	assert.Equal(t, "Distance(12.50)", tactical.Distance(12.5).String())
}

// 三车道在分叉处只有最右侧车道通往出口
func TestSuitabilityExit(t *testing.T) {
	net := buildNetwork(t, exitNetwork())
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())
	route := stubRoute{linkID(t, net, 1): linkID(t, net, 3)}

	cases := []struct {
		lane int32
		want tactical.Suitability
	}{
		// 需要变道两次：300 * (2 - 2 + 1) / 2
		{11, tactical.Distance(150)},
		// 需要变道一次：300 * (2 - 1 + 1) / 2
		{12, tactical.Distance(300)},
		{13, tactical.NoChangeNeeded},
	}
	for _, c := range cases {
		got, err := p.Suitability(laneID(t, net, c.lane), 0, car, route, 90)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "lane %d", c.lane)
	}

	// 位置越靠前剩余距离越短
	got, err := p.Suitability(laneID(t, net, 12), 100, car, route, 90)
	require.NoError(t, err)
	assert.Equal(t, tactical.Distance(200), got)

	// 重复查询结果相同
	again, err := p.Suitability(laneID(t, net, 12), 100, car, route, 90)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSuitabilityMainline(t *testing.T) {
	net := buildNetwork(t, exitNetwork())
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())
	route := stubRoute{linkID(t, net, 1): linkID(t, net, 2)}

	got, err := p.Suitability(laneID(t, net, 11), 0, car, route, 90)
	require.NoError(t, err)
	assert.True(t, got.IsNoChangeNeeded())

	// 只需向左变道一次：300 * (1 - 1 + 1) / 1
	got, err = p.Suitability(laneID(t, net, 13), 0, car, route, 90)
	require.NoError(t, err)
	assert.Equal(t, tactical.Distance(300), got)
}

func TestSuitabilityTie(t *testing.T) {
	// 分叉处中间车道进入link 3，两侧车道都进入link 2
	c := exitNetwork()
	c.Links[0].Lanes[1].Successors = []int32{31}
	c.Links[0].Lanes[2].Successors = []int32{22}
	net := buildNetwork(t, c)
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())
	route := stubRoute{linkID(t, net, 1): linkID(t, net, 2)}

	// 向左与向右都只需变道一次：300 * (1 - 1 + 1) / 1
	got, err := p.Suitability(laneID(t, net, 12), 0, car, route, 90)
	require.NoError(t, err)
	assert.Equal(t, tactical.Distance(300), got)

	// 分叉处的最左侧车道：左侧没有车道（VacateNow），右侧距离为0，相等时取左侧
	net = buildNetwork(t, exitNetwork())
	p = tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())
	route = stubRoute{linkID(t, net, 1): linkID(t, net, 3)}
	got, err = p.Suitability(laneID(t, net, 11), 300, car, route, 90)
	require.NoError(t, err)
	assert.Equal(t, tactical.VacateNow, got)
}

func TestSuitabilityShortHorizon(t *testing.T) {
	net := buildNetwork(t, exitNetwork())
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())
	route := stubRoute{linkID(t, net, 1): linkID(t, net, 3)}

	// 到达分叉需要10秒
	got, err := p.Suitability(laneID(t, net, 11), 0, car, route, 5)
	require.NoError(t, err)
	assert.True(t, got.IsNoChangeNeeded())
}

func TestSuitabilityRouteFailure(t *testing.T) {
	net := buildNetwork(t, exitNetwork())
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())

	_, err := p.Suitability(laneID(t, net, 11), 0, car, stubRoute{}, 90)
	require.ErrorIs(t, err, tactical.ErrNetworkInconsistency)

	// 车辆层面只记录日志，不产生约束
	agent := newAgent(net, laneID(t, net, 11), 0, 20)
	assert.True(t, p.SuitabilityFor(agent, entity.NoSide).IsNoChangeNeeded())
}

func TestSuitabilityNoLaneChangeAllowed(t *testing.T) {
	c := exitNetwork()
	c.Links[0].Lanes[1].NoRightChange = true
	net := buildNetwork(t, c)
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())
	route := stubRoute{linkID(t, net, 1): linkID(t, net, 3)}

	_, err := p.Suitability(laneID(t, net, 11), 0, car, route, 90)
	require.ErrorIs(t, err, tactical.ErrNetworkInconsistency)
}

func TestSuitabilitySingleCompatibleLane(t *testing.T) {
	c := exitNetwork()
	c.Links[0].Lanes[0].GTUTypes = []string{"bus"}
	c.Links[0].Lanes[1].GTUTypes = []string{"bus"}
	net := buildNetwork(t, c)
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())
	route := stubRoute{linkID(t, net, 1): linkID(t, net, 2)}

	// 路段上只有一条车道可用时无论路线如何都不需要变道
	got, err := p.Suitability(laneID(t, net, 13), 0, car, route, 90)
	require.NoError(t, err)
	assert.True(t, got.IsNoChangeNeeded())
}

// nestedNetwork 两次分叉：link 1三车道，最右侧进入出口link 3；link 2两车道，再分为link 4与link 5
func nestedNetwork() config.Network {
	return config.Network{
		Nodes: []config.Node{
			{ID: 1, X: 0, Y: 0}, {ID: 2, X: 300, Y: 0}, {ID: 3, X: 600, Y: 0},
			{ID: 4, X: 500, Y: -100}, {ID: 5, X: 900, Y: 50}, {ID: 6, X: 900, Y: -50},
		},
		Links: []config.Link{
			{ID: 1, From: 1, To: 2, Lanes: []config.Lane{
				{ID: 11, MaxSpeed: 30, Successors: []int32{21}},
				{ID: 12, MaxSpeed: 30, Successors: []int32{22}},
				{ID: 13, MaxSpeed: 30, Successors: []int32{31}},
			}},
			{ID: 2, From: 2, To: 3, Lanes: []config.Lane{
				{ID: 21, MaxSpeed: 30, Successors: []int32{41}},
				{ID: 22, MaxSpeed: 30, Successors: []int32{51}},
			}},
			{ID: 3, From: 2, To: 4, Lanes: []config.Lane{{ID: 31, MaxSpeed: 30, Sink: true}}},
			{ID: 4, From: 3, To: 5, Lanes: []config.Lane{{ID: 41, MaxSpeed: 30, Sink: true}}},
			{ID: 5, From: 3, To: 6, Lanes: []config.Lane{{ID: 51, MaxSpeed: 30, Sink: true}}},
		},
	}
}

func TestSuitabilityNestedBranches(t *testing.T) {
	net := buildNetwork(t, nestedNetwork())
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())
	route := stubRoute{
		linkID(t, net, 1): linkID(t, net, 2),
		linkID(t, net, 2): linkID(t, net, 5),
	}

	cases := []struct {
		lane int32
		want tactical.Suitability
	}{
		// 第二个分叉前需要在link 2上向右变道一次，再加上link 1的300m
		{11, tactical.Distance(600)},
		{12, tactical.NoChangeNeeded},
		// 第一个分叉前需要向左变道一次
		{13, tactical.Distance(300)},
	}
	for _, c := range cases {
		got, err := p.Suitability(laneID(t, net, c.lane), 0, car, route, 90)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "lane %d", c.lane)
	}
}

// ringNetwork 两条首尾相接的双车道路段，没有分叉
func ringNetwork() config.Network {
	return config.Network{
		Nodes: []config.Node{{ID: 1, X: 0, Y: 0}, {ID: 2, X: 100, Y: 0}},
		Links: []config.Link{
			{ID: 1, From: 1, To: 2, Lanes: []config.Lane{
				{ID: 11, MaxSpeed: 30, Successors: []int32{21}},
				{ID: 12, MaxSpeed: 30, Successors: []int32{22}},
			}},
			{ID: 2, From: 2, To: 1, Lanes: []config.Lane{
				{ID: 21, MaxSpeed: 30, Successors: []int32{11}},
				{ID: 22, MaxSpeed: 30, Successors: []int32{12}},
			}},
		},
	}
}

func TestSuitabilityRingTerminates(t *testing.T) {
	net := buildNetwork(t, ringNetwork())
	params := defaultParams()
	params.MaxWalkSteps = 5
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, params)

	got, err := p.Suitability(laneID(t, net, 11), 0, car, stubRoute{}, 1e9)
	require.NoError(t, err)
	assert.True(t, got.IsNoChangeNeeded())
	assert.True(t, p.LaneDrop(laneID(t, net, 11), 0, car, 1e9).IsNoChangeNeeded())

	// 前瞻时间耗尽同样终止
	p = tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())
	got, err = p.Suitability(laneID(t, net, 12), 0, car, stubRoute{}, 90)
	require.NoError(t, err)
	assert.True(t, got.IsNoChangeNeeded())
}

func TestSuitabilityForcedShift(t *testing.T) {
	net := buildNetwork(t, mergeNetwork())
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())

	// 车道12在汇入处消失，沿相邻车道继续后link 2只有一条车道
	got, err := p.Suitability(laneID(t, net, 12), 0, car, stubRoute{}, 90)
	require.NoError(t, err)
	assert.True(t, got.IsNoChangeNeeded())
}

func TestLaneDrop(t *testing.T) {
	net := buildNetwork(t, mergeNetwork())
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())

	assert.Equal(t, tactical.Distance(50), p.LaneDrop(laneID(t, net, 12), 0, car, 90))
	assert.Equal(t, tactical.Distance(30), p.LaneDrop(laneID(t, net, 12), 20, car, 90))
	// 后继为出口车道
	assert.True(t, p.LaneDrop(laneID(t, net, 11), 0, car, 90).IsNoChangeNeeded())
	// 前瞻时间内到不了车道末端
	assert.True(t, p.LaneDrop(laneID(t, net, 12), 0, car, 1).IsNoChangeNeeded())

	agent := newAgent(net, laneID(t, net, 12), 0, 20)
	assert.Equal(t, tactical.Distance(50), p.LaneDropFor(agent, entity.NoSide))
	assert.True(t, p.LaneDropFor(agent, entity.LEFT).IsNoChangeNeeded())
	assert.True(t, p.LaneDropFor(agent, entity.RIGHT).IsVacateNow())

	dead := buildNetwork(t, deadEndNetwork())
	p = tactical.NewPlanner(dead, stopCF{}, &stubLCM{}, defaultParams())
	assert.Equal(t, tactical.Distance(100), p.LaneDrop(laneID(t, dead, 11), 0, car, 90))
}

func TestLaneDropFork(t *testing.T) {
	c := exitNetwork()
	c.Links[0].Lanes[2].Successors = []int32{22, 31}
	net := buildNetwork(t, c)
	p := tactical.NewPlanner(net, stopCF{}, &stubLCM{}, defaultParams())

	// 多条后继车道时任何选择都可以
	assert.True(t, p.LaneDrop(laneID(t, net, 13), 0, car, 90).IsNoChangeNeeded())
}
