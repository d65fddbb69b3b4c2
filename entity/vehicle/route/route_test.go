package route_test

import (
	"testing"

	routingv2 "git.fiblab.net/sim/protos/v2/go/city/routing/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/vehicle/route"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

// 1 -> 2分为快速路（2 -> 3 -> 5）与慢速路（2 -> 4 -> 5）
func testNetwork(t *testing.T) *network.Network {
	lane := func(id int32, v float64) config.Lane {
		return config.Lane{ID: id, MaxSpeed: v}
	}
	n, err := network.New(config.Network{
		Nodes: []config.Node{
			{ID: 1, X: 0, Y: 0}, {ID: 2, X: 100, Y: 0}, {ID: 3, X: 200, Y: 50},
			{ID: 4, X: 200, Y: -50}, {ID: 5, X: 300, Y: 0},
		},
		Links: []config.Link{
			{ID: 1, From: 1, To: 2, Lanes: []config.Lane{lane(11, 20)}},
			{ID: 2, From: 2, To: 3, Lanes: []config.Lane{lane(21, 30)}},
			{ID: 3, From: 2, To: 4, Lanes: []config.Lane{lane(31, 10)}},
			{ID: 4, From: 3, To: 5, Lanes: []config.Lane{lane(41, 30)}},
			{ID: 5, From: 4, To: 5, Lanes: []config.Lane{lane(51, 10)}},
			{ID: 6, From: 5, To: 1, Lanes: []config.Lane{{ID: 61, MaxSpeed: 10, GTUTypes: []string{"bus"}}}},
		},
	})
	require.NoError(t, err)
	return n
}

func link(t *testing.T, n *network.Network, id int32) entity.LinkID {
	h, ok := n.LinkByID(id)
	require.True(t, ok)
	return h
}

func node(t *testing.T, n *network.Network, id int32) entity.NodeID {
	h, ok := n.NodeByID(id)
	require.True(t, ok)
	return h
}

func TestFixed(t *testing.T) {
	n := testNetwork(t)
	r, err := route.FromLinkIDs(n, []int32{1, 3, 5}, 30)
	require.NoError(t, err)

	next, err := r.NextLink(node(t, n, 2), link(t, n, 1), "car")
	require.NoError(t, err)
	assert.Equal(t, link(t, n, 3), next)
	next, err = r.NextLink(node(t, n, 4), link(t, n, 3), "car")
	require.NoError(t, err)
	assert.Equal(t, link(t, n, 5), next)

	_, err = r.NextLink(node(t, n, 5), link(t, n, 5), "car")
	assert.ErrorIs(t, err, route.ErrRouteEnd)
	_, err = r.NextLink(node(t, n, 3), link(t, n, 2), "car")
	assert.ErrorIs(t, err, route.ErrOffRoute)
	// 路段与节点不对应
	_, err = r.NextLink(node(t, n, 3), link(t, n, 1), "car")
	assert.ErrorIs(t, err, route.ErrOffRoute)

	assert.True(t, r.Contains(link(t, n, 3)))
	assert.False(t, r.Contains(link(t, n, 2)))
	assert.Equal(t, []int32{1, 3, 5}, r.ToPb().Driving.RoadIds)
	assert.Equal(t, 30.0, r.Eta())
}

func TestFixedErrors(t *testing.T) {
	n := testNetwork(t)
	_, err := route.FromLinkIDs(n, nil, 0)
	assert.Error(t, err)
	_, err = route.FromLinkIDs(n, []int32{1, 4}, 0)
	assert.Error(t, err)
	_, err = route.FromLinkIDs(n, []int32{1, 9}, 0)
	assert.Error(t, err)
	// 同一路段出现两次
	_, err = route.FromLinkIDs(n, []int32{1, 2, 4, 6, 1}, 0)
	assert.Error(t, err)
}

func TestShortestPath(t *testing.T) {
	n := testNetwork(t)
	res, err := route.ShortestPath(n, link(t, n, 1), node(t, n, 5), "car")
	require.NoError(t, err)
	require.Len(t, res.Journeys, 1)
	j := res.Journeys[0]
	assert.Equal(t, routingv2.JourneyType_JOURNEY_TYPE_DRIVING, j.Type)
	assert.Equal(t, []int32{1, 2, 4}, j.Driving.RoadIds)
	assert.Greater(t, j.Driving.Eta, 0.0)

	r, err := route.FromResponse(n, res)
	require.NoError(t, err)
	next, err := r.NextLink(node(t, n, 2), link(t, n, 1), "car")
	require.NoError(t, err)
	assert.Equal(t, link(t, n, 2), next)

	// 目标就是当前路段终点
	res, err = route.ShortestPath(n, link(t, n, 1), node(t, n, 2), "car")
	require.NoError(t, err)
	assert.Equal(t, []int32{1}, res.Journeys[0].Driving.RoadIds)

	// 小汽车不能通过link 6回到节点1
	_, err = route.ShortestPath(n, link(t, n, 4), node(t, n, 2), "car")
	assert.Error(t, err)
	res, err = route.ShortestPath(n, link(t, n, 4), node(t, n, 2), "bus")
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 6, 1}, res.Journeys[0].Driving.RoadIds)
}

func TestParseResponse(t *testing.T) {
	n := testNetwork(t)
	r, err := route.ParseResponse(n, `{"journeys":[{"type":"JOURNEY_TYPE_DRIVING","driving":{"roadIds":[1,3,5],"eta":42}}]}`)
	require.NoError(t, err)
	assert.Equal(t, []entity.LinkID{link(t, n, 1), link(t, n, 3), link(t, n, 5)}, r.Links())
	assert.Equal(t, 42.0, r.Eta())

	data, err := route.MarshalResponse(r)
	require.NoError(t, err)
	again, err := route.ParseResponse(n, data)
	require.NoError(t, err)
	assert.Equal(t, r.Links(), again.Links())

	_, err = route.ParseResponse(n, `{"journeys":[{"type":"JOURNEY_TYPE_WALKING"}]}`)
	assert.Error(t, err)
	_, err = route.ParseResponse(n, `{"journeys":[]}`)
	assert.Error(t, err)
	_, err = route.ParseResponse(n, `not json`)
	assert.Error(t, err)
}
