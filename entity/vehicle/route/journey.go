package route

import (
	"errors"
	"fmt"

	routingv2 "git.fiblab.net/sim/protos/v2/go/city/routing/v2"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/entity/network"
	"google.golang.org/protobuf/encoding/protojson"
)

// FromJourney 由单个驾车Journey创建固定路线
// 说明：Journey中的road_ids对应路网中的路段ID
func FromJourney(net *network.Network, pb *routingv2.Journey) (*Fixed, error) {
	if pb.GetType() != routingv2.JourneyType_JOURNEY_TYPE_DRIVING {
		return nil, fmt.Errorf("route: unsupported journey type %v", pb.GetType())
	}
	if pb.GetDriving() == nil || len(pb.GetDriving().GetRoadIds()) == 0 {
		return nil, errors.New("route: driving journey without roads")
	}
	return FromLinkIDs(net, pb.Driving.RoadIds, pb.Driving.Eta)
}

// FromResponse 由routing服务的GetRouteResponse创建固定路线
// 返回：只接受恰好一个驾车Journey的结果
func FromResponse(net *network.Network, res *routingv2.GetRouteResponse) (*Fixed, error) {
	if len(res.GetJourneys()) != 1 {
		return nil, fmt.Errorf("route: expect 1 journey, got %d", len(res.GetJourneys()))
	}
	return FromJourney(net, res.Journeys[0])
}

// ParseResponse 解析protojson格式的GetRouteResponse并创建固定路线
func ParseResponse(net *network.Network, data string) (*Fixed, error) {
	res := &routingv2.GetRouteResponse{}
	if err := protojson.Unmarshal([]byte(data), res); err != nil {
		return nil, fmt.Errorf("route: bad journey: %w", err)
	}
	return FromResponse(net, res)
}

// MarshalResponse 把路线输出为protojson格式的GetRouteResponse
func MarshalResponse(r *Fixed) (string, error) {
	data, err := protojson.Marshal(&routingv2.GetRouteResponse{
		Journeys: []*routingv2.Journey{r.ToPb()},
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
