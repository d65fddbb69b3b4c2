package input

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/config"
)

var log = logrus.WithField("module", "input")

// Load 读取并校验配置
// 功能：从文件或Base64编码的数据加载YAML配置，并剔除起点无效的车辆
// 参数：path-配置文件路径，data-Base64编码的配置（path为空时使用）
// 返回：校验后的配置
func Load(path, data string) (config.Config, error) {
	var file []byte
	var err error
	switch {
	case path != "":
		if file, err = os.ReadFile(path); err != nil {
			return config.Config{}, fmt.Errorf("config file load err: %w", err)
		}
	case data != "":
		if file, err = base64.StdEncoding.DecodeString(data); err != nil {
			return config.Config{}, fmt.Errorf("config data load err: %w", err)
		}
	default:
		return config.Config{}, errors.New("config file or config data must be specified")
	}
	c, err := config.Parse(file)
	if err != nil {
		return c, err
	}
	c.Vehicles = FilterVehicles(c.Network, c.Vehicles)
	return c, nil
}

// FilterVehicles 剔除起点无效的车辆
// 说明：起点车道不存在，或车道不允许该类型通行时，记录警告并跳过该车辆
func FilterVehicles(n config.Network, vehicles []config.Vehicle) []config.Vehicle {
	lanes := make(map[int32]config.Lane)
	for _, link := range n.Links {
		for _, lane := range link.Lanes {
			lanes[lane.ID] = lane
		}
	}
	return lo.Filter(vehicles, func(v config.Vehicle, _ int) bool {
		if ok := checkPositionValid(lanes, v); !ok {
			log.Warnf("skip vehicle %d with invalid position lane=%d type=%s", v.ID, v.Lane, v.Type)
			return false
		}
		return true
	})
}

// checkPositionValid 起点车道存在且允许该类型通行
func checkPositionValid(lanes map[int32]config.Lane, v config.Vehicle) bool {
	lane, ok := lanes[v.Lane]
	if !ok {
		return false
	}
	return len(lane.GTUTypes) == 0 || lo.Contains(lane.GTUTypes, v.Type)
}
