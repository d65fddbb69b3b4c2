package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gopkg.in/yaml.v2"
)

// 默认参数
const (
	DefaultTimeHorizon   = 90.0  // 秒
	DefaultLookahead     = 250.0 // 米
	DefaultDriftingSpeed = 1e-3  // 米/秒
	DefaultHardVeto      = -10.0 // 米/秒²
	DefaultPreferredSide = "right"
	DefaultMaxWalkSteps  = 10000

	DefaultStayIncentive         = 0.1
	DefaultPreferredIncentive    = 0.3
	DefaultNonPreferredIncentive = -0.3

	DefaultPoliteness      = 0.1
	DefaultThreshold       = 0.1
	DefaultSafeBrakingBias = 1.0 // 米/秒²
	DefaultMinInterval     = 4.0 // 秒
)

var validate = validator.New()

// RuntimeConfig 运行时配置
// 功能：存储补全默认值之后的配置信息
// 说明：将YAML配置转换为运行时可用的配置对象
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置

	Tactical     Tactical
	CarFollowing CarFollowing
	LaneChange   LaneChange
}

// Parse 解析YAML配置并校验
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, fmt.Errorf("config unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate 按validate标签校验配置
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validate: %w", err)
	}
	return nil
}

// NewRuntimeConfig 根据配置初始化全局变量
// 功能：创建运行时配置对象，补全未设置的参数
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control
	rc.Tactical = config.Tactical.withDefaults()
	rc.CarFollowing = config.CarFollowing.withDefaults()
	rc.LaneChange = config.LaneChange.withDefaults()

	return rc
}

func orDefault(v, d float64) float64 {
	if v == 0 {
		return d
	}
	return v
}

// orDefaultPtr 只在未配置（nil）时使用默认值，显式配置的0保留
func orDefaultPtr(v *float64, d float64) *float64 {
	if v == nil {
		return lo.ToPtr(d)
	}
	return v
}

func (t Tactical) withDefaults() Tactical {
	t.TimeHorizon = orDefault(t.TimeHorizon, DefaultTimeHorizon)
	t.Lookahead = orDefault(t.Lookahead, DefaultLookahead)
	t.DriftingSpeed = orDefaultPtr(t.DriftingSpeed, DefaultDriftingSpeed)
	t.HardVeto = orDefaultPtr(t.HardVeto, DefaultHardVeto)
	if t.PreferredSide == "" {
		t.PreferredSide = DefaultPreferredSide
	}
	if t.MaxWalkSteps == 0 {
		t.MaxWalkSteps = DefaultMaxWalkSteps
	}
	t.StayIncentive = orDefaultPtr(t.StayIncentive, DefaultStayIncentive)
	t.PreferredIncentive = orDefaultPtr(t.PreferredIncentive, DefaultPreferredIncentive)
	t.NonPreferredIncentive = orDefaultPtr(t.NonPreferredIncentive, DefaultNonPreferredIncentive)
	return t
}

// 默认值参考城市道路小汽车的常用取值
func (c CarFollowing) withDefaults() CarFollowing {
	c.MaxA = orDefault(c.MaxA, 3)
	c.UsualBrakingA = orDefault(c.UsualBrakingA, -4.5)
	c.MaxBrakingA = orDefault(c.MaxBrakingA, -10)
	c.MinGap = orDefault(c.MinGap, 1)
	c.Headway = orDefault(c.Headway, 1.5)
	return c
}

func (l LaneChange) withDefaults() LaneChange {
	l.Politeness = orDefaultPtr(l.Politeness, DefaultPoliteness)
	l.Threshold = orDefaultPtr(l.Threshold, DefaultThreshold)
	l.SafeBrakingBias = orDefaultPtr(l.SafeBrakingBias, DefaultSafeBrakingBias)
	l.MinInterval = orDefaultPtr(l.MinInterval, DefaultMinInterval)
	l.Duration = orDefault(l.Duration, 0.5)
	return l
}
