package config

type ControlStep struct {
	Start    int32   `yaml:"start" validate:"gte=0"`    // 开始步数
	Total    int32   `yaml:"total" validate:"gt=0"`     // 总步数
	Interval float64 `yaml:"interval" validate:"gt=0"` // 每步的时间间隔
}

type Control struct {
	Step ControlStep `yaml:"step"`
	Seed uint64      `yaml:"seed,omitempty"` // 随机数种子
}

// Tactical 战术规划参数
type Tactical struct {
	TimeHorizon   float64  `yaml:"time_horizon,omitempty" validate:"gte=0"`             // 路线适宜性前瞻时间（秒）
	Lookahead     float64  `yaml:"lookahead,omitempty" validate:"gte=0"`                // 前方路径构建距离（米）
	DriftingSpeed *float64 `yaml:"drifting_speed,omitempty" validate:"omitempty,gte=0"` // 视为静止的速度阈值（米/秒）
	HardVeto      *float64 `yaml:"hard_veto,omitempty" validate:"omitempty,lte=0"`      // 变道激励硬否决阈值（米/秒²）
	PreferredSide string   `yaml:"preferred_side,omitempty" validate:"omitempty,oneof=left right"`
	MaxWalkSteps  int      `yaml:"max_walk_steps,omitempty" validate:"gte=0"` // 单次前向遍历的最大步数

	// 以下参数的0是有效取值，未配置（nil）时才使用默认值
	StayIncentive         *float64 `yaml:"stay_incentive,omitempty"`
	PreferredIncentive    *float64 `yaml:"preferred_incentive,omitempty"`
	NonPreferredIncentive *float64 `yaml:"non_preferred_incentive,omitempty"`
}

// CarFollowing IDM跟车模型参数
type CarFollowing struct {
	MaxA          float64 `yaml:"max_a,omitempty" validate:"gte=0"`
	UsualBrakingA float64 `yaml:"usual_braking_a,omitempty" validate:"lte=0"`
	MaxBrakingA   float64 `yaml:"max_braking_a,omitempty" validate:"lte=0"`
	MinGap        float64 `yaml:"min_gap,omitempty" validate:"gte=0"`
	Headway       float64 `yaml:"headway,omitempty" validate:"gte=0"`
}

// LaneChange MOBIL变道模型参数
type LaneChange struct {
	// 以下参数的0是有效取值，未配置（nil）时才使用默认值
	Politeness      *float64 `yaml:"politeness,omitempty" validate:"omitempty,gte=0,lte=1"`
	Threshold       *float64 `yaml:"threshold,omitempty" validate:"omitempty,gte=0"`
	SafeBrakingBias *float64 `yaml:"safe_braking_bias,omitempty" validate:"omitempty,gte=0"`
	MinInterval     *float64 `yaml:"min_interval,omitempty" validate:"omitempty,gte=0"` // 两次变道的最小间隔（秒）
	Duration        float64  `yaml:"duration,omitempty" validate:"gte=0"`               // 决策有效时长（秒）
}

type Node struct {
	ID int32   `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

type Lane struct {
	ID          int32              `yaml:"id"`
	MaxSpeed    float64            `yaml:"max_speed" validate:"gt=0"`                                 // 默认限速（米/秒）
	SpeedLimits map[string]float64 `yaml:"speed_limits,omitempty" validate:"omitempty,dive,keys,required,endkeys,gt=0"` // 按类型的限速
	GTUTypes    []string           `yaml:"gtu_types,omitempty"`                                       // 可通行类型，为空表示全部
	Successors  []int32            `yaml:"successors,omitempty"`                                      // 后继车道ID
	Sink        bool               `yaml:"sink,omitempty"`                                            // 车辆在车道末端离开路网
	Width       float64            `yaml:"width,omitempty" validate:"gte=0"`

	NoLeftChange  bool     `yaml:"no_left_change,omitempty"`  // 禁止向左变道（实线）
	NoRightChange bool     `yaml:"no_right_change,omitempty"` // 禁止向右变道（实线）
	ChangeTypes   []string `yaml:"change_types,omitempty"`    // 允许变道的类型，为空表示全部
}

type Link struct {
	ID           int32   `yaml:"id"`
	From         int32   `yaml:"from"`
	To           int32   `yaml:"to"`
	Length       float64 `yaml:"length,omitempty" validate:"gte=0"` // 为0时按节点坐标计算
	NonLaneBased bool    `yaml:"non_lane_based,omitempty"`
	Lanes        []Lane  `yaml:"lanes,omitempty" validate:"dive"` // 从左到右
}

type Phase struct {
	Duration float64  `yaml:"duration" validate:"gte=0"`
	States   []string `yaml:"states" validate:"dive,oneof=red yellow green"` // 与Lanes一一对应
}

type TrafficLight struct {
	Node      int32   `yaml:"node"`
	Lanes     []int32 `yaml:"lanes" validate:"min=1"`
	Phases    []Phase `yaml:"phases" validate:"min=1,dive"`
	Algorithm string  `yaml:"algorithm,omitempty" validate:"omitempty,oneof=fixed max_pressure"` // 为空表示fixed；max_pressure忽略相位时长
}

type Network struct {
	Nodes         []Node         `yaml:"nodes" validate:"min=1"`
	Links         []Link         `yaml:"links" validate:"min=1,dive"`
	TrafficLights []TrafficLight `yaml:"traffic_lights,omitempty" validate:"dive"`
}

// Route 车辆路线，三选一
type Route struct {
	Links       []int32 `yaml:"links,omitempty"`       // 固定路段序列
	Destination *int32  `yaml:"destination,omitempty"` // 目标节点，按最短自由流时间搜索
	Journey     string  `yaml:"journey,omitempty"`     // routing服务返回的GetRouteResponse（protojson）
}

type Vehicle struct {
	ID     int32   `yaml:"id"`
	Type   string  `yaml:"type" validate:"required"`
	Lane   int32   `yaml:"lane"`
	S      float64 `yaml:"s" validate:"gte=0"`
	V      float64 `yaml:"v" validate:"gte=0"`
	MaxV   float64 `yaml:"max_v" validate:"gte=0"`
	Length float64 `yaml:"length,omitempty" validate:"gte=0"`
	Route  Route   `yaml:"route"`
}

type Config struct {
	Control      Control      `yaml:"control"`                 // 模拟过程控制
	Tactical     Tactical     `yaml:"tactical,omitempty"`      // 战术规划
	CarFollowing CarFollowing `yaml:"car_following,omitempty"` // 跟车模型
	LaneChange   LaneChange   `yaml:"lane_change,omitempty"`   // 变道模型
	Network      Network      `yaml:"network"`                 // 路网
	Vehicles     []Vehicle    `yaml:"vehicles" validate:"dive"`
}
