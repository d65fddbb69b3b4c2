package tactical

import "errors"

var (
	// ErrNetworkInconsistency 路网与路线不一致：分叉处没有可用的后续路段，或路线无法给出下一路段
	ErrNetworkInconsistency = errors.New("network inconsistency")
	// ErrUnreachableLane 当前车道即将消失，且两侧都没有可合法进入的车道
	ErrUnreachableLane = errors.New("unreachable lane")
	// ErrPath 变道后无法构建前方路径
	ErrPath = errors.New("path failure")
)
