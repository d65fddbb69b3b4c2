// 随机数引擎，包装了golang.org/x/exp/rand，每辆车持有独立的引擎以保证结果可复现
package randengine

import (
	"flag"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset")
)

// Engine 随机数引擎（非线程安全，每个引擎只在一个goroutine中使用）
type Engine struct {
	*rand.Rand
}

// New 创建随机数引擎，实际种子为seed加上命令行的种子偏移量
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// Fork 为编号id的实体派生独立的引擎
// 说明：派生结果只取决于全局种子与id，与实体的创建顺序无关
func Fork(seed uint64, id int32) *Engine {
	// splitmix64常数，把相邻的id打散
	return New(seed ^ (uint64(id)+1)*0x9e3779b97f4a7c15)
}

// DiscreteDistribution 按权重抽样下标
// 参数：weight-非负权重，至少有一个为正
// 返回：[0, len(weight))内的下标
// 算法说明：在[0, 总权重)内均匀取值，返回累积权重第一个超过该值的下标
func (e *Engine) DiscreteDistribution(weight []float64) int32 {
	total := .0
	for _, w := range weight {
		total += w
	}
	random := total * e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > random {
			return int32(i)
		}
	}
	// 浮点误差
	return int32(len(weight) - 1)
}

// PTrue 以概率p返回true
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}
