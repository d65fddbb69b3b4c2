package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/randengine"
)

func TestDiscreteDistribution(t *testing.T) {
	e := randengine.New(1)
	for i := 0; i < 100; i++ {
		assert.Equal(t, int32(1), e.DiscreteDistribution([]float64{0, 2, 0}))
	}
	counts := [2]int{}
	for i := 0; i < 1000; i++ {
		counts[e.DiscreteDistribution([]float64{1, 3})]++
	}
	assert.Greater(t, counts[1], counts[0])
}

func TestFork(t *testing.T) {
	a, b := randengine.Fork(7, 1), randengine.Fork(7, 1)
	assert.Equal(t, a.Uint64(), b.Uint64())
	c := randengine.Fork(7, 2)
	assert.NotEqual(t, randengine.Fork(7, 1).Uint64(), c.Uint64())
	assert.False(t, a.PTrue(0))
	assert.True(t, a.PTrue(1))
}
