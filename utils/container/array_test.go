package container_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/container"
)

type element struct {
	container.IncrementalItemBase
	id int
}

func ids(a *container.IncrementalArray[*element]) []int {
	return lo.Map(a.Data(), func(e *element, _ int) int { return e.id })
}

func checkIndex(t *testing.T, a *container.IncrementalArray[*element]) {
	t.Helper()
	for i, e := range a.Data() {
		assert.Equal(t, i, e.Index())
	}
}

func TestIncrementalArray(t *testing.T) {
	a := container.NewIncrementalArray[*element]()
	es := lo.Times(6, func(i int) *element { return &element{id: i} })
	for _, e := range es[:5] {
		a.Add(e)
	}
	// 生效前不可见
	assert.Equal(t, 0, a.Len())
	a.Prepare()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ids(a))
	checkIndex(t, a)

	// 增删数量相同：原位替换
	a.Remove(es[1])
	a.Add(es[5])
	a.Prepare()
	assert.Equal(t, []int{0, 5, 2, 3, 4}, ids(a))
	checkIndex(t, a)

	// 删除较多，包括末尾元素
	a.Remove(es[0])
	a.Remove(es[4])
	a.Remove(es[5])
	a.Prepare()
	assert.ElementsMatch(t, []int{2, 3}, ids(a))
	checkIndex(t, a)

	a.Remove(es[2])
	a.Remove(es[3])
	a.Prepare()
	assert.Equal(t, 0, a.Len())
}
