package container

import (
	"sync"
)

// IIncrementalItem 记录自身在IncrementalArray中下标的元素
type IIncrementalItem interface {
	Index() int
	SetIndex(index int)
}

// IncrementalItemBase 可嵌入的IIncrementalItem实现
type IncrementalItemBase struct {
	index int
}

func (b *IncrementalItemBase) Index() int {
	return b.index
}

func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 延迟增删的数组
// 功能：Update阶段可以并发登记增删，Prepare阶段统一生效
// 说明：删除时用新增元素或末尾元素填补空位，元素顺序不保证稳定
type IncrementalArray[T IIncrementalItem] struct {
	data   []T
	add    []T
	remove []T
	mtx    sync.Mutex
}

func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{}
}

func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 已生效的数据，调用方不应修改
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Add 登记新增，Prepare时生效
func (a *IncrementalArray[T]) Add(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.add = append(a.add, value)
}

// Remove 登记删除，Prepare时生效；同一元素不能重复登记
func (a *IncrementalArray[T]) Remove(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.remove = append(a.remove, value)
}

// Prepare 执行登记的增删
// 算法说明：
// 1. 被删除元素的位置优先由新增元素填补
// 2. 新增较多时剩余元素追加到末尾
// 3. 删除较多时剩余空位用末尾的有效元素填补
func (a *IncrementalArray[T]) Prepare() {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	n := min(len(a.add), len(a.remove))
	for i := 0; i < n; i++ {
		ind := a.remove[i].Index()
		a.data[ind] = a.add[i]
		a.data[ind].SetIndex(ind)
	}
	for _, x := range a.add[n:] {
		x.SetIndex(len(a.data))
		a.data = append(a.data, x)
	}
	if rest := a.remove[n:]; len(rest) > 0 {
		keep := len(a.data) - len(rest)
		removed := make(map[int]struct{}, len(rest))
		for _, x := range rest {
			removed[x.Index()] = struct{}{}
		}
		// 末尾len(rest)个位置中仍然有效的元素，数量等于前部的空位数
		fillers := make([]T, 0, len(rest))
		for i := keep; i < len(a.data); i++ {
			if _, ok := removed[i]; !ok {
				fillers = append(fillers, a.data[i])
			}
		}
		for _, x := range rest {
			if ind := x.Index(); ind < keep {
				a.data[ind] = fillers[0]
				a.data[ind].SetIndex(ind)
				fillers = fillers[1:]
			}
		}
		a.data = a.data[:keep]
	}
	a.add = a.add[:0]
	a.remove = a.remove[:0]
}
