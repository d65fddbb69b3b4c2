package container

import "container/heap"

type item[T any] struct {
	value    T
	priority float64
}

// minHeap 按priority排列的最小堆，实现heap.Interface
type minHeap[T any] []item[T]

func (h minHeap[T]) Len() int           { return len(h) }
func (h minHeap[T]) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h minHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap[T]) Push(x any) {
	*h = append(*h, x.(item[T]))
}

func (h *minHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	var zero item[T]
	old[n-1] = zero // 释放引用
	*h = old[:n-1]
	return it
}

// PriorityQueue 优先队列，priority越小越先出队
// 说明：不支持修改已入队元素的优先级，最短路搜索中重复入队、出队时跳过已处理的元素
type PriorityQueue[T any] struct {
	h minHeap[T]
}

func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{h: make(minHeap[T], 0)}
}

func (q *PriorityQueue[T]) Len() int {
	return len(q.h)
}

// First 查看队首元素，队列为空时panic
func (q *PriorityQueue[T]) First() (T, float64) {
	return q.h[0].value, q.h[0].priority
}

// HeapPush 入队
func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.h, item[T]{value: value, priority: priority})
}

// HeapPop 出队，返回优先级最小的元素
func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	it := heap.Pop(&q.h).(item[T])
	return it.value, it.priority
}
