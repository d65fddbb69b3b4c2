package container

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// IHasVAndLength 链表元素需要提供速度与长度
type IHasVAndLength interface {
	V() float64
	Length() float64
}

// ListNode 按S升序排列的双向链表节点
type ListNode[T IHasVAndLength] struct {
	parent     *List[T]
	prev, next *ListNode[T]
	S          float64 // 键值，车辆为车头在车道上的位置
	Value      T
}

func (n *ListNode[T]) String() string {
	return fmt.Sprintf("Node{S:%v, Value:%+v}", n.S, n.Value)
}

// Prev 后方（S更小）的节点
func (n *ListNode[T]) Prev() *ListNode[T] {
	return n.prev
}

// Next 前方（S更大）的节点
func (n *ListNode[T]) Next() *ListNode[T] {
	return n.next
}

func (n *ListNode[T]) Parent() *List[T] {
	return n.parent
}

func (n *ListNode[T]) V() float64 {
	return n.Value.V()
}

func (n *ListNode[T]) L() float64 {
	return n.Value.Length()
}

func (n *ListNode[T]) insertBefore(add *ListNode[T]) {
	add.parent = n.parent
	add.next = n
	add.prev = n.prev
	n.prev = add
	if add.prev != nil {
		add.prev.next = add
	} else {
		add.parent.head = add
	}
	n.parent.length++
}

// List 车道上的车辆链表
// 功能：按S升序保存车道上的车辆，用于查找前车与后车
// 说明：只在Prepare阶段修改，规划阶段并发只读
type List[T IHasVAndLength] struct {
	ID         string
	head, tail *ListNode[T]
	length     int
}

func (l *List[T]) String() string {
	return fmt.Sprintf("List{ID:%v, len:%d}", l.ID, l.length)
}

// Keys 全部节点的S
func (l *List[T]) Keys() []float64 {
	keys := make([]float64, 0, l.length)
	for node := l.head; node != nil; node = node.next {
		keys = append(keys, node.S)
	}
	return keys
}

// Values 全部节点的值
func (l *List[T]) Values() []T {
	values := make([]T, 0, l.length)
	for node := l.head; node != nil; node = node.next {
		values = append(values, node.Value)
	}
	return values
}

func (l *List[T]) Len() int {
	return l.length
}

func (l *List[T]) First() *ListNode[T] {
	return l.head
}

func (l *List[T]) Last() *ListNode[T] {
	return l.tail
}

// PushBack 追加到尾部，不检查顺序
func (l *List[T]) PushBack(add *ListNode[T]) {
	if add.parent != nil {
		logrus.Panicf("container: push %v which is already in %v", add, add.parent)
	}
	add.parent = l
	add.prev = l.tail
	add.next = nil
	if l.tail != nil {
		l.tail.next = add
	} else {
		l.head = add
	}
	l.tail = add
	l.length++
}

// Insert 按S插入到合适位置，S相同的节点插入到已有节点之后
func (l *List[T]) Insert(add *ListNode[T]) {
	if add.parent != nil {
		logrus.Panicf("container: insert %v which is already in %v", add, add.parent)
	}
	for node := l.head; node != nil; node = node.next {
		if node.S > add.S {
			node.insertBefore(add)
			return
		}
	}
	l.PushBack(add)
}

// Remove 移除节点
func (l *List[T]) Remove(node *ListNode[T]) {
	if node.parent != l {
		logrus.Panicf("container: remove %v from wrong list %v", node, l)
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	node.parent = nil
	l.length--
}

// PopUnsorted 移除所有S小于前一节点的节点
func (l *List[T]) PopUnsorted() (unsorted []*ListNode[T]) {
	for node := l.head; node != nil; {
		next := node.next
		if node.prev != nil && node.prev.S > node.S {
			l.Remove(node)
			unsorted = append(unsorted, node)
		}
		node = next
	}
	return unsorted
}

// Merge 批量按S插入
func (l *List[T]) Merge(adds []*ListNode[T]) {
	slices.SortStableFunc(adds, func(a, b *ListNode[T]) int { return cmp.Compare(a.S, b.S) })
	node := l.head
	for _, add := range adds {
		for node != nil && node.S <= add.S {
			node = node.next
		}
		if node != nil {
			node.insertBefore(add)
		} else {
			l.PushBack(add)
		}
	}
}

// Resort 车辆前进后恢复S的升序
func (l *List[T]) Resort() {
	l.Merge(l.PopUnsorted())
}

// Ahead 第一个S大于s的节点
func (l *List[T]) Ahead(s float64) *ListNode[T] {
	for node := l.head; node != nil; node = node.next {
		if node.S > s {
			return node
		}
	}
	return nil
}

// Behind 最后一个S小于s的节点
func (l *List[T]) Behind(s float64) *ListNode[T] {
	for node := l.tail; node != nil; node = node.prev {
		if node.S < s {
			return node
		}
	}
	return nil
}
