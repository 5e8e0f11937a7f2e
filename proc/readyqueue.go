package proc

import "github.com/nekogakure/litecore/res"

// readyQueue is a FIFO of Ready tids, intrusive via Task.next so no
// separate node allocation is needed. head/tail are -1 when empty.
type readyQueue struct {
	head, tail int
}

func newReadyQueue() *readyQueue {
	return &readyQueue{head: -1, tail: -1}
}

func (q *readyQueue) empty() bool { return q.head == -1 }

func (q *readyQueue) pushBack(tasks *res.Arena[Task], tid int) {
	t, ok := tasks.Get(tid)
	if !ok {
		panic("proc: pushBack of unknown tid")
	}
	t.next = -1
	if q.tail == -1 {
		q.head = tid
		q.tail = tid
		return
	}
	tail, _ := tasks.Get(q.tail)
	tail.next = tid
	q.tail = tid
}

func (q *readyQueue) popFront(tasks *res.Arena[Task]) (int, bool) {
	if q.head == -1 {
		return -1, false
	}
	tid := q.head
	t, _ := tasks.Get(tid)
	q.head = t.next
	if q.head == -1 {
		q.tail = -1
	}
	t.next = -1
	return tid, true
}
