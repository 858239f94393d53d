/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"container/heap"
	"container/list"
	"time"
)

// priorityQueues holds one FIFO queue per tier.
// It's not safe for concurrent use, the Scheduler guards it with its mutex.
type priorityQueues struct {
	tiers [numPriorities]*list.List
}

func newPriorityQueues() *priorityQueues {
	pq := &priorityQueues{}
	for i := range pq.tiers {
		pq.tiers[i] = list.New()
	}
	return pq
}

func (pq *priorityQueues) tier(p Priority) *list.List {
	return pq.tiers[p-minPriority]
}

// enqueue appends req to the tail of its tier.
func (pq *priorityQueues) enqueue(req *queuedRequest) {
	pq.tier(req.priority).PushBack(req)
}

// pushFront inserts req at the head of its tier.
func (pq *priorityQueues) pushFront(req *queuedRequest) {
	pq.tier(req.priority).PushFront(req)
}

// dequeueNext pops the head of the highest non-empty tier.
func (pq *priorityQueues) dequeueNext() *queuedRequest {
	for _, p := range Priorities {
		q := pq.tier(p)
		if elem := q.Front(); elem != nil {
			return q.Remove(elem).(*queuedRequest)
		}
	}
	return nil
}

func (pq *priorityQueues) len(p Priority) int {
	return pq.tier(p).Len()
}

func (pq *priorityQueues) total() int {
	n := 0
	for _, q := range pq.tiers {
		n += q.Len()
	}
	return n
}

// drain removes all requests, highest tier first.
func (pq *priorityQueues) drain() []*queuedRequest {
	var drained []*queuedRequest
	for _, p := range Priorities {
		q := pq.tier(p)
		for elem := q.Front(); elem != nil; elem = elem.Next() {
			drained = append(drained, elem.Value.(*queuedRequest))
		}
		q.Init()
	}
	return drained
}

type pendingRetry struct {
	due time.Time
	req *queuedRequest
}

// retryHeap is a min-heap of delayed re-insertions ordered by due time.
type retryHeap []pendingRetry

func (h retryHeap) Len() int { return len(h) }

func (h retryHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].req.seq < h[j].req.seq
	}
	return h[i].due.Before(h[j].due)
}

func (h retryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *retryHeap) Push(x interface{}) {
	*h = append(*h, x.(pendingRetry))
}

func (h *retryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = pendingRetry{}
	*h = old[:n-1]
	return item
}

func (h *retryHeap) schedule(req *queuedRequest, due time.Time) {
	heap.Push(h, pendingRetry{due: due, req: req})
}

// popDue removes and returns all requests due at or before now, earliest first.
func (h *retryHeap) popDue(now time.Time) []*queuedRequest {
	var due []*queuedRequest
	for h.Len() > 0 && !(*h)[0].due.After(now) {
		due = append(due, heap.Pop(h).(pendingRetry).req)
	}
	return due
}

// nextDue returns the earliest due time or zero time if the heap is empty.
func (h retryHeap) nextDue() time.Time {
	if len(h) == 0 {
		return time.Time{}
	}
	return h[0].due
}

func (h *retryHeap) drain() []*queuedRequest {
	drained := make([]*queuedRequest, 0, h.Len())
	for _, item := range *h {
		drained = append(drained, item.req)
	}
	*h = (*h)[:0]
	return drained
}
