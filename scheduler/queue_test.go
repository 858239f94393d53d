/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPriorityQueues(t *testing.T) {
	pq := newPriorityQueues()
	require.Nil(t, pq.dequeueNext())

	var seq uint64
	newReq := func(p Priority) *queuedRequest {
		seq++
		return &queuedRequest{seq: seq, priority: p}
	}
	low1, low2 := newReq(PriorityLow), newReq(PriorityLow)
	high1, high2 := newReq(PriorityHigh), newReq(PriorityHigh)
	retried := newReq(PriorityLow)

	pq.enqueue(low1)
	pq.enqueue(high1)
	pq.enqueue(low2)
	pq.enqueue(high2)
	pq.pushFront(retried)
	require.Equal(t, 5, pq.total())
	require.Equal(t, 3, pq.len(PriorityLow))
	require.Equal(t, 0, pq.len(PriorityCritical))

	var order []*queuedRequest
	for req := pq.dequeueNext(); req != nil; req = pq.dequeueNext() {
		order = append(order, req)
	}
	require.Equal(t, []*queuedRequest{high1, high2, retried, low1, low2}, order)
	require.Zero(t, pq.total())

	pq.enqueue(low1)
	pq.enqueue(high1)
	require.Equal(t, []*queuedRequest{high1, low1}, pq.drain())
	require.Zero(t, pq.total())
}

func TestRetryHeap(t *testing.T) {
	var h retryHeap
	require.True(t, h.nextDue().IsZero())

	now := time.Now()
	r1 := &queuedRequest{seq: 1}
	r2 := &queuedRequest{seq: 2}
	r3 := &queuedRequest{seq: 3}
	h.schedule(r3, now.Add(30*time.Millisecond))
	h.schedule(r2, now.Add(10*time.Millisecond))
	h.schedule(r1, now.Add(10*time.Millisecond))

	require.Equal(t, now.Add(10*time.Millisecond), h.nextDue())
	require.Empty(t, h.popDue(now))
	require.Equal(t, []*queuedRequest{r1, r2}, h.popDue(now.Add(20*time.Millisecond)))
	require.Equal(t, 1, h.Len())
	require.Equal(t, []*queuedRequest{r3}, h.drain())
	require.Zero(t, h.Len())
}
