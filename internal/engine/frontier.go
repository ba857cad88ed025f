package engine

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Visit priorities. Lower values are dequeued first.
const (
	PrioritySeed       = 0
	PriorityDiscovered = 1
)

// Request is a queued page visit.
type Request struct {
	URL      string
	Parent   string
	Priority int

	seq uint64
}

// Frontier is a thread-safe priority queue of visit requests. Requests of
// equal priority come out in the order they were pushed.
type Frontier struct {
	mu     sync.Mutex
	pq     priorityQueue
	seq    uint64
	closed bool
}

// NewFrontier creates a new Frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		pq: make(priorityQueue, 0, 256),
	}
	heap.Init(&f.pq)
	return f
}

// Push adds a request to the frontier. It reports false when the frontier is closed.
func (f *Frontier) Push(req *Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.seq++
	req.seq = f.seq
	heap.Push(&f.pq, &pqItem{request: req})
	return true
}

// Pop removes and returns the highest-priority request.
// Blocks until a request is available or the frontier is closed.
// Returns nil if the frontier is closed and empty or ctx is done.
func (f *Frontier) Pop(ctx context.Context) *Request {
	for {
		if req := f.TryPop(); req != nil {
			return req
		}
		if f.IsClosed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// TryPop attempts a non-blocking dequeue. Returns nil if empty.
func (f *Frontier) TryPop() *Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pq.Len() == 0 {
		return nil
	}
	return heap.Pop(&f.pq).(*pqItem).request
}

// Len returns the number of requests in the frontier.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pq.Len()
}

// Close closes the frontier. Queued requests can still be popped.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// IsClosed returns true if the frontier has been closed.
func (f *Frontier) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Drain returns all remaining requests, removing them from the queue.
func (f *Frontier) Drain() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	requests := make([]*Request, 0, f.pq.Len())
	for f.pq.Len() > 0 {
		requests = append(requests, heap.Pop(&f.pq).(*pqItem).request)
	}
	return requests
}

// --- Priority Queue Implementation ---

type pqItem struct {
	request *Request
	index   int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i].request, pq[j].request
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.seq < b.seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pqItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // GC
	item.index = -1
	*pq = old[:n-1]
	return item
}
