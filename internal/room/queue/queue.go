// Package queue provides the FIFO hand-off buffer between player command
// handlers (many producers) and the car dispatch loop (one consumer).
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/gameon-rooms/carroom/internal/room/instruction"
)

// ErrFull is returned by Enqueue when a bounded queue is at capacity. The
// overflow policy is reject-new: dropping the oldest entry instead would
// tear a pulse train apart mid-flight.
var ErrFull = errors.New("instruction queue is full")

// Queue is a linearizable FIFO of car instructions. Enqueue never blocks and
// never drops silently; an admitted instruction stays until the consumer
// takes it or the process exits.
type Queue struct {
	mu       sync.Mutex
	items    []instruction.Instruction
	capacity int

	// signal wakes a blocked Dequeue. Capacity 1: a pending wake-up is enough.
	signal chan struct{}
}

// New creates a queue. capacity 0 means unbounded.
func New(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue appends an instruction. Returns ErrFull when a bounded queue is at
// capacity.
func (q *Queue) Enqueue(in instruction.Instruction) error {
	q.mu.Lock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.mu.Unlock()
		return ErrFull
	}
	q.items = append(q.items, in)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// TryDequeue removes and returns the oldest instruction, if any.
func (q *Queue) TryDequeue() (instruction.Instruction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return instruction.Instruction{}, false
	}

	in := q.items[0]
	q.items = q.items[1:]
	return in, true
}

// Dequeue blocks until an instruction is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (instruction.Instruction, error) {
	for {
		if in, ok := q.TryDequeue(); ok {
			return in, nil
		}

		select {
		case <-q.signal:
		case <-ctx.Done():
			return instruction.Instruction{}, ctx.Err()
		}
	}
}

// Len returns the number of queued instructions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
