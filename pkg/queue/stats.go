package queue

import (
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/config"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// Stats tracks how long claimed tickets waited in the queue, over a fixed
// size sliding window.
type Stats struct {
	avgWaitDuration time.Duration

	waitDurationQueue *linkedlistqueue.Queue
	windowSize        int
}

func ProvideStats() *Stats {
	return &Stats{
		avgWaitDuration:   time.Duration(*config.CFG.InitAvgWaitSeconds) * time.Second,
		waitDurationQueue: linkedlistqueue.New(),
		windowSize:        *config.CFG.AverageWaitWindowSize,
	}
}

func (s *Stats) RecordWait(waitDuration time.Duration) {
	if s.waitDurationQueue.Size() >= s.windowSize {
		s.waitDurationQueue.Dequeue()
	}
	s.waitDurationQueue.Enqueue(waitDuration)

	it := s.waitDurationQueue.Iterator()
	var totalWaitDuration time.Duration
	for it.Next() {
		totalWaitDuration += it.Value().(time.Duration)
	}
	s.avgWaitDuration = totalWaitDuration / time.Duration(s.waitDurationQueue.Size())
}

func (s *Stats) AvgWait() time.Duration {
	return s.avgWaitDuration
}
