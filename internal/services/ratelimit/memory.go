package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const shardCount = 64

type window struct {
	admitted []time.Time
	span     time.Duration
}

// prune drops admitted entries at or beyond span before now
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.admitted) && !w.admitted[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.admitted = append(w.admitted[:0], w.admitted[i:]...)
	}
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*window
}

// MemoryLimiter keeps windows in process memory. Keys are spread over
// independently locked shards so updates to one key never race and unrelated
// keys rarely contend.
type MemoryLimiter struct {
	shards [shardCount]*shard
	now    func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewMemoryLimiter creates an in-process limiter. now may be nil.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	l := &MemoryLimiter{now: now, stopChan: make(chan struct{})}
	for i := range l.shards {
		l.shards[i] = &shard{windows: make(map[string]*window)}
	}
	return l
}

var _ Limiter = (*MemoryLimiter)(nil)

func (l *MemoryLimiter) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}

// Allow records an attempt for key if fewer than limit were admitted in the
// trailing window
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, span time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	now := l.now()
	s := l.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = &window{}
		s.windows[key] = w
	}
	w.span = span
	w.prune(now)

	if len(w.admitted) >= limit {
		return false, nil
	}
	w.admitted = append(w.admitted, now)
	return true, nil
}

// Evict drops keys whose admitted attempts have all aged out of their window
func (l *MemoryLimiter) Evict(now time.Time) int {
	evicted := 0
	for _, s := range l.shards {
		s.mu.Lock()
		for key, w := range s.windows {
			w.prune(now)
			if len(w.admitted) == 0 {
				delete(s.windows, key)
				evicted++
			}
		}
		s.mu.Unlock()
	}
	return evicted
}

// Len returns the number of tracked keys
func (l *MemoryLimiter) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += len(s.windows)
		s.mu.Unlock()
	}
	return n
}

// Start runs Evict every interval until Stop is called
func (l *MemoryLimiter) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := l.Evict(l.now()); n > 0 {
					logrus.WithField("evicted", n).Debug("Rate limiter evicted idle keys")
				}
			case <-l.stopChan:
				return
			}
		}
	}()
	logrus.WithField("interval", interval).Info("Rate limiter janitor started")
}

// Stop halts the janitor and waits for it to exit
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
		if l.done != nil {
			<-l.done
		}
	})
}
