// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Job 定时任务，Interval > 0 时周期重复
type Job struct {
	Id       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type jobQueue []*Job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x interface{}) {
	n := len(*q)
	job := x.(*Job)
	job.index = n
	*q = append(*q, job)
}

func (q *jobQueue) Pop() interface{} {
	old := *q
	n := len(old)
	job := old[n-1]
	job.index = -1
	*q = old[0 : n-1]
	return job
}

// Scheduler 小根堆定时器，驱动房间回收等后台任务
type Scheduler struct {
	queue   jobQueue
	mutex   sync.Mutex
	nextId  int64
	trigger chan *Job
	done    chan struct{}
	once    sync.Once
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		queue:   make(jobQueue, 0),
		trigger: make(chan *Job, 1000),
		nextId:  1,
		done:    make(chan struct{}),
	}
	heap.Init(&s.queue)
	go s.process()
	return s
}

func (s *Scheduler) Schedule(delay time.Duration, interval time.Duration, callback func()) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job := &Job{
		Id:       s.nextId,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	s.nextId++

	heap.Push(&s.queue, job)
	return job.Id
}

func (s *Scheduler) Cancel(jobId int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, job := range s.queue {
		if job.Id == jobId {
			heap.Remove(&s.queue, i)
			break
		}
	}
}

// Stop 停掉调度循环，已入队未触发的回调不再执行
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Scheduler) process() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return

		case <-ticker.C:
			s.mutex.Lock()
			now := time.Now()

			for s.queue.Len() > 0 {
				job := s.queue[0]
				if job.Execute.After(now) {
					break
				}

				heap.Pop(&s.queue)
				s.trigger <- job

				if job.Interval > 0 {
					job.Execute = now.Add(job.Interval)
					heap.Push(&s.queue, job)
				}
			}
			s.mutex.Unlock()

		case job := <-s.trigger:
			go job.Callback()
		}
	}
}
