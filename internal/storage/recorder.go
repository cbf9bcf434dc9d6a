package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/palemoky/for-sale/internal/session"
)

const (
	defaultQueueSize = 64
	writeTimeout     = 2 * time.Second
)

// Sink 归档写入端，由 *SnapshotArchive 实现
type Sink interface {
	Record(ctx context.Context, snap session.Snapshot) error
	Forget(ctx context.Context, roomID string) error
}

type job struct {
	snap   session.Snapshot
	forget string
}

// Recorder 异步写入归档，实现 session.Archive
//
// 队列满时丢弃并记录日志，调用方永远不会阻塞在 Redis 上。
type Recorder struct {
	sink Sink
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

// NewRecorder 创建并启动写入协程
func NewRecorder(sink Sink, queueSize int, log zerolog.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	r := &Recorder{
		sink:  sink,
		log:   log.With().Str("component", "archive").Logger(),
		queue: make(chan job, queueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record 排队归档快照
func (r *Recorder) Record(snap session.Snapshot) {
	r.enqueue(job{snap: snap})
}

// Forget 排队删除房间归档，与之前的写入保持顺序
func (r *Recorder) Forget(roomID string) {
	r.enqueue(job{forget: roomID})
}

func (r *Recorder) enqueue(j job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- j:
	default:
		r.log.Warn().Str("room_id", j.roomID()).Msg("archive queue full, dropping")
	}
}

func (j job) roomID() string {
	if j.forget != "" {
		return j.forget
	}
	return j.snap.RoomID
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for j := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		var err error
		if j.forget != "" {
			err = r.sink.Forget(ctx, j.forget)
		} else {
			err = r.sink.Record(ctx, j.snap)
		}
		cancel()
		if err != nil {
			r.log.Warn().Err(err).Str("room_id", j.roomID()).Msg("archive write failed")
		}
	}
}

// Close 停止接收并等待队列写完
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}
