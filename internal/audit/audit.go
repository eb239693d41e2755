// Package audit forwards room log entries to external sinks. Room state never
// depends on a sink: entries are appended to the room first and forwarded
// afterwards on a best-effort basis.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thereayou/nezako-tabletop/internal/models"
)

// Entry is a log entry tagged with the room it belongs to.
type Entry struct {
	RoomID string
	models.LogEntry
}

// Sink receives forwarded entries.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

const sinkTimeout = 5 * time.Second

// Forwarder queues entries and delivers them to every sink in enqueue order
// from a single goroutine.
type Forwarder struct {
	queue  chan Entry
	sinks  []Sink
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewForwarder(buffer int, logger *slog.Logger, sinks ...Sink) *Forwarder {
	if buffer <= 0 {
		buffer = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Forwarder{
		queue:  make(chan Entry, buffer),
		sinks:  sinks,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Enqueue never blocks. Entries are dropped when the queue is full.
func (f *Forwarder) Enqueue(entry Entry) {
	if len(f.sinks) == 0 {
		return
	}
	select {
	case f.queue <- entry:
	default:
		f.logger.Warn("audit queue full, dropping entry",
			slog.String("room", entry.RoomID),
			slog.String("action", string(entry.Action)))
	}
}

// Run delivers queued entries until Stop is called.
func (f *Forwarder) Run() {
	defer close(f.done)
	for {
		select {
		case <-f.ctx.Done():
			f.drain()
			return
		case entry := <-f.queue:
			f.deliver(entry)
		}
	}
}

// Stop flushes what is already queued and waits for Run to return.
func (f *Forwarder) Stop() {
	f.once.Do(f.cancel)
	<-f.done
}

func (f *Forwarder) drain() {
	for {
		select {
		case entry := <-f.queue:
			f.deliver(entry)
		default:
			return
		}
	}
}

func (f *Forwarder) deliver(entry Entry) {
	for _, sink := range f.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := sink.Write(ctx, entry); err != nil {
			f.logger.Error("audit sink write",
				slog.String("room", entry.RoomID),
				slog.String("action", string(entry.Action)),
				slog.String("error", err.Error()))
		}
		cancel()
	}
}
