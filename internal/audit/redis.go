package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamSink appends entries to a redis stream.
type StreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamSink(client *redis.Client, stream string, maxLen int64) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *StreamSink) Write(ctx context.Context, entry Entry) error {
	values, err := streamValues(entry)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

func streamValues(entry Entry) (map[string]interface{}, error) {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return map[string]interface{}{
		"room":      entry.RoomID,
		"action":    string(entry.Action),
		"payload":   string(payload),
		"timestamp": entry.Timestamp.UTC().Format(time.RFC3339Nano),
	}, nil
}
