package processor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher queues uploaded photos for thumbnail generation.
type Publisher interface {
	Publish(ctx context.Context, photoIDs ...int64) error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (k *KafkaPublisher) Publish(ctx context.Context, photoIDs ...int64) error {
	const op = "processor.KafkaPublisher.Publish"

	if len(photoIDs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(photoIDs))
	for i, id := range photoIDs {
		v := []byte(strconv.FormatInt(id, 10))
		msgs[i] = kafka.Message{Key: v, Value: v}
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Inline processes photos synchronously; used when no broker is configured.
type Inline struct {
	proc *Processor
	log  *zap.Logger
}

func NewInline(proc *Processor, log *zap.Logger) *Inline {
	return &Inline{proc: proc, log: log}
}

func (i *Inline) Publish(ctx context.Context, photoIDs ...int64) error {
	for _, id := range photoIDs {
		if err := i.proc.Process(ctx, id); err != nil {
			i.log.Error("process photo", zap.Int64("photo_id", id), zap.Error(err))
		}
	}
	return nil
}
