// Package processor builds photo thumbnails off the request path.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"photoalbum/internal/media"
	"photoalbum/internal/models"
)

const ThumbnailSize = 300

type Store interface {
	GetPhoto(ctx context.Context, id int64) (*models.Photo, error)
	ClaimPhoto(ctx context.Context, id int64) (bool, error)
	FinishPhoto(ctx context.Context, id int64, status, thumbnailPath string) error
	GetAlbum(ctx context.Context, id uuid.UUID) (*models.Album, error)
}

type Processor struct {
	store Store
	media media.Store
	log   *zap.Logger
}

func New(store Store, m media.Store, log *zap.Logger) *Processor {
	return &Processor{store: store, media: m, log: log}
}

// Process generates the thumbnail for a pending photo. Only the delivery
// that claims the photo does any work, so redelivered messages are harmless.
func (p *Processor) Process(ctx context.Context, photoID int64) error {
	const op = "processor.Process"

	claimed, err := p.store.ClaimPhoto(ctx, photoID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !claimed {
		return nil
	}

	photo, err := p.store.GetPhoto(ctx, photoID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	thumb, err := p.thumbnail(ctx, photo)
	if err != nil {
		if uerr := p.store.FinishPhoto(ctx, photo.ID, models.PhotoError, ""); uerr != nil {
			p.log.Error("mark photo failed", zap.Int64("photo_id", photo.ID), zap.Error(uerr))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.store.FinishPhoto(ctx, photo.ID, models.PhotoDone, thumb); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// thumbnail writes the photo's thumbnail and returns its media key.
func (p *Processor) thumbnail(ctx context.Context, photo *models.Photo) (string, error) {
	album, err := p.store.GetAlbum(ctx, photo.AlbumID)
	if err != nil {
		return "", err
	}

	rc, err := p.media.Open(ctx, photo.ImagePath)
	if err != nil {
		return "", err
	}
	src, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	rc.Close()
	if err != nil {
		return "", err
	}

	thumb := imaging.Thumbnail(src, ThumbnailSize, ThumbnailSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return "", err
	}

	key := media.ThumbnailKey(album.UserID, album.ID, photo.ID)
	if err := p.media.Put(ctx, key, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		return "", err
	}
	return key, nil
}

// Consume reads photo ids from Kafka until ctx is cancelled.
func (p *Processor) Consume(ctx context.Context, reader *kafka.Reader) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			p.log.Error("read message", zap.Error(err))
			continue
		}

		id, err := strconv.ParseInt(string(msg.Value), 10, 64)
		if err != nil {
			p.log.Warn("bad photo id", zap.ByteString("value", msg.Value))
			continue
		}
		if err := p.Process(ctx, id); err != nil {
			p.log.Error("process photo", zap.Int64("photo_id", id), zap.Error(err))
		}
	}
}
