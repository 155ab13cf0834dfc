package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/repository"
)

var _ repository.IPreviewCache = (*PreviewCache)(nil)

// previewTTL bounds how long a playlist preview is reused between the
// 2-second progress polls. Playlist metadata moves slowly; an hour is plenty.
const previewTTL = time.Hour

const previewKeyPrefix = "vv:preview:"

// PreviewCache memoizes playlist previews in Redis so polling the progress
// endpoint does not re-hit a backend for the same metadata.
type PreviewCache struct {
	client *redis.Client
}

func NewPreviewCache(client *redis.Client) *PreviewCache {
	return &PreviewCache{client: client}
}

func (c *PreviewCache) GetPreview(ctx context.Context, playlistURL string) (*model.PlaylistMetadata, error) {
	if c.client == nil {
		return nil, model.ErrNotFound
	}
	raw, err := c.client.Get(ctx, previewKeyPrefix+playlistURL).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	meta := &model.PlaylistMetadata{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (c *PreviewCache) SetPreview(ctx context.Context, playlistURL string, meta *model.PlaylistMetadata) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, previewKeyPrefix+playlistURL, raw, previewTTL).Err()
}
