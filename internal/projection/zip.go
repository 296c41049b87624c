package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"orchestrator/internal/domain"
	"orchestrator/internal/namedquery"
	"orchestrator/internal/storage"
	"orchestrator/pkg/zip"
)

// ZipCreator assembles matched images into a zip archive. Entries are sourced
// from the pre-generated thumbnails so no image-server round trip is needed.
// Role-protected images are left out of the archive entirely; the roles still
// land on the control file so serving the artifact demands authorization.
type ZipCreator struct {
	persister
	thumbs storage.Store
}

// NewZipCreator builds a ZipCreator writing artifacts to output and reading
// source images from thumbs.
func NewZipCreator(output, thumbs storage.Store, log zerolog.Logger) *ZipCreator {
	return &ZipCreator{
		persister: persister{store: output, log: log, now: time.Now},
		thumbs:    thumbs,
	}
}

// PersistProjection builds the archive for q and writes it plus its control
// file to the output store.
func (c *ZipCreator) PersistProjection(ctx context.Context, q *namedquery.StoredParsedQuery, assets []domain.Asset) (*ControlFile, error) {
	return c.persist(ctx, q, assets, c.buildArchive)
}

func (c *ZipCreator) buildArchive(ctx context.Context, q *namedquery.StoredParsedQuery, assets []domain.Asset) (int64, error) {
	entries := make([]zip.Entry, 0, len(assets))
	for i := range assets {
		a := &assets[i]
		if a.RequiresAuth() {
			c.log.Debug().Stringer("asset", a.ID).Msg("omitting role-protected image from archive")
			continue
		}
		data, err := c.thumbs.Read(ctx, sourceImageKey(a))
		if err != nil {
			if errors.Is(err, storage.ErrNotExist) {
				c.log.Warn().Stringer("asset", a.ID).Msg("no source image for archive entry, skipping")
				continue
			}
			return 0, fmt.Errorf("read source image for %s: %w", a.ID, err)
		}
		entries = append(entries, zip.Entry{Name: a.ID.Identifier + ".jpg", Data: data})
	}

	archive, err := zip.Archive(entries)
	if err != nil {
		return 0, err
	}
	if err := c.store.Write(ctx, q.StorageKey, archive, q.Channel.ContentType()); err != nil {
		return 0, fmt.Errorf("write archive %s: %w", q.StorageKey, err)
	}
	return int64(len(archive)), nil
}

// sourceImageKey is the largest pre-generated derivative for an asset.
func sourceImageKey(a *domain.Asset) string {
	return fmt.Sprintf("%s/low.jpg", a.ID)
}
