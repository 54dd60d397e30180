package packing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spacemeshos/bitpack/config"
	"github.com/spacemeshos/bitpack/endian"
	"github.com/spacemeshos/bitpack/persistence"
)

// Unpacker streams the items of a packed datadir back in order. The config
// must match the metadata the dataset was packed with.
type Unpacker struct {
	cfg    config.Config
	order  endian.Order
	logger *zap.Logger
}

func NewUnpacker(cfg config.Config, opts ...OptionFunc) (*Unpacker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	order, err := cfg.Order()
	if err != nil {
		return nil, err
	}
	o, err := newOption(opts)
	if err != nil {
		return nil, err
	}

	return &Unpacker{
		cfg:    cfg,
		order:  order,
		logger: o.logger,
	}, nil
}

// Metadata loads the dataset metadata and verifies it against the config.
func (u *Unpacker) Metadata() (*Metadata, error) {
	m, err := LoadMetadata(u.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if err := verifyMetadata(m, u.cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// ForEach calls fn for every packed item, in packing order. An error from
// fn stops the walk and is returned as is. Cancelling the context stops
// between batches.
func (u *Unpacker) ForEach(ctx context.Context, fn func(uint64) error) error {
	m, err := u.Metadata()
	if err != nil {
		return err
	}
	layout, err := deriveFilesLayout(u.cfg, m.NumItems)
	if err != nil {
		return err
	}

	u.logger.Info("unpacking started",
		zap.String("datadir", u.cfg.DataDir),
		zap.Uint64("numItems", m.NumItems),
		zap.Int("numFiles", layout.NumFiles),
	)

	var numItemsRead uint64
	for fileIdx := 0; fileIdx < layout.NumFiles; fileIdx++ {
		if err := u.unpackFile(ctx, fileIdx, layout.fileNumItemsAt(fileIdx), &numItemsRead, fn); err != nil {
			return err
		}
	}

	u.logger.Info("unpacking completed", zap.Uint64("numItems", numItemsRead))
	return nil
}

func (u *Unpacker) unpackFile(ctx context.Context, fileIdx int, fileNumItems uint64, numItemsRead *uint64, fn func(uint64) error) error {
	filename := filepath.Join(u.cfg.DataDir, packFileName(fileIdx))
	reader, err := persistence.NewItemReader(filename, u.cfg.ItemBits,
		persistence.WithByteOrder(u.order),
		persistence.WithBufferSize(u.cfg.BufferSize),
	)
	if err != nil {
		return err
	}
	defer reader.Close()

	for i := uint64(0); i < fileNumItems; i++ {
		v, err := reader.ReadNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%s: file ends %d items short of the metadata", packFileName(fileIdx), fileNumItems-i)
			}
			return err
		}

		if err := fn(v); err != nil {
			return err
		}
		*numItemsRead++

		if *numItemsRead%u.cfg.LogRate == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("unpacking stopped: %w", err)
			}
			u.logger.Info("unpacking",
				zap.Uint64("numItemsRead", *numItemsRead),
				zap.Int("fileIdx", fileIdx),
			)
		}
	}

	return nil
}
