package packing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spacemeshos/bitpack/config"
	"github.com/spacemeshos/bitpack/endian"
	"github.com/spacemeshos/bitpack/persistence"
	"github.com/spacemeshos/bitpack/shared"
)

// Packer writes the items of a source into a datadir of packed files,
// rolling to a new file whenever the configured max file size is reached,
// and records the dataset metadata on completion.
type Packer struct {
	cfg    config.Config
	order  endian.Order
	logger *zap.Logger

	numItemsWritten atomic.Uint64
	packing         bool
	mtx             sync.Mutex

	diskState *DiskState
}

// Status is a point-in-time snapshot of a packer.
type Status struct {
	Packing         bool
	NumItemsWritten uint64
}

func NewPacker(cfg config.Config, opts ...OptionFunc) (*Packer, error) {
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

	return &Packer{
		cfg:       cfg,
		order:     order,
		logger:    o.logger,
		diskState: NewDiskState(cfg.DataDir, cfg.ItemBits),
	}, nil
}

// Pack drains src into the datadir. The datadir must not already hold
// packed data; Reset clears it. Cancelling the context stops between
// batches and leaves partial files behind.
func (p *Packer) Pack(ctx context.Context, src ItemSource) error {
	p.mtx.Lock()
	if p.packing {
		p.mtx.Unlock()
		return ErrAlreadyPacking
	}
	p.packing = true
	p.mtx.Unlock()

	defer func() {
		p.mtx.Lock()
		p.packing = false
		p.mtx.Unlock()
	}()

	numBytes, err := p.diskState.NumBytesWritten()
	if err != nil {
		return err
	}
	if numBytes > 0 {
		return ErrStateNotEmpty
	}

	if err := os.MkdirAll(p.cfg.DataDir, shared.OwnerReadWriteExec); err != nil && !os.IsExist(err) {
		return fmt.Errorf("dir creation failure: %w", err)
	}

	fileNumItems := maxFileNumItems(p.cfg)
	if fileNumItems == 0 {
		return fmt.Errorf(
			"invalid `MaxFileSize`; expected: to hold at least one %d-bit item, given: %d", p.cfg.ItemBits, p.cfg.MaxFileSize)
	}

	p.logger.Info("packing started",
		zap.String("datadir", p.cfg.DataDir),
		zap.Uint("itemBits", p.cfg.ItemBits),
		zap.String("byteOrder", p.order.String()),
		zap.Uint64("maxFileSize", p.cfg.MaxFileSize),
		zap.Uint64("availableSpace", shared.AvailableSpace(p.cfg.DataDir)),
	)

	p.numItemsWritten.Store(0)
	var total uint64
	drained := false
	for fileIdx := 0; !drained; fileIdx++ {
		n, err := p.packFile(ctx, src, fileIdx, fileNumItems, &total)
		if err != nil {
			return err
		}
		drained = n < fileNumItems
	}

	if total == 0 {
		return errors.New("source produced no items")
	}

	m := &Metadata{
		ItemBits:    uint32(p.cfg.ItemBits),
		NumItems:    total,
		MaxFileSize: p.cfg.MaxFileSize,
		ByteOrder:   p.cfg.ByteOrder,
	}
	if err := SaveMetadata(p.cfg.DataDir, m); err != nil {
		return err
	}

	p.logger.Info("packing completed", zap.Uint64("numItems", total))
	return nil
}

// packFile drains up to fileNumItems items into the fileIdx-th file and
// returns how many landed. An empty trailing file is removed.
func (p *Packer) packFile(ctx context.Context, src ItemSource, fileIdx int, fileNumItems uint64, total *uint64) (uint64, error) {
	filename := filepath.Join(p.cfg.DataDir, packFileName(fileIdx))
	writer, err := persistence.NewItemWriter(filename, p.cfg.ItemBits,
		persistence.WithByteOrder(p.order),
		persistence.WithBufferSize(p.cfg.BufferSize),
	)
	if err != nil {
		return 0, err
	}
	defer writer.Close()

	var n uint64
	for n < fileNumItems {
		v, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return n, err
		}

		if err := writer.Append(v); err != nil {
			return n, err
		}
		n++
		*total++
		p.numItemsWritten.Store(*total)

		if *total%p.cfg.LogRate == 0 {
			if err := ctx.Err(); err != nil {
				return n, fmt.Errorf("packing stopped: %w", err)
			}
			p.logger.Info("packing",
				zap.Uint64("numItemsWritten", *total),
				zap.Int("fileIdx", fileIdx),
			)
		}
	}

	if err := writer.Close(); err != nil {
		return n, err
	}
	if n == 0 {
		if err := os.Remove(filename); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// NumItemsWritten returns the packing progress of the running or last Pack
// call.
func (p *Packer) NumItemsWritten() uint64 {
	return p.numItemsWritten.Load()
}

func (p *Packer) Status() Status {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return Status{
		Packing:         p.packing,
		NumItemsWritten: p.numItemsWritten.Load(),
	}
}

// Reset removes the packed files and the metadata file from the datadir.
func (p *Packer) Reset() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.packing {
		return ErrCannotResetWhilePacking
	}

	if err := removePackFiles(p.cfg.DataDir); err != nil {
		return err
	}
	p.numItemsWritten.Store(0)

	p.logger.Info("dataset reset", zap.String("datadir", p.cfg.DataDir))
	return nil
}
