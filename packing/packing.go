// Package packing turns a stream of fixed-width items into a datadir of
// packed files and back. A dataset is a run of pack-<i>.bin files plus a
// metadata file recording the item width, byte order and file sizing the
// dataset was packed with; unpacking refuses a datadir whose metadata
// disagrees with the caller's config.
package packing

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/spacemeshos/bitpack/endian"
)

var (
	ErrAlreadyPacking           = errors.New("already packing")
	ErrCannotResetWhilePacking  = errors.New("cannot reset while packing")
	ErrStateNotEmpty            = errors.New("datadir already contains packed data")
	ErrStateMetadataFileMissing = errors.New("metadata file is missing")
)

// ItemSource produces the items to pack, in order. Next returns io.EOF
// after the last item.
type ItemSource interface {
	Next() (uint64, error)
}

// WordSource adapts a byte stream of fixed 8-byte words, stored in the
// given byte order, into an ItemSource.
type WordSource struct {
	r     io.Reader
	order endian.Order
}

func NewWordSource(r io.Reader, order endian.Order) (*WordSource, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return &WordSource{r: r, order: order}, nil
}

func (s *WordSource) Next() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(s.r, b[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("truncated word at end of source: %w", err)
		}
		return 0, err
	}
	return s.order.Binary().Uint64(b[:]), nil
}

type option struct {
	logger *zap.Logger
}

// OptionFunc customizes a Packer or Unpacker at construction time.
type OptionFunc func(*option) error

// WithLogger sets the progress logger. The default is a nop logger.
func WithLogger(logger *zap.Logger) OptionFunc {
	return func(o *option) error {
		if logger == nil {
			return errors.New("invalid `logger`; expected: not nil")
		}
		o.logger = logger
		return nil
	}
}

func newOption(opts []OptionFunc) (*option, error) {
	o := &option{logger: zap.NewNop()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
