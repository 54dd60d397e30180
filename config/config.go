// Package config holds the dataset configuration shared by the packing
// layer and the CLI.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/btcsuite/btcutil"

	"github.com/spacemeshos/bitpack/endian"
)

const (
	MinItemBits = 1
	MaxItemBits = 64

	// MinFileSize keeps a packed file large enough to hold at least one
	// item of the widest supported width.
	MinFileSize = 8
	MaxFileSize = 1 << 40

	MinBufferSize = 1
)

const (
	DefaultDataDirName = "data"

	DefaultItemBits    = 17
	DefaultByteOrder   = "big"
	DefaultMaxFileSize = 1 << 22
	DefaultBufferSize  = 4096

	// DefaultLogRate is the number of items between progress log lines.
	DefaultLogRate = 1 << 16
)

var DefaultDataDir = filepath.Join(btcutil.AppDataDir("bitpack", false), DefaultDataDirName)

type Config struct {
	DataDir string `mapstructure:"datadir"`

	// ItemBits is the width of every packed item, in bits.
	ItemBits uint `mapstructure:"itembits"`

	// ByteOrder applies to byte-granular item widths only; at bit
	// granularity byte order has no meaning.
	ByteOrder string `mapstructure:"byteorder"`

	MaxFileSize uint64 `mapstructure:"maxfilesize"`
	BufferSize  int    `mapstructure:"buffersize"`
	LogRate     uint64 `mapstructure:"lograte"`
}

func DefaultConfig() Config {
	return Config{
		DataDir:     DefaultDataDir,
		ItemBits:    DefaultItemBits,
		ByteOrder:   DefaultByteOrder,
		MaxFileSize: DefaultMaxFileSize,
		BufferSize:  DefaultBufferSize,
		LogRate:     DefaultLogRate,
	}
}

func (cfg *Config) Validate() error {
	if cfg.DataDir == "" {
		return fmt.Errorf("invalid `DataDir`; expected: a directory path, given: empty")
	}

	if cfg.ItemBits < MinItemBits {
		return fmt.Errorf("invalid `ItemBits`; expected: >= %d, given: %d", MinItemBits, cfg.ItemBits)
	}

	if cfg.ItemBits > MaxItemBits {
		return fmt.Errorf("invalid `ItemBits`; expected: <= %d, given: %d", MaxItemBits, cfg.ItemBits)
	}

	if _, err := endian.Parse(cfg.ByteOrder); err != nil {
		return fmt.Errorf("invalid `ByteOrder`; expected: little or big, given: %q", cfg.ByteOrder)
	}

	if cfg.MaxFileSize < MinFileSize {
		return fmt.Errorf("invalid `MaxFileSize`; expected: >= %d, given: %d", MinFileSize, cfg.MaxFileSize)
	}

	if cfg.MaxFileSize > MaxFileSize {
		return fmt.Errorf("invalid `MaxFileSize`; expected: <= %d, given: %d", MaxFileSize, cfg.MaxFileSize)
	}

	if cfg.BufferSize < MinBufferSize {
		return fmt.Errorf("invalid `BufferSize`; expected: >= %d, given: %d", MinBufferSize, cfg.BufferSize)
	}

	if cfg.LogRate == 0 {
		return fmt.Errorf("invalid `LogRate`; expected: > 0, given: %d", cfg.LogRate)
	}

	return nil
}

// Order resolves the configured byte order.
func (cfg *Config) Order() (endian.Order, error) {
	return endian.Parse(cfg.ByteOrder)
}
