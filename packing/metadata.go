package packing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	xdr "github.com/nullstyle/go-xdr/xdr3"

	"github.com/spacemeshos/bitpack/config"
	"github.com/spacemeshos/bitpack/shared"
)

const metadataFileName = "pack.meta"

// Metadata is persisted in the datadir next to the packed files and pins
// the parameters the dataset was packed with.
type Metadata struct {
	ItemBits    uint32
	NumItems    uint64
	MaxFileSize uint64
	ByteOrder   string
}

func SaveMetadata(datadir string, m *Metadata) error {
	if err := os.MkdirAll(datadir, shared.OwnerReadWriteExec); err != nil && !os.IsExist(err) {
		return fmt.Errorf("dir creation failure: %w", err)
	}

	var w bytes.Buffer
	if _, err := xdr.Marshal(&w, m); err != nil {
		return fmt.Errorf("serialization failure: %w", err)
	}

	if err := os.WriteFile(filepath.Join(datadir, metadataFileName), w.Bytes(), shared.OwnerReadWrite); err != nil {
		return fmt.Errorf("write to disk failure: %w", err)
	}

	return nil
}

func LoadMetadata(datadir string) (*Metadata, error) {
	filename := filepath.Join(datadir, metadataFileName)
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateMetadataFileMissing
		}
		return nil, fmt.Errorf("read file failure: %w", err)
	}

	m := &Metadata{}
	if _, err := xdr.Unmarshal(bytes.NewReader(data), m); err != nil {
		return nil, err
	}

	return m, nil
}

// verifyMetadata checks a loaded metadata against the config the caller is
// operating with.
func verifyMetadata(m *Metadata, cfg config.Config) error {
	if uint(m.ItemBits) != cfg.ItemBits {
		return shared.ConfigMismatchError{
			Param:    "ItemBits",
			Expected: fmt.Sprintf("%d", cfg.ItemBits),
			Found:    fmt.Sprintf("%d", m.ItemBits),
			DataDir:  cfg.DataDir,
		}
	}

	if m.ByteOrder != cfg.ByteOrder {
		return shared.ConfigMismatchError{
			Param:    "ByteOrder",
			Expected: cfg.ByteOrder,
			Found:    m.ByteOrder,
			DataDir:  cfg.DataDir,
		}
	}

	if m.MaxFileSize != cfg.MaxFileSize {
		return shared.ConfigMismatchError{
			Param:    "MaxFileSize",
			Expected: fmt.Sprintf("%d", cfg.MaxFileSize),
			Found:    fmt.Sprintf("%d", m.MaxFileSize),
			DataDir:  cfg.DataDir,
		}
	}

	return nil
}
