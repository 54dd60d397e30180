package packing

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spacemeshos/bitpack/shared"
)

func packFileName(fileIdx int) string {
	return fmt.Sprintf("pack-%d.bin", fileIdx)
}

// IsPackFile reports whether file looks like a packed data file.
func IsPackFile(file os.FileInfo) bool {
	name := file.Name()
	if !strings.HasPrefix(name, "pack-") || !strings.HasSuffix(name, ".bin") {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "pack-"), ".bin"))
	return err == nil
}

// DiskState reports the packed state of a datadir from the files on disk.
type DiskState struct {
	datadir  string
	itemBits uint
}

func NewDiskState(datadir string, itemBits uint) *DiskState {
	return &DiskState{datadir, itemBits}
}

// NumItemsWritten derives the packed item count from the on-disk file
// sizes. At bit granularity the trailing padding byte of a file may round
// the count up by a fraction of an item; the metadata holds the exact
// count.
func (d *DiskState) NumItemsWritten() (uint64, error) {
	files, err := GetFiles(d.datadir, IsPackFile)
	if err != nil {
		return 0, err
	}

	var numItems uint64
	for _, file := range files {
		numItems += shared.NumItems(uint64(file.Size()), d.itemBits)
	}

	return numItems, nil
}

func (d *DiskState) NumBytesWritten() (uint64, error) {
	files, err := GetFiles(d.datadir, IsPackFile)
	if err != nil {
		return 0, err
	}

	var numBytes uint64
	for _, file := range files {
		numBytes += uint64(file.Size())
	}

	return numBytes, nil
}

func (d *DiskState) NumFilesWritten() (int, error) {
	files, err := GetFiles(d.datadir, IsPackFile)
	if err != nil {
		return 0, err
	}

	return len(files), nil
}

// GetFiles lists the files of dir matching the predicate. A missing dir is
// an empty listing, not an error.
func GetFiles(dir string, predicate func(os.FileInfo) bool) ([]os.FileInfo, error) {
	allFiles, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	includedFiles := make([]os.FileInfo, 0)
	for _, file := range allFiles {
		info, err := file.Info()
		if err != nil {
			continue
		}

		if predicate(info) {
			includedFiles = append(includedFiles, info)
		}
	}

	return includedFiles, nil
}

// removePackFiles deletes the packed files and the metadata file of a
// datadir.
func removePackFiles(datadir string) error {
	files, err := GetFiles(datadir, IsPackFile)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := os.Remove(filepath.Join(datadir, file.Name())); err != nil {
			return fmt.Errorf("failed to delete %s: %w", file.Name(), err)
		}
	}

	if err := os.Remove(filepath.Join(datadir, metadataFileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata file: %w", err)
	}

	return nil
}
