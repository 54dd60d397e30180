package packing

import (
	"fmt"

	"github.com/spacemeshos/bitpack/config"
)

type filesLayout struct {
	NumFiles         int
	FileNumItems     uint64
	LastFileNumItems uint64
}

// maxFileNumItems returns how many whole items fit in one packed file.
func maxFileNumItems(cfg config.Config) uint64 {
	return cfg.MaxFileSize * 8 / uint64(cfg.ItemBits)
}

func deriveFilesLayout(cfg config.Config, numItems uint64) (filesLayout, error) {
	if numItems == 0 {
		return filesLayout{}, fmt.Errorf("invalid `numItems`; expected: > 0, given: %d", numItems)
	}

	fileNumItems := maxFileNumItems(cfg)
	if fileNumItems == 0 {
		return filesLayout{}, fmt.Errorf(
			"invalid `MaxFileSize`; expected: to hold at least one %d-bit item, given: %d", cfg.ItemBits, cfg.MaxFileSize)
	}

	numFiles := numItems / fileNumItems
	lastFileNumItems := numItems % fileNumItems
	if lastFileNumItems > 0 {
		numFiles++
	} else {
		lastFileNumItems = fileNumItems
	}

	return filesLayout{
		NumFiles:         int(numFiles),
		FileNumItems:     fileNumItems,
		LastFileNumItems: lastFileNumItems,
	}, nil
}

// fileNumItemsAt returns how many items the fileIdx-th file of the layout
// holds.
func (l filesLayout) fileNumItemsAt(fileIdx int) uint64 {
	if fileIdx == l.NumFiles-1 {
		return l.LastFileNumItems
	}
	return l.FileNumItems
}
