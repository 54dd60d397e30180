package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/bitpack/packing"
	"github.com/spacemeshos/bitpack/shared"
)

var packReset bool

var packCmd = &cobra.Command{
	Use:   "pack <words-file>",
	Short: "Pack a file of 8-byte words into a dataset",
	Long: `Pack reads fixed 8-byte words from a file, in the configured byte order,
and packs their low itembits bits into the datadir. Every word must fit the
item width.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return runPack(ctx, args[0])
	},
}

func init() {
	packCmd.Flags().BoolVar(&packReset, "reset", false, "reset the datadir before packing")
	rootCmd.AddCommand(packCmd)
}

func runPack(ctx context.Context, wordsFile string) error {
	order, err := cfg.Order()
	if err != nil {
		return err
	}

	f, err := os.Open(wordsFile)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size()%8 != 0 {
		return fmt.Errorf("invalid `words-file`; expected: a multiple of 8 bytes, given: %d", info.Size())
	}
	numWords := uint64(info.Size()) / 8

	// Packed output takes at most itembits/64 of the input, plus one
	// padding byte per file.
	required := numWords * uint64(cfg.ItemBits) / 8
	available := shared.AvailableSpace(cfg.DataDir)
	if available < required {
		return fmt.Errorf("insufficient disk space; required: %s, available: %s",
			bytefmt.ByteSize(required), bytefmt.ByteSize(available))
	}

	packer, err := packing.NewPacker(cfg, packing.WithLogger(logger))
	if err != nil {
		return err
	}

	if packReset {
		if err := packer.Reset(); err != nil {
			return err
		}
	}

	logger.Info("packing",
		zap.String("source", filepath.Base(wordsFile)),
		zap.Uint64("numWords", numWords),
		zap.String("sourceSize", bytefmt.ByteSize(uint64(info.Size()))),
		zap.String("requiredSpace", bytefmt.ByteSize(required)),
	)

	src, err := packing.NewWordSource(f, order)
	if err != nil {
		return err
	}
	if err := packer.Pack(ctx, src); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("packing interrupted", zap.Uint64("numItemsWritten", packer.NumItemsWritten()))
		}
		return err
	}

	diskState := packing.NewDiskState(cfg.DataDir, cfg.ItemBits)
	numBytes, err := diskState.NumBytesWritten()
	if err != nil {
		return err
	}
	logger.Info("packed",
		zap.Uint64("numItems", packer.NumItemsWritten()),
		zap.String("packedSize", bytefmt.ByteSize(numBytes)),
	)
	return nil
}
