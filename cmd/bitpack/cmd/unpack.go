package cmd

import (
	"bufio"
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/bitpack/packing"
	"github.com/spacemeshos/bitpack/shared"
)

var unpackCmd = &cobra.Command{
	Use:   "unpack <words-file>",
	Short: "Unpack a dataset back into a file of 8-byte words",
	Long: `Unpack streams the items of the datadir back in packing order and writes
each as an 8-byte word, in the configured byte order, to the output file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return runUnpack(ctx, args[0])
	},
}

func init() {
	rootCmd.AddCommand(unpackCmd)
}

func runUnpack(ctx context.Context, wordsFile string) error {
	order, err := cfg.Order()
	if err != nil {
		return err
	}

	unpacker, err := packing.NewUnpacker(cfg, packing.WithLogger(logger))
	if err != nil {
		return err
	}

	f, err := os.OpenFile(wordsFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, shared.OwnerReadWrite)
	if err != nil {
		return err
	}
	defer f.Close()
	out := bufio.NewWriterSize(f, cfg.BufferSize)

	var numItems uint64
	word := make([]byte, 8)
	err = unpacker.ForEach(ctx, func(v uint64) error {
		order.Binary().PutUint64(word, v)
		if _, err := out.Write(word); err != nil {
			return err
		}
		numItems++
		return nil
	})
	if err != nil {
		return err
	}

	if err := out.Flush(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("unpacked", zap.Uint64("numItems", numItems), zap.String("output", wordsFile))
	return nil
}
