package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/bitpack/bitstream"
)

var (
	benchBytes    uint64
	benchBitCount uint
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure in-memory codec throughput",
	Long: `Bench pumps values through a writer and a reader cursor joined by a pipe
and reports the bit and byte throughput of each side.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd.Context())
	},
}

func init() {
	benchCmd.Flags().Uint64Var(&benchBytes, "bytes", 64<<20, "how many bytes to pump")
	benchCmd.Flags().UintVar(&benchBitCount, "bitcount", 17, "bit width of every value (1 to 64)")
	rootCmd.AddCommand(benchCmd)
}

func runBench(ctx context.Context) error {
	if benchBitCount < 1 || benchBitCount > 64 {
		return fmt.Errorf("invalid `bitcount`; expected: 1 to 64, given: %d", benchBitCount)
	}

	numValues := benchBytes * 8 / uint64(benchBitCount)
	valueMask := uint64(1)<<benchBitCount - 1

	pr, pw := io.Pipe()
	start := time.Now()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer pw.Close()

		w, err := bitstream.NewWriter(pw)
		if err != nil {
			return err
		}
		for i := uint64(0); i < numValues; i++ {
			if i%(1<<20) == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := w.WriteBits(i&valueMask, benchBitCount); err != nil {
				return err
			}
		}
		return w.Close()
	})
	eg.Go(func() error {
		r, err := bitstream.NewReader(pr)
		if err != nil {
			return err
		}
		for i := uint64(0); i < numValues; i++ {
			v, err := r.ReadBits(benchBitCount)
			if err != nil {
				return err
			}
			if v != i&valueMask {
				return fmt.Errorf("value mismatch at %d: %#x != %#x", i, v, i&valueMask)
			}
		}
		return r.Close()
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	numBytes := numValues * uint64(benchBitCount) / 8
	rate := uint64(float64(numBytes) / elapsed.Seconds())
	fmt.Printf("pumped %s (%d values of %d bits) in %v: %s/s per side\n",
		bytefmt.ByteSize(numBytes), numValues, benchBitCount, elapsed.Round(time.Millisecond), bytefmt.ByteSize(rate))

	return nil
}
