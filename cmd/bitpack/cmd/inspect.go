package cmd

import (
	"fmt"
	"os"
	"strconv"

	"code.cloudfoundry.org/bytefmt"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/spacemeshos/bitpack/packing"
	"github.com/spacemeshos/bitpack/shared"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the metadata and files of a dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect() error {
	m, err := packing.LoadMetadata(cfg.DataDir)
	if err != nil {
		return err
	}

	fmt.Printf("datadir:     %s\n", cfg.DataDir)
	fmt.Printf("itemBits:    %d\n", m.ItemBits)
	fmt.Printf("numItems:    %d\n", m.NumItems)
	fmt.Printf("byteOrder:   %s\n", m.ByteOrder)
	fmt.Printf("maxFileSize: %s\n", bytefmt.ByteSize(m.MaxFileSize))
	fmt.Println()

	files, err := packing.GetFiles(cfg.DataDir, packing.IsPackFile)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Size", "Items"})
	var totalBytes, totalItems uint64
	for _, file := range files {
		size := uint64(file.Size())
		numItems := shared.NumItems(size, uint(m.ItemBits))
		totalBytes += size
		totalItems += numItems
		table.Append([]string{
			file.Name(),
			bytefmt.ByteSize(size),
			strconv.FormatUint(numItems, 10),
		})
	}
	table.SetFooter([]string{"total", bytefmt.ByteSize(totalBytes), strconv.FormatUint(totalItems, 10)})
	table.Render()

	return nil
}
