package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/metrex/internal/metrics"
	"github.com/wonny/metrex/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "등록된 지표와 출력 포맷 목록",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	registry, err := metrics.NewDefaultRegistry()
	if err != nil {
		return err
	}

	fmt.Println("Metrics:")
	for _, m := range registry.All() {
		fmt.Printf("  - %-20s %s\n", m.Name(), strings.Join(m.Columns(), ", "))
	}

	fmt.Println("\nFormats:")
	for _, c := range storage.Codecs() {
		mode := "read/write"
		if !c.Writable() {
			mode = "read only"
		}
		fmt.Printf("  - %-8s %-9s %s\n", c.Name(), c.Extension(), mode)
	}

	return nil
}
