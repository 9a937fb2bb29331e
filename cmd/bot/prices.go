package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stroymat/materials-bot/internal/catalog"
)

func pricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Print the catalog price list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), catalog.Default().PriceList())
			return err
		},
	}
}
