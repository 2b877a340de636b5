package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/config"

	"github.com/spf13/cobra"
)

func newVenuesCmd() *cobra.Command {
	venues := &cobra.Command{
		Use:   "venues",
		Short: "Inspect the venue catalog",
	}
	venues.AddCommand(&cobra.Command{
		Use:   "validate <catalog.yaml|catalog.toml>",
		Short: "Parse and validate a catalog file and list its venues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := config.LoadVenues(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tADULT\tCAPACITY\tSLOTS")
			for _, v := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", v.ID, v.Name, v.Pricing.Adult, v.Capacity, len(v.TimeSlots))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d venues OK\n", len(list))
			return nil
		},
	})
	return venues
}
