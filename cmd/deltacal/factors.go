package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"deltacal/pkg/calibrate"
	"deltacal/pkg/kinematics"
)

var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "List the factor table and factor groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BIT\tFACTOR\tUNIT")
		for _, f := range kinematics.AllFactors.Factors() {
			fmt.Fprintf(w, "%d\t%s\t%s\n", int(f), f, f.Unit())
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "GROUP\tFACTORS")
		for _, name := range calibrate.GroupNames() {
			g, err := calibrate.ParseGroups(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\n", name, g.Mask())
		}
		return w.Flush()
	},
}
