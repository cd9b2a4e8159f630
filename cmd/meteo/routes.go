package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nasa-meteo/dashboard/internal/dashboard"
	"github.com/nasa-meteo/dashboard/pkg/navigation"
)

func routesCmd(pf *projectFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Long: `List the route table in match order.

Redirect routes show their target; rendering routes show their view
reference and the document title applied after navigation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := dashboard.NewTable()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPATH\tTARGET\tTITLE\tTRANSITION")
			for _, r := range table.Routes() {
				name := r.Name
				if name == "" {
					name = "-"
				}
				target, title := r.Component, navigation.TitleFor(r)
				if r.IsRedirect() {
					target, title = "→ "+r.Redirect, "-"
				}
				transition := r.Meta.Transition()
				if transition == "" {
					transition = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, r.Path, target, title, transition)
			}
			return tw.Flush()
		},
	}
}
