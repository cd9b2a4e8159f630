package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nasa-meteo/dashboard/internal/dashboard"
	"github.com/nasa-meteo/dashboard/internal/errors"
	"github.com/nasa-meteo/dashboard/pkg/navigation"
)

func resolveCmd(pf *projectFlags) *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Resolve paths against the route table",
		Long: `Resolve paths the way a navigation does: match, follow redirects,
and report the route that renders and the title it applies.

With --render the view is loaded and rendered as well.

Examples:
  meteo resolve /
  meteo resolve /foo/bar /unknown
  meteo resolve --render /`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("E170").WithDetail("resolve needs at least one path").
					WithSuggestion("meteo resolve /")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, build, err := loadProject(pf)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())
			src, err := dashboard.SourceFor(cfg, build, logger)
			if err != nil {
				return err
			}
			app, err := dashboard.New(cfg, build, src, dashboard.Options{Logger: logger})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range args {
				target, err := app.Navigator.Follow(p)
				if err != nil {
					return err
				}
				res := target.Resolution
				fmt.Fprintf(out, "%s\n", p)
				if invalid := app.Table.Match(p).Invalid; invalid != nil {
					info(out, "invalid:    %v", invalid)
				}
				if target.Redirects > 0 {
					info(out, "redirected: %d hop(s) from %s", target.Redirects, target.RedirectedFrom)
				}
				info(out, "route:      %s (%s)", res.Route.Key(), res.Route.Path)
				info(out, "path:       %s", res.FullPath())
				info(out, "title:      %s", navigation.TitleFor(res.Route))

				if !render {
					continue
				}
				nav, err := app.Navigator.NewContext(nil).Navigate(cmd.Context(), p)
				if err != nil {
					return err
				}
				if err := nav.Render(out, app.Defines()); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&render, "render", "r", false, "Load and render the view")
	return cmd
}
