package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func buildCmd(pf *projectFlags) *cobra.Command {
	var (
		resolve string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Show the build configuration",
		Long: `Show the effective build configuration: plugins, define constants
and path aliases, after meteo.build.yaml is merged over the defaults.

Examples:
  meteo build
  meteo build --json
  meteo build --resolve @/views/tableaudebord.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, build, err := loadProject(pf)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if resolve != "" {
				p, err := build.ResolveAlias(resolve)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, p)
				return nil
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"file":    cfg.BuildPath(),
					"root":    build.Root(),
					"plugins": build.Plugins,
					"define":  build.Defines(),
					"alias":   build.Resolve.Alias,
				})
			}

			fmt.Fprintf(out, "Build configuration (%s)\n\n", cfg.BuildPath())
			fmt.Fprintln(out, "Plugins:")
			for _, p := range build.Plugins {
				info(out, "%s", p)
			}
			fmt.Fprintln(out, "Define:")
			for _, k := range build.DefineKeys() {
				info(out, "%s = %s", k, build.Define[k])
			}
			fmt.Fprintln(out, "Alias:")
			for _, k := range build.AliasKeys() {
				info(out, "%s → %s", k, build.Resolve.Alias[k])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resolve, "resolve", "", "Resolve an alias reference to a filesystem path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
