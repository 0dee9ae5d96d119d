package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/park285/lootsync/internal/config"
	"github.com/park285/lootsync/internal/loot"
	"github.com/park285/lootsync/internal/obslog"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse a log file offline and print the loot list as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the JSON, so logs go to stderr only
			opts := obslog.OptionsFromEnv()
			opts.Console = false
			opts.ToFile = false
			if err := obslog.Init(opts); err != nil {
				return err
			}
			defer obslog.Sync()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			parser, _, err := buildParser(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return err
			}

			entries, err := parser.Parse(string(raw))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(loot.ToDTOs(entries))
		},
	}
	return cmd
}
