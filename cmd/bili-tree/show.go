package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bili-tree/internal/models"
	"bili-tree/internal/output"
	"bili-tree/internal/report"
)

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [file]",
		Short: "Print the tree as text",
		Long: `show prints collection -> title -> tab -> item, one item per line as
"[p] title m:ss size #cid". Without an argument the root is scanned;
with one, a tree previously written by build or watch is read instead
(JSON, or YAML for .yaml/.yml files).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var collections []models.CollectionNode
			if len(args) == 1 {
				format, err := output.ParseFormat("", args[0])
				if err != nil {
					return err
				}
				if collections, err = output.Read(args[0], format); err != nil {
					return err
				}
			} else {
				if err := a.load(cmd); err != nil {
					return err
				}
				res, err := a.scan()
				if err != nil {
					return err
				}
				collections = res.Tree
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Tree(collections))
			return nil
		},
	}
}
