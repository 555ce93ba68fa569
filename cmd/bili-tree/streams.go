package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bili-tree/internal/report"
	"bili-tree/internal/streams"
)

func (a *app) newStreamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streams <cid>",
		Short: "List and classify the stream files of one episode",
		Long: `streams looks inside <root>/<cid> for .m4s, .mp4, .m4a, .mp3 and .flac
files and reports whether each carries audio or video.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			list, err := streams.Find(a.cfg.Root, args[0])
			if err != nil {
				return err
			}
			a.logger.Debugf("found %d streams for %s", len(list), args[0])
			fmt.Fprintln(cmd.OutOrStdout(), report.Streams(args[0], list))
			return nil
		},
	}
}
