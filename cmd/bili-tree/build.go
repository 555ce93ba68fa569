package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bili-tree/internal/output"
	"bili-tree/internal/pipeline"
	"bili-tree/internal/progress"
	"bili-tree/internal/report"
)

func (a *app) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Scan the root once and write the tree",
		Args:  cobra.NoArgs,
		RunE:  a.runBuild,
	}
}

func (a *app) runBuild(cmd *cobra.Command, _ []string) error {
	if err := a.load(cmd); err != nil {
		return err
	}
	res, err := a.scan()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Summary(res.Stats))
	if res.Empty() {
		a.logger.Warnf("no records parsed; %s not written", a.cfg.Output)
		return nil
	}
	return a.writeTree(res)
}

// scan runs the pipeline once over the configured root, reporting the
// directory being walked every second.
func (a *app) scan() (pipeline.Result, error) {
	cell := &progress.Cell{}
	stop := progress.Report(cell, time.Second, func(dir string) {
		a.logger.Infof("scanning %s", dir)
	})
	defer stop()

	return pipeline.Run(pipeline.Options{
		Root:     a.cfg.Root,
		Workers:  a.cfg.Workers,
		Exclude:  a.cfg.Exclude,
		Progress: cell,
		Logger:   a.logger,
	})
}

func (a *app) writeTree(res pipeline.Result) error {
	if err := output.Write(a.cfg.Output, a.cfg.Format, res.Tree); err != nil {
		return fmt.Errorf("write %s: %w", a.cfg.Output, err)
	}
	a.logger.Infof("wrote %d collections to %s", res.Stats.Collections, a.cfg.Output)
	return nil
}
