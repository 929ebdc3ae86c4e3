package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carterw/Pi-Cellular/internal/diag"
)

func diagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Run the diagnostics battery once and exit",
		RunE:  runDiag,
	}
}

func runDiag(cmd *cobra.Command, _ []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	return executeDiag(cmd.OutOrStdout(), diag.New(cfg.Interface))
}

type diagRunner interface {
	All(ctx context.Context) []diag.CheckResult
}

func executeDiag(out io.Writer, r diagRunner) error {
	results := r.All(context.Background())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
	allOK := true
	for _, res := range results {
		status := "ok"
		if !res.OK {
			status = "fail"
			allOK = false
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", res.Name, status, res.Message)
	}
	w.Flush()

	if !allOK {
		return fmt.Errorf("one or more diagnostic checks failed")
	}
	return nil
}
