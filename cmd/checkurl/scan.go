package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/olegrjumin/checkurl/internal/analyzer"
)

var (
	scanPageFile string
	scanFail     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan URL...",
	Short: "Analyze URLs and print the results as JSON",
	Long: `Analyze each URL and print one JSON result per line.

With --page, the single URL argument is the address the HTML file was saved
from and every link in it is scanned instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanPageFile, "page", "", "HTML file whose links to scan")
	scanCmd.Flags().BoolVar(&scanFail, "fail", false, "exit non-zero when a malicious URL is found")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	malicious := 0

	if scanPageFile != "" {
		if len(args) != 1 {
			return fmt.Errorf("--page takes exactly one page URL")
		}
		f, err := os.Open(scanPageFile)
		if err != nil {
			return err
		}
		defer f.Close()

		report, err := a.service.ScanPage(ctx, args[0], f)
		if err != nil {
			return err
		}
		malicious = report.Counts.Malicious
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, rawURL := range args {
			result := a.service.AnalyzeURL(ctx, rawURL)
			if result.Status == analyzer.StatusMalicious {
				malicious++
			}
			if err := enc.Encode(struct {
				URL string `json:"url"`
				analyzer.Result
			}{rawURL, result}); err != nil {
				return err
			}
		}
	}

	if scanFail && malicious > 0 {
		return fmt.Errorf("%d malicious URL(s) found", malicious)
	}
	return nil
}
