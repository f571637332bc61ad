// Command datasetlint loads the seed dataset, runs the full lint pass,
// and prints every issue. Exits non-zero when errors are found, or when
// --strict is set and any warning is found.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pharmquiz/pharmquiz-server/internal/dataset"
)

type lintConfig struct {
	SeedDir  string
	Strict   bool
	XLSXPath string
}

func main() {
	var cfg lintConfig

	root := &cobra.Command{
		Use:          "datasetlint",
		Short:        "Lint the pharmacology seed dataset",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cfg)
		},
	}

	root.Flags().StringVar(&cfg.SeedDir, "seed", "./data/seed", "seed dataset directory")
	root.Flags().BoolVar(&cfg.Strict, "strict", false, "fail on warnings as well as errors")
	root.Flags().StringVar(&cfg.XLSXPath, "xlsx", "", "also write an XLSX report to this path")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runLint(cfg lintConfig) error {
	loader := dataset.NewLoader(cfg.SeedDir)

	bundle, err := loader.Dataset()
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	fmt.Println("Dataset loaded")
	fmt.Printf("   - courseBlocks: %d\n", len(bundle.CourseBlocks))
	fmt.Printf("   - drugs: %d\n", len(bundle.Drugs))
	fmt.Printf("   - questions: %d\n", len(bundle.Questions))
	fmt.Printf("   - cases: %d\n", len(bundle.Cases))
	fmt.Printf("   - interactions: %d\n", len(bundle.Interactions))
	fmt.Printf("   - doseTemplates: %d\n\n", len(bundle.DoseTemplates))

	issues := dataset.LintDataset(bundle)

	if cfg.XLSXPath != "" {
		if err := writeReport(issues, cfg.XLSXPath); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", cfg.XLSXPath)
	}

	if len(issues) == 0 {
		color.Green("No issues found. Dataset is clean.")
		return nil
	}

	var errs, warns []dataset.LintIssue
	for _, issue := range issues {
		if issue.Severity == dataset.SeverityError {
			errs = append(errs, issue)
		} else {
			warns = append(warns, issue)
		}
	}

	fmt.Printf("Found %d issue(s): %d error(s), %d warning(s)\n\n", len(issues), len(errs), len(warns))

	if len(errs) > 0 {
		color.Red("ERRORS:")
		printIssues(errs)
	}
	if len(warns) > 0 {
		color.Yellow("WARNINGS:")
		printIssues(warns)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d lint error(s)", len(errs))
	}
	if cfg.Strict && len(warns) > 0 {
		return fmt.Errorf("%d lint warning(s) in strict mode", len(warns))
	}
	return nil
}

func printIssues(issues []dataset.LintIssue) {
	for _, issue := range issues {
		fmt.Printf("   [%s] %s\n", issue.Type, issue.Message)
		if issue.Path != "" {
			fmt.Printf("      Path: %s\n", issue.Path)
		}
		if issue.ID != "" {
			fmt.Printf("      ID: %s\n", issue.ID)
		}
		if issue.File != "" {
			fmt.Printf("      File: %s\n", issue.File)
		}
		fmt.Println()
	}
}

func writeReport(issues []dataset.LintIssue, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	if err := dataset.WriteLintReport(issues, f); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
