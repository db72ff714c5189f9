package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/civilworks/estimator/internal/config"
	"github.com/civilworks/estimator/internal/parse"
	"github.com/civilworks/estimator/internal/report"
	"github.com/civilworks/estimator/internal/store"
)

var (
	projectPath string
	cfg         *config.Config
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "estimator",
		Short: "Cost estimation project tool",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load()
			if err != nil {
				return err
			}
			cfg = c
			level, err := zerolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				level = zerolog.InfoLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
			return nil
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&projectPath, "project", "p", "project.est", "project file")

	root.AddCommand(importCmd(), exportCmd(), renumberCmd(), updateRatesCmd(), infoCmd())
	return root
}

func openProject() (*store.Store, error) {
	return store.Open(projectPath, store.Options{SubAnalysisDepth: cfg.SubAnalysisDepth})
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <workbook.xlsx>",
		Short: "Import schedule, resources and analyses from a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProject()
			if err != nil {
				return err
			}
			prog := &store.Progress{OnFraction: func(f float64) {
				fmt.Fprintf(os.Stderr, "\r%3.0f%%", f*100)
			}}
			res, err := report.ImportFile(s, args[0], report.ImportOptions{
				Analysis: parse.AnalysisSettings{
					CommentsBelow: cfg.CommentsBelow,
					RoundOverride: cfg.RoundStep(),
				},
				Progress: prog,
			})
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				log.Warn().Msg(w)
			}
			fmt.Printf("imported %d items, %d resources (%d warnings)\n",
				len(res.ItemCodes), len(res.ResourceCodes), len(res.Warnings))
			return nil
		},
	}
	return cmd
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <workbook.xlsx>",
		Short: "Export the project reports to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProject()
			if err != nil {
				return err
			}
			return report.Export(s, args[0])
		},
	}
}

func renumberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renumber",
		Short: "Repack display orders and assign item and resource codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProject()
			if err != nil {
				return err
			}
			s.BeginGroup("Renumber project")
			defer s.EndGroup()
			if err := s.ReorderItems(); err != nil {
				return err
			}
			if err := s.AssignAutoItemNumbers(); err != nil {
				return err
			}
			return s.AssignAutoResourceNumbers(cfg.ExcludedLibs)
		},
	}
}

func updateRatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-rates [code...]",
		Short: "Re-evaluate analyses and propagate sub-analysis rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProject()
			if err != nil {
				return err
			}
			var codes []string
			if len(args) > 0 {
				codes = args
			}
			return s.UpdateRates(codes)
		},
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print project settings and table counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProject()
			if err != nil {
				return err
			}
			settings, err := s.ProjectSettings()
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%-22s %s\n", k, settings[k])
			}

			items, err := s.ItemCodes()
			if err != nil {
				return err
			}
			resources, err := s.GetResourcesFlat("")
			if err != nil {
				return err
			}
			fmt.Printf("%-22s %d\n%-22s %d\n", "schedule_items", len(items),
				"resources", len(resources))
			if libs := s.Libraries(); len(libs) > 0 {
				fmt.Printf("%-22s %s\n", "libraries", strings.Join(libs, ", "))
			}
			return nil
		},
	}
}
