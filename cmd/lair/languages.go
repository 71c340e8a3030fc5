package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lair/internal/grammar"
	"lair/internal/report"
	"lair/internal/slogutil"
	"lair/internal/syntax"
)

var languagesFormat string

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	Long: `List the languages lair can parse, including those added by
.lair/languages.toml. Files of other languages are scanned line by line.`,
	Args: cobra.NoArgs,
	RunE: runLanguages,
}

func init() {
	languagesCmd.Flags().StringVar(&languagesFormat, "format", formatHuman, "Output format (human, json, yaml, toml)")
	rootCmd.AddCommand(languagesCmd)
}

// languageInfo is the listing of one language.
type languageInfo struct {
	ID         string   `json:"id" yaml:"id" toml:"id"`
	Extensions []string `json:"extensions" yaml:"extensions" toml:"extensions"`
	Aliases    []string `json:"aliases,omitempty" yaml:"aliases,omitempty" toml:"aliases,omitempty"`
	Grammar    string   `json:"grammar" yaml:"grammar" toml:"grammar"`
	Queries    []string `json:"queries" yaml:"queries" toml:"queries"`
}

type languagesListing struct {
	Parsing   bool           `json:"parsing" yaml:"parsing" toml:"parsing"`
	Languages []languageInfo `json:"languages" yaml:"languages" toml:"languages"`
}

func runLanguages(cmd *cobra.Command, args []string) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	registry, err := newRegistry(root, cfg, slogutil.NewDiscardLogger())
	if err != nil {
		return err
	}
	return writeLanguages(cmd.OutOrStdout(), listLanguages(registry), languagesFormat)
}

func listLanguages(registry *grammar.Registry) languagesListing {
	listing := languagesListing{Parsing: syntax.IsAvailable(), Languages: []languageInfo{}}
	for _, id := range registry.Languages() {
		cfg, ok := registry.Get(id)
		if !ok {
			continue
		}
		info := languageInfo{
			ID:         cfg.ID,
			Extensions: cfg.Extensions,
			Aliases:    cfg.Aliases,
			Grammar:    cfg.Grammar,
			Queries:    []string{},
		}
		for _, t := range grammar.QueryTypes {
			if cfg.Query(t) != "" {
				info.Queries = append(info.Queries, string(t))
			}
		}
		listing.Languages = append(listing.Languages, info)
	}
	return listing
}

func writeLanguages(w io.Writer, listing languagesListing, format string) error {
	if format != formatHuman && format != "" {
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		return report.Encode(w, listing, f)
	}

	if !listing.Parsing {
		fmt.Fprintln(w, "Built without cgo: every file is scanned as plain text.")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tEXTENSIONS\tQUERIES")
	for _, l := range listing.Languages {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, strings.Join(l.Extensions, " "), strings.Join(l.Queries, ","))
	}
	return tw.Flush()
}
