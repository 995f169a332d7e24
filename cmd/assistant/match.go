package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/productif-io/assistant/pkg/flexmatch"
	"github.com/spf13/cobra"
)

var (
	matchCatalogPath string
	matchCommandID   string
)

var matchCmd = &cobra.Command{
	Use:   "match <message>",
	Short: "Run the command matcher on a message",
	Long:  "Normalize a message and score it against the command catalog without running the server. Useful for tuning catalog entries.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchCatalogPath, "catalog", "",
		"Catalog file (default: embedded catalog)")
	matchCmd.Flags().StringVar(&matchCommandID, "command", "",
		"Score against a single command instead of the whole catalog")
}

func runMatch(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")

	catalog, err := flexmatch.LoadCatalog(matchCatalogPath)
	if err != nil {
		return err
	}
	matcher := flexmatch.NewMatcher(catalog)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "normalized: %s\n\n", flexmatch.Normalize(message))

	ids := []string{matchCommandID}
	if matchCommandID == "" {
		ids = ids[:0]
		for id := range catalog {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	for _, id := range ids {
		result := matcher.Match(message, id)
		if !result.Matches {
			fmt.Fprintf(out, "%-18s no match\n", id)
			continue
		}
		detail := result.MatchedVariation
		if detail == "" {
			detail = "keywords: " + strings.Join(result.MatchedKeywords, ", ")
		} else {
			detail = "variation: " + detail
		}
		fmt.Fprintf(out, "%-18s %.2f  %s\n", id, result.Confidence, detail)
	}

	if best, ok := matcher.FindBestMatch(message, ids); ok {
		fmt.Fprintf(out, "\nbest: %s (%.2f)\n", best.Command, best.Result.Confidence)
	} else {
		fmt.Fprintln(out, "\nbest: none")
	}

	return nil
}
