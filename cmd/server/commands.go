package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *app) booksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List the 66 books of the corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bible, err := a.loadCorpus()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bible.ListBooks())
		},
	}
}

func (a *app) chapterCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "chapter [book-id] [chapter]",
		Short:   "Print the verses of one chapter",
		Example: `  companion chapter 19 23`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid book id %q: %w", args[0], err)
			}
			chapter, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid chapter %q: %w", args[1], err)
			}
			bible, err := a.loadCorpus()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bible.GetChapter(bookID, chapter))
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [keyword]",
		Short: "Case-insensitive keyword search (at most 50 verses)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bible, err := a.loadCorpus()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bible.SearchVerses(args[0]))
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
