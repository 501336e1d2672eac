package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/scrypster/lorebinders/internal/ingest"
	"github.com/scrypster/lorebinders/internal/storage"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters <file>",
	Short: "Show how a manuscript splits into chapters",
	Args:  cobra.ExactArgs(1),
	RunE:  runChapters,
}

func init() {
	rootCmd.AddCommand(chaptersCmd)
}

func runChapters(cmd *cobra.Command, args []string) error {
	book, err := ingest.ReadFile(args[0], "", "")
	if err != nil {
		return err
	}

	cmd.Printf("%s by %s (workspace %s)\n", book.Title, book.Author, storage.WorkspaceID(book.Author, book.Title))
	for _, ch := range book.Chapters {
		cmd.Printf("%4d  %-12s %6d words\n", ch.Number, ch.Title, len(strings.Fields(ch.Content)))
	}
	return nil
}
