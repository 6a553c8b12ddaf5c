package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordscape/wordscape/pkg/vocab"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Inspect the learned vocabulary store",
}

func openVocabStore() (*vocab.BadgerStore, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return vocab.NewBadgerStore(vocab.BadgerOptions{Dir: cfg.ResolveVocabDir()})
}

var vocabListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all learned words",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVocabStore()
		if err != nil {
			return err
		}
		defer store.Close()

		count := 0
		for entry, err := range store.All(cmd.Context()) {
			if err != nil {
				return err
			}
			count++
			fmt.Printf("%-20s heard %3d×  x=%8.2f  y=%8.2f  z=%8.2f\n",
				entry.Word, entry.Count, entry.Point.X, entry.Point.Y, entry.Point.Z)
		}
		if count == 0 {
			fmt.Println("no words learned yet - run 'wordscape talk'")
		}
		return nil
	},
}

var vocabShowCmd = &cobra.Command{
	Use:   "show <word>",
	Short: "Show one word's entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVocabStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("word:        %s\n", entry.Word)
		fmt.Printf("position:    (%.2f, %.2f, %.2f)\n", entry.Point.X, entry.Point.Y, entry.Point.Z)
		fmt.Printf("count:       %d\n", entry.Count)
		fmt.Printf("first heard: %s\n", entry.FirstHeard.Format("2006-01-02 15:04:05"))
		fmt.Printf("last heard:  %s\n", entry.LastHeard.Format("2006-01-02 15:04:05"))
		fmt.Printf("fallback:    %v\n", entry.Fallback)
		if entry.UtteranceID != "" {
			fmt.Printf("utterance:   %s\n", entry.UtteranceID)
		}
		return nil
	},
}

var vocabDeleteCmd = &cobra.Command{
	Use:   "delete <word>",
	Short: "Delete a word from the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVocabStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %q\n", args[0])
		return nil
	},
}

func init() {
	vocabCmd.AddCommand(vocabListCmd)
	vocabCmd.AddCommand(vocabShowCmd)
	vocabCmd.AddCommand(vocabDeleteCmd)
	rootCmd.AddCommand(vocabCmd)
}
