package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordscape/wordscape/pkg/embedding"
)

var embedURL string

var embedCmd = &cobra.Command{
	Use:   "embed <word>...",
	Short: "Look up 3D positions for words",
	Long: `Look up each word's position in 3D space via the embedding service.
When the service is unreachable the deterministic local fallback is
used and marked in the output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		baseURL := embedURL
		if baseURL == "" {
			baseURL = cfg.EmbeddingURL
		}
		if baseURL == "" {
			return fmt.Errorf("no embedding service: set embedding_url or pass --url")
		}

		client := embedding.NewClient(baseURL)
		for _, word := range args {
			point, fallback := client.Resolve(cmd.Context(), word)
			suffix := ""
			if fallback {
				suffix = "  (fallback)"
			}
			fmt.Printf("%-20s x=%8.2f  y=%8.2f  z=%8.2f%s\n",
				point.Label, point.X, point.Y, point.Z, suffix)
		}

		if IsVerbose() {
			stats := client.Stats()
			fmt.Printf("requests=%d retries=%d failures=%d fallbacks=%d\n",
				stats.Requests, stats.Retries, stats.Failures, stats.Fallbacks)
		}
		return nil
	},
}

func init() {
	embedCmd.Flags().StringVar(&embedURL, "url", "", "embedding service base URL (overrides config)")
	rootCmd.AddCommand(embedCmd)
}
