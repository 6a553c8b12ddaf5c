package commands

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		out := *cfg
		if out.APIKey != "" {
			out.APIKey = redact(out.APIKey)
		}
		data, err := yaml.Marshal(&out)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		key, value := args[0], args[1]
		switch key {
		case "api_key":
			cfg.APIKey = value
		case "model":
			cfg.Model = value
		case "voice":
			cfg.Voice = value
		case "system_prompt":
			cfg.SystemPrompt = value
		case "transport":
			if value != "webrtc" && value != "websocket" {
				return fmt.Errorf("transport must be webrtc or websocket")
			}
			cfg.Transport = value
		case "embedding_url":
			cfg.EmbeddingURL = value
		case "vocab_dir":
			cfg.VocabDir = value
		case "token_limit":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("token_limit must be an integer: %w", err)
			}
			cfg.TokenLimit = n
		case "release_buffer_ms":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("release_buffer_ms must be an integer: %w", err)
			}
			cfg.ReleaseBufferMs = n
		case "mobile":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("mobile must be a boolean: %w", err)
			}
			cfg.Mobile = b
		default:
			return fmt.Errorf("unknown config key %q", key)
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("set %s\n", key)
		return nil
	},
}

func redact(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
