// Command blueprint-cli streams a one-shot blueprint analysis of a local
// file to stdout, using the same pipeline as the web server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/blueprintmaster/blueprint/internal/analysis"
	"github.com/blueprintmaster/blueprint/internal/config"
	"github.com/blueprintmaster/blueprint/internal/llm"
	"github.com/blueprintmaster/blueprint/internal/logger"
	"github.com/blueprintmaster/blueprint/internal/ocr"
)

var (
	flagMethodologies []string
	flagBooks         []string
	flagCustomPrompt  string
)

var rootCmd = &cobra.Command{
	Use:   "blueprint-cli",
	Short: "Blueprint analysis from the command line",
	Long: `blueprint-cli runs the blueprint analysis pipeline against a local
document and streams the result to stdout. Configuration comes from
BLUEPRINT_* environment variables or a .env file.`,
	SilenceUsage: true,
}

var reviewCmd = &cobra.Command{
	Use:   "review <file>",
	Short: "Run a deep review of a blueprint document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(flagMethodologies) == 0 && len(flagBooks) == 0 {
			return fmt.Errorf("select at least one methodology (--methodology) or book (--book)")
		}
		svc, err := newPipeline()
		if err != nil {
			return err
		}
		document, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}

		frames := svc.ReviewDocument(cmd.Context(), analysis.ReviewRequest{
			Document:            document,
			FileName:            args[0],
			CustomPrompt:        flagCustomPrompt,
			Methodologies:       flagMethodologies,
			CustomMethodologies: flagBooks,
		})
		return printFrames(frames)
	},
}

var mindmapCmd = &cobra.Command{
	Use:   "mindmap <file>",
	Short: "Restructure a document into a Markmap mind map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newPipeline()
		if err != nil {
			return err
		}
		document, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}
		return printFrames(svc.SmartMindmap(cmd.Context(), document, args[0]))
	},
}

func newPipeline() (*analysis.Service, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return analysis.NewService(analysis.Config{
		OCR: ocr.NewTextInClient(ocr.TextInConfig{
			AppID:      cfg.OCR.AppID,
			SecretCode: cfg.OCR.SecretCode,
			BaseURL:    cfg.OCR.BaseURL,
			Timeout:    cfg.OCR.Timeout,
		}),
		LLM: llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}),
		Logger:      logger.WithComponent("cli"),
		Temperature: cfg.LLM.Temperature,
	}), nil
}

func printFrames(frames <-chan string) error {
	for frame := range frames {
		if frame == analysis.Sentinel || frame == analysis.KeepAliveFrame {
			continue
		}
		fmt.Print(frame)
	}
	fmt.Println()
	return nil
}

func init() {
	reviewCmd.Flags().StringSliceVarP(&flagMethodologies, "methodology", "m", nil,
		`built-in methodology keys, e.g. "huawei:strategy" or "general"`)
	reviewCmd.Flags().StringSliceVarP(&flagBooks, "book", "b", nil,
		"custom reference books/theories")
	reviewCmd.Flags().StringVarP(&flagCustomPrompt, "prompt", "p", "",
		"extra focus points for the review")
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(mindmapCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
