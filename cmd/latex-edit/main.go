// latex-edit applies natural-language editing instructions to LaTeX
// documents from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"latex-editor/internal/classifier"
	"latex-editor/internal/config"
	"latex-editor/internal/editor"
	"latex-editor/internal/generate"
	"latex-editor/internal/logger"
	"latex-editor/internal/types"
)

func main() {
	logger.Init(&logger.Config{
		LogFilePath:   "latex-editor.log",
		Level:         logger.LevelInfo,
		EnableConsole: false,
	})
	defer logger.Close()

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "latex-edit",
		Short: "Edit LaTeX documents with natural-language instructions",
		Long: `latex-edit 用自然语言指令编辑 LaTeX 文档。

Instructions are classified into structured edit intents, located in the
document, and applied as text transformations. With API keys configured
a language model does the classification; without keys a keyword parser
handles the common instruction forms.`,
		SilenceUsage: true,
	}
	root.AddCommand(newEditCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newConfigCmd())
	return root
}

func newEditCmd() *cobra.Command {
	var (
		file   string
		prompt string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply one instruction to a document",
		Example: `  latex-edit edit --file main.tex --prompt "remove all tables"
  latex-edit edit --file main.tex --prompt "replace 'CGM' with 'glucose monitor'" --out edited.tex`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			orch, err := buildOrchestrator()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			result := orch.EditOnce(ctx, string(source), prompt)
			printResult(cmd, result, prompt)
			if !result.Success {
				return fmt.Errorf("edit failed: %s", result.Message)
			}
			return writeResult(out, file, result.ResultText)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "LaTeX file to edit")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "editing instruction")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default: overwrite input)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("prompt")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		file        string
		promptsFile string
		out         string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Apply a file of instructions in sequence",
		Long: `Runs every non-empty line of the prompts file as one instruction,
each against the output of the previous step. Failed steps are reported
and skipped; they do not stop the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			prompts, err := readPrompts(promptsFile)
			if err != nil {
				return err
			}
			if len(prompts) == 0 {
				return fmt.Errorf("no instructions in %s", promptsFile)
			}

			orch, err := buildOrchestrator()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			results, final := orch.EditBatch(ctx, string(source), prompts)
			succeeded := 0
			for i, result := range results {
				prompt := ""
				if i < len(prompts) {
					prompt = prompts[i]
				}
				printResult(cmd, result, prompt)
				if result.Success {
					succeeded++
				}
			}
			cmd.Printf("Batch finished: %d/%d instructions applied\n", succeeded, len(prompts))

			if err := writeResult(out, file, final); err != nil {
				return err
			}
			if succeeded == 0 {
				return fmt.Errorf("no instruction in the batch succeeded")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "LaTeX file to edit")
	cmd.Flags().StringVar(&promptsFile, "prompts-file", "", "file with one instruction per line")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default: overwrite input)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("prompts-file")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and update the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewConfigManager("")
			if err != nil {
				return err
			}
			if err := mgr.Load(); err != nil {
				return err
			}
			keys := mgr.GetAPIKeys()
			cmd.Printf("Config file:  %s\n", mgr.GetConfigPath())
			cmd.Printf("Model:        %s\n", mgr.GetModel())
			cmd.Printf("Base URL:     %s\n", mgr.GetBaseURL())
			cmd.Printf("API keys:     %d configured\n", len(keys))
			cmd.Printf("Key cooldown: %s\n", mgr.GetKeyCooldown())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-keys <key>[,<key>...]",
		Short: "Store API keys in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys []string
			for _, k := range strings.Split(args[0], ",") {
				if k = strings.TrimSpace(k); k != "" {
					keys = append(keys, k)
				}
			}
			if len(keys) == 0 {
				return fmt.Errorf("no keys given")
			}
			mgr, err := config.NewConfigManager("")
			if err != nil {
				return err
			}
			if err := mgr.Load(); err != nil {
				return err
			}
			if err := mgr.SetAPIKeys(keys); err != nil {
				return err
			}
			cmd.Printf("✓ Saved %d key(s) to %s\n", len(keys), mgr.GetConfigPath())
			return nil
		},
	})

	return cmd
}

// buildOrchestrator wires the pipeline from configuration. With no API
// keys the keyword classifier and placeholder generator take over, so
// the tool stays usable offline.
func buildOrchestrator() (*editor.Orchestrator, error) {
	mgr, err := config.NewConfigManager("")
	if err != nil {
		return nil, err
	}
	if err := mgr.Load(); err != nil {
		return nil, err
	}

	keys := mgr.GetAPIKeys()
	if len(keys) == 0 {
		logger.Warn("no API keys configured, using keyword classification only")
		return editor.New(classifier.KeywordClassifier{}, nil, nil, nil), nil
	}

	pool, err := classifier.NewKeyPool(keys, mgr.GetKeyCooldown())
	if err != nil {
		return nil, err
	}

	cls := classifier.New(pool, classifier.Options{
		BaseURL:            mgr.GetBaseURL(),
		Model:              mgr.GetModel(),
		RequestTimeout:     mgr.GetRequestTimeout(),
		FallbackConfidence: mgr.GetFallbackConfidence(),
	})
	gen := generate.NewModelGenerator(pool, generate.Options{
		BaseURL:        mgr.GetBaseURL(),
		Model:          mgr.GetModel(),
		RequestTimeout: mgr.GetRequestTimeout(),
	})
	return editor.New(cls, nil, gen, nil), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// readPrompts loads one instruction per line, skipping blanks and #
// comment lines.
func readPrompts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	return prompts, nil
}

func printResult(cmd *cobra.Command, result *types.EditResult, prompt string) {
	if result.Success {
		cmd.Printf("✓ %s\n  %s\n", prompt, result.Message)
		return
	}
	cmd.Printf("✗ %s\n  [%s] %s\n", prompt, result.Reason, result.Message)
}

func writeResult(out, file, text string) error {
	path := out
	if path == "" {
		path = file
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("Written to %s\n", path)
	return nil
}
