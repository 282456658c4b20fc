package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-scorer/internal/extract"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/scoring"
)

var errNotInteractive = errors.New("not attached to a terminal")

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a resume file against a job description file",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("resume", "r", "", "path to the resume (PDF or plain text)")
	scoreCmd.Flags().StringP("job", "J", "", "path to the job description (PDF or plain text)")
	scoreCmd.Flags().Bool("detailed", false, "print the detailed report instead of the bare score")
}

func score(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	resumePath, err := pathFlag(cmd, "resume", "Resume file")
	if err != nil {
		logger.Fatal("resume path is required", zap.Error(err))
	}
	jobPath, err := pathFlag(cmd, "job", "Job description file")
	if err != nil {
		logger.Fatal("job description path is required", zap.Error(err))
	}

	resume, job, err := loadDocuments(extract.New(logger), resumePath, jobPath)
	if err != nil {
		logger.Fatal("reading documents", zap.Error(err))
	}

	scorer, analyzer, err := newScoring(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the scorer", zap.Error(err))
	}

	detailed, _ := cmd.Flags().GetBool("detailed")
	if err := printScore(ctx, os.Stdout, scorer, analyzer, resume, job, detailed); err != nil {
		logger.Fatal("scoring failed", zap.Error(err))
	}
}

// pathFlag returns the flag value, prompting for it when empty and stdin is a terminal.
func pathFlag(cmd *cobra.Command, name, label string) (string, error) {
	value, _ := cmd.Flags().GetString(name)
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}

	if !isTerminal(os.Stdin) {
		return "", fmt.Errorf("--%s: %w", name, errNotInteractive)
	}

	prompt := promptui.Prompt{
		Label:    label,
		Validate: validatePath,
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt for --%s: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func validatePath(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return errors.New("path must not be empty")
	}
	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", input)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// loadDocuments extracts both files concurrently.
func loadDocuments(extractor *extract.Extractor, resumePath, jobPath string) (string, string, error) {
	var resume, job string

	var g errgroup.Group
	g.Go(func() error {
		text, err := extractFile(extractor, resumePath)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		resume = text
		return nil
	})
	g.Go(func() error {
		text, err := extractFile(extractor, jobPath)
		if err != nil {
			return fmt.Errorf("job description: %w", err)
		}
		job = text
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return resume, job, nil
}

func extractFile(extractor *extract.Extractor, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return extractor.ExtractText(f)
}

func printScore(ctx context.Context, w io.Writer, scorer *scoring.Scorer, analyzer *scoring.Analyzer, resume, job string, detailed bool) error {
	var out any
	if detailed {
		result := analyzer.Analyze(ctx, resume, job)
		if result.Degraded() {
			return result.Err
		}
		out = result
	} else {
		s, err := scorer.Score(ctx, resume, job)
		if err != nil {
			return err
		}
		out = map[string]float64{"score": s}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
