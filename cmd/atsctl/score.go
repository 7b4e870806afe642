package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ats-backend/internal/extract"
	"ats-backend/internal/scoring"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/similarity"
)

type scoreOptions struct {
	resumePath string
	jobPath    string
	noSemantic bool
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a resume file against a job requirements file",
		Long: "Extracts text from a PDF, DOCX or plain-text resume, scores it against the job " +
			"requirements JSON and prints the analysis result.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.resumePath, "resume", "r", "", "Path to the resume (pdf, docx, txt)")
	cmd.Flags().StringVarP(&opts.jobPath, "job", "j", "", "Path to job requirements JSON (omit for a job-less analysis)")
	cmd.Flags().BoolVar(&opts.noSemantic, "no-semantic", false, "Skip the similarity API even when configured")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}

func runScore(cmd *cobra.Command, opts *scoreOptions) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(opts.resumePath)
	if err != nil {
		return fmt.Errorf("read resume: %w", err)
	}
	text, err := extract.ExtractText(ctx, data, "", filepath.Base(opts.resumePath))
	if err != nil {
		return fmt.Errorf("extract resume text: %w", err)
	}

	var job *scoring.JobRequirements
	if opts.jobPath != "" {
		raw, err := os.ReadFile(opts.jobPath)
		if err != nil {
			return fmt.Errorf("read job: %w", err)
		}
		job = &scoring.JobRequirements{}
		if err := json.Unmarshal(raw, job); err != nil {
			return fmt.Errorf("decode job: %w", err)
		}
	}

	var scorer scoring.SimilarityScorer
	if !opts.noSemantic {
		cfg := config.Load()
		client := similarity.NewClient(similarity.Config{
			URL:        cfg.SimilarityURL,
			APIKey:     cfg.SimilarityAPIKey,
			Timeout:    cfg.SimilarityTimeout,
			MaxRetries: cfg.SimilarityMaxRetries,
		})
		if client.Configured() {
			scorer = client
		}
	}

	result := scoring.NewAnalyzer(scorer).Analyze(ctx, text, job)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
