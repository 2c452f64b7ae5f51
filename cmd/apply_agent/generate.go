package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/freelance-applier/internal/config"
	"github.com/jonathan/freelance-applier/internal/generation"
	"github.com/jonathan/freelance-applier/internal/scraping"
	"github.com/jonathan/freelance-applier/internal/types"
)

var generateCommand = &cobra.Command{
	Use:   "generate",
	Short: "Draft one document for a single job",
	Long:  "Drafts a cover letter, intro message or interview call script for one job read from a JSON file, using your profile. The document is printed or written to --out.",
	RunE:  runGenerateCmd,
}

var (
	genJobPath  string
	genKind     string
	genProfile  string
	genName     string
	genRate     string
	genProvider string
	genModel    string
	genAPIKey   string
	genOut      string
	genVerbose  bool
)

func init() {
	generateCommand.Flags().StringVarP(&genJobPath, "job", "j", "", "Path to a job JSON record (required)")
	generateCommand.Flags().StringVarP(&genKind, "kind", "k", string(types.KindCoverLetter), "Document kind: cover_letter, intro_message or call_script")
	generateCommand.Flags().StringVarP(&genProfile, "profile", "p", "", "Path to your profile text file (required)")
	generateCommand.Flags().StringVarP(&genName, "name", "n", "", "Your name")
	generateCommand.Flags().StringVar(&genRate, "rate", generation.DefaultDesiredRate, "Desired hourly rate in USD")
	generateCommand.Flags().StringVar(&genProvider, "provider", "gemini", "LLM provider: gemini or openai")
	generateCommand.Flags().StringVar(&genModel, "model", "", "Model name used for every tier")
	generateCommand.Flags().StringVar(&genAPIKey, "api-key", "", "LLM API key (optional, defaults to the provider's env var)")
	generateCommand.Flags().StringVarP(&genOut, "out", "o", "", "Write the document to this file instead of stdout")
	generateCommand.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "Print detailed debug information")

	_ = generateCommand.MarkFlagRequired("job")
	_ = generateCommand.MarkFlagRequired("profile")

	rootCmd.AddCommand(generateCommand)
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	kind, err := parseKind(genKind)
	if err != nil {
		return err
	}
	job, err := loadJob(genJobPath)
	if err != nil {
		return err
	}
	profile, err := config.LoadProfile(genProfile)
	if err != nil {
		return err
	}

	cfg := config.Config{Provider: genProvider, Model: genModel, APIKey: genAPIKey}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(apiKeyEnv(cfg.Provider))
	}
	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	level := "warn"
	if genVerbose {
		level = "debug"
	}
	logger := newLogger(&pipelineFlags{logLevel: level}, genVerbose)
	gen := generation.NewGenerator(client, generation.Options{ApplicantName: genName, DesiredRate: genRate}, logger)

	text, err := gen.Generate(ctx, kind, job, profile)
	if err != nil {
		return err
	}

	if genOut == "" {
		_, _ = fmt.Fprintln(os.Stdout, text)
		return nil
	}
	if err := os.WriteFile(genOut, []byte(text+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", genOut, err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "%s written to %s\n", kind, genOut)
	return nil
}

// parseKind accepts the document kinds with dashes or underscores
func parseKind(s string) (types.DocumentKind, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range types.DocumentKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown document kind %q (want cover_letter, intro_message or call_script)", s)
}

// loadJob reads exactly one job record and validates it
func loadJob(path string) (types.JobPosting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.JobPosting{}, fmt.Errorf("failed to read job file: %w", err)
	}
	records, err := scraping.DecodeRecords(data)
	if err != nil {
		return types.JobPosting{}, fmt.Errorf("failed to parse job file: %w", err)
	}
	if len(records) != 1 {
		return types.JobPosting{}, fmt.Errorf("job file must hold exactly one job, found %d", len(records))
	}
	return scraping.NormalizeRecord(records[0])
}
