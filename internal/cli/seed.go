package cli

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bugfeature-quiz-service/internal/app"
	"bugfeature-quiz-service/internal/config"
	"bugfeature-quiz-service/internal/domain"
)

//go:embed seed_questions.yaml
var seedQuestionsYAML []byte

type seedQuestion struct {
	Title       string `yaml:"title"`
	Text        string `yaml:"text"`
	Answer      string `yaml:"answer"`
	Explanation string `yaml:"explanation"`
	Difficulty  int    `yaml:"difficulty"`
	Votes       int    `yaml:"votes"`
}

// NewSeedCmd loads the bundled starter questions into the database.
func NewSeedCmd(configPath *string) *cobra.Command {
	var userName, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the bundled starter questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, userName, password)
		},
	}
	cmd.Flags().StringVar(&userName, "user", "official", "user the starter questions are filed under")
	cmd.Flags().StringVar(&password, "password", "official", "password for the seed user")
	return cmd
}

func runSeed(ctx context.Context, configPath, userName, password string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var pack []seedQuestion
	if err := yaml.Unmarshal(seedQuestionsYAML, &pack); err != nil {
		return fmt.Errorf("parse seed pack: %w", err)
	}

	service := app.NewQuizService(store)
	user, err := service.ResolveOrCreateUser(ctx, userName, password)
	if err != nil {
		return err
	}

	for _, entry := range pack {
		q, err := service.SubmitQuestion(ctx, user.Ident, domain.QuestionSubmission{
			Title:       entry.Title,
			Text:        entry.Text,
			Answer:      entry.Answer,
			Explanation: entry.Explanation,
			Difficulty:  entry.Difficulty,
		})
		if err != nil {
			return fmt.Errorf("seed %q: %w", entry.Title, err)
		}
		if entry.Votes > 0 {
			if err := service.OverrideVotes(ctx, q.Ident, entry.Votes); err != nil {
				return fmt.Errorf("seed votes for %q: %w", entry.Title, err)
			}
		}
	}
	log.Printf("seeded %d questions as user %q", len(pack), userName)
	return nil
}
