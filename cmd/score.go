package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/apperr"
	"github.com/spigell/hh-matcher/internal/catalog"
	"github.com/spigell/hh-matcher/internal/logger"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one profile against one job and print the explained result",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("profile", "p", "", "profile id")
	scoreCmd.Flags().StringP("job", "J", "", "job id")
	scoreCmd.Flags().Bool("best-effort", false, "score without semantic similarity when the backend is unavailable")

	scoreCmd.MarkFlagRequired("profile")
	scoreCmd.MarkFlagRequired("job")
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

	profileID, _ := cmd.Flags().GetString("profile")
	jobID, _ := cmd.Flags().GetString("job")
	bestEffort, _ := cmd.Flags().GetBool("best-effort")

	profile, job, err := loadPair(config, profileID, jobID)
	if err != nil {
		logger.Fatal("loading the pair", zap.Error(err),
			zap.String("hint", "check data.profiles and data.jobs in the configuration file"),
		)
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the engine", zap.Error(err))
	}
	defer svc.close()

	scoreFn := svc.engine.ScorePair
	if bestEffort {
		scoreFn = svc.engine.Score
	}

	result, err := scoreFn(ctx, profile, job)
	if errors.Is(err, apperr.ErrServiceUnavailable) {
		logger.Fatal("semantic similarity backend is unavailable", zap.Error(err),
			zap.String("hint", "retry later, use --best-effort, or set similarity.backend to none"),
		)
	}
	if err != nil {
		logger.Fatal("scoring the pair", zap.Error(err))
	}

	logger.Info("pair scored",
		zap.String("profile_id", profile.ID),
		zap.String("job_id", job.ID),
		zap.Float64("score", result.Score),
		zap.String("level", result.Level),
		zap.Bool("degraded", result.Degraded),
	)

	if err := printJSON(result); err != nil {
		logger.Fatal("printing the result", zap.Error(err))
	}
}

func loadPair(config *Config, profileID, jobID string) (*catalog.Profile, *catalog.Job, error) {
	profiles, err := catalog.LoadProfiles(config.Data.Profiles)
	if err != nil {
		return nil, nil, err
	}
	profile := profiles.FindByID(profileID)
	if profile == nil {
		return nil, nil, fmt.Errorf("%w: profile not found: %s", apperr.ErrInvalidInput, profileID)
	}

	jobs, err := catalog.LoadJobs(config.Data.Jobs)
	if err != nil {
		return nil, nil, err
	}
	job := jobs.FindByID(jobID)
	if job == nil {
		return nil, nil, fmt.Errorf("%w: job not found: %s", apperr.ErrInvalidInput, jobID)
	}

	return profile, job, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
