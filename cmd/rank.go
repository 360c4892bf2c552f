package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/catalog"
	"github.com/spigell/hh-matcher/internal/logger"
)

const (
	PromptShow                = "Show ranked results"
	PromptExit                = "Exit"
	PromptReportByEmployers   = "Report by employers"
	PromptResultsToFile       = "Dump results to file"
	PromptAppendToExcludeFile = "Append all jobs to exclude file"
)

var errExit = errors.New("exit requested")

var rankJobsCmd = &cobra.Command{
	Use:   "rank-jobs",
	Short: "Rank active jobs for one profile",
	Run: func(cmd *cobra.Command, _ []string) {
		rankJobs(cmd)
	},
}

var rankProfilesCmd = &cobra.Command{
	Use:   "rank-profiles",
	Short: "Rank eligible profiles for one job",
	Run: func(cmd *cobra.Command, _ []string) {
		rankProfiles(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankJobsCmd)
	rootCmd.AddCommand(rankProfilesCmd)

	rankJobsCmd.Flags().StringP("profile", "p", "", "profile id to rank jobs for")
	rankJobsCmd.Flags().String("employer", "", "only rank jobs of this employer id")
	rankJobsCmd.Flags().Float64("min-score", -1, "keep jobs scoring above this value (default ranking.min-job-score)")
	rankJobsCmd.Flags().BoolP("yes", "y", false, "do not ask for an action, print the results and exit")
	rankJobsCmd.Flags().StringP("exclude-file", "e", "", "special file with jobs to exclude. Default is unset.")
	rankJobsCmd.MarkFlagRequired("profile")

	viper.BindPFlag("exclude-file", rankJobsCmd.Flags().Lookup("exclude-file"))

	rankProfilesCmd.Flags().StringP("job", "J", "", "job id to rank profiles for")
	rankProfilesCmd.Flags().Float64("min-score", -1, "keep profiles scoring above this value (default ranking.min-profile-score)")
	rankProfilesCmd.Flags().BoolP("yes", "y", false, "do not ask for an action, print the results and exit")
	rankProfilesCmd.MarkFlagRequired("job")
}

func rankJobs(cmd *cobra.Command) {
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
	employerID, _ := cmd.Flags().GetString("employer")

	profiles, err := catalog.LoadProfiles(config.Data.Profiles)
	if err != nil {
		logger.Fatal("loading profiles", zap.Error(err))
	}
	profile := profiles.FindByID(profileID)
	if profile == nil {
		logger.Fatal("profile not found", zap.String("profile_id", profileID))
	}

	jobs, err := catalog.LoadJobs(config.Data.Jobs)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}
	logger.Info("getting jobs", zap.Int("count", jobs.Len()))

	if employerID != "" {
		jobs = jobs.ByEmployer(employerID)
		logger.Info("scoping jobs to employer", zap.String("employer_id", employerID), zap.Int("count", jobs.Len()))
	}

	filters := newJobFilters(config, logger)
	for _, status := range filters.Describe() {
		logger.Debug("filter configured", zap.String("name", status.Name), zap.Bool("enabled", status.Enabled), zap.Any("details", status.Details))
	}

	jobs, err = filters.RunFilters(ctx, jobs)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if jobs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left after filters"))
		return
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the engine", zap.Error(err))
	}
	defer svc.close()

	minScore := thresholdFlag(cmd, config.Ranking.MinJobScore)
	matches, err := svc.ranker.RankJobs(ctx, profile, jobs.Items, minScore)
	if err != nil {
		logger.Fatal("ranking jobs", zap.Error(err))
	}

	if len(matches) == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs scored above the threshold"), zap.Float64("min_score", minScore))
		return
	}

	ranked := &catalog.Jobs{Items: make([]*catalog.Job, 0, len(matches))}
	for _, m := range matches {
		ranked.Items = append(ranked.Items, m.Job)
	}

	actions := []string{PromptShow, PromptReportByEmployers, PromptResultsToFile, PromptAppendToExcludeFile, PromptExit}
	handle := func(action string) error {
		switch action {
		case PromptReportByEmployers:
			pretty, _ := json.MarshalIndent(ranked.ReportByEmployer(), "", "  ")
			logger.Info(string(pretty), zap.Int("jobs count", ranked.Len()))
			return nil
		case PromptAppendToExcludeFile:
			return appendToExcludeFile(logger, config.ExcludeFile, ranked)
		default:
			return handleCommonAction(action, logger, "hh-matcher-jobs-*.json", matches)
		}
	}

	interact(cmd, logger, actions, handle, matches)
}

func rankProfiles(cmd *cobra.Command) {
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

	jobID, _ := cmd.Flags().GetString("job")

	jobs, err := catalog.LoadJobs(config.Data.Jobs)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}
	job := jobs.FindByID(jobID)
	if job == nil {
		logger.Fatal("job not found", zap.String("job_id", jobID))
	}

	profiles, err := catalog.LoadProfiles(config.Data.Profiles)
	if err != nil {
		logger.Fatal("loading profiles", zap.Error(err))
	}

	eligible := profiles.Eligible()
	logger.Info("getting profiles", zap.Int("count", profiles.Len()), zap.Int("eligible", eligible.Len()))

	if eligible.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no eligible profiles"))
		return
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the engine", zap.Error(err))
	}
	defer svc.close()

	minScore := thresholdFlag(cmd, config.Ranking.MinProfileScore)
	matches, err := svc.ranker.RankProfiles(ctx, job, eligible.Items, minScore)
	if err != nil {
		logger.Fatal("ranking profiles", zap.Error(err))
	}

	if len(matches) == 0 {
		logger.Info("exiting", zap.String("reason", "no profiles scored above the threshold"), zap.Float64("min_score", minScore))
		return
	}

	actions := []string{PromptShow, PromptResultsToFile, PromptExit}
	handle := func(action string) error {
		return handleCommonAction(action, logger, "hh-matcher-profiles-*.json", matches)
	}

	interact(cmd, logger, actions, handle, matches)
}

// interact prints the results with --yes, otherwise loops over the action menu.
func interact(cmd *cobra.Command, logger *zap.Logger, actions []string, handle func(string) error, results any) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		if err := printJSON(results); err != nil {
			logger.Fatal("printing results", zap.Error(err))
		}
		return
	}

	prompt := promptui.Select{
		Label: "Next action?",
		Items: actions,
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handle(action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleCommonAction(action string, logger *zap.Logger, pattern string, results any) error {
	switch action {
	case PromptShow:
		return printJSON(results)
	case PromptResultsToFile:
		filename, err := catalog.DumpToTmpFile(pattern, results)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func appendToExcludeFile(logger *zap.Logger, path string, jobs *catalog.Jobs) error {
	if path == "" {
		logger.Warn("exclude file is not configured", zap.String("hint", "set exclude-file in the config or pass --exclude-file"))
		return nil
	}

	excluded, err := catalog.GetExcludedJobsFromFile(path)
	if err != nil {
		return fmt.Errorf("reading exclude file: %w", err)
	}

	before := len(excluded.Items)
	excluded.Append(jobs.ToExcluded())

	if err := excluded.ToFile(path); err != nil {
		return fmt.Errorf("writing exclude file: %w", err)
	}

	logger.Info("jobs appended to exclude file",
		zap.String("path", path),
		zap.Int("added", len(excluded.Items)-before),
		zap.Int("total", len(excluded.Items)),
	)
	return nil
}

// thresholdFlag returns --min-score when given, otherwise fallback.
func thresholdFlag(cmd *cobra.Command, fallback float64) float64 {
	if !cmd.Flags().Changed("min-score") {
		return fallback
	}
	v, _ := cmd.Flags().GetFloat64("min-score")
	return v
}
