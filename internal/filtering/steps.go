package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/catalog"
	"github.com/spigell/hh-matcher/internal/logger"
)

type activeFilter struct {
	toggle
	logger *zap.Logger
}

// NewActive creates a filter that removes inactive jobs.
func NewActive(log *zap.Logger) Filter {
	return &activeFilter{logger: logger.WithFields(log)}
}

func (f *activeFilter) Name() string { return "active" }

func (f *activeFilter) Validate() error { return nil }

func (f *activeFilter) Apply(_ context.Context, jobs *catalog.Jobs) (*catalog.Jobs, Step, error) {
	initial := jobs.Len()
	active := jobs.Active()

	if dropped := initial - active.Len(); dropped > 0 {
		f.logger.Info("excluding inactive jobs",
			zap.Int("excluded_jobs", dropped),
			zap.Int("jobs_left", active.Len()),
		)
	}

	return active, Step{Initial: initial, Dropped: initial - active.Len(), Left: active.Len()}, nil
}

func (f *activeFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type employersFilter struct {
	toggle
	employers []string
	logger    *zap.Logger
}

// NewExcludedEmployers creates a filter that removes jobs posted by the given employers.
func NewExcludedEmployers(employers []string, log *zap.Logger) Filter {
	return &employersFilter{
		employers: employers,
		logger:    logger.WithFields(log),
	}
}

func (f *employersFilter) Name() string { return "employers" }

func (f *employersFilter) Validate() error {
	for _, id := range f.employers {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("blank employer id in exclude list")
		}
	}
	return nil
}

func (f *employersFilter) Apply(_ context.Context, jobs *catalog.Jobs) (*catalog.Jobs, Step, error) {
	initial := jobs.Len()
	if len(f.employers) == 0 {
		return jobs, Step{Initial: initial, Dropped: 0, Left: jobs.Len()}, nil
	}

	excluded := jobs.Exclude(catalog.JobEmployerIDField, f.employers)
	if len(excluded) > 0 {
		f.logger.Info("excluding jobs by employers",
			zap.Strings("excluded_employers", f.employers),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *employersFilter) Status() Status {
	details := map[string]string{"count": strconv.Itoa(len(f.employers))}
	if len(f.employers) > 0 {
		details["employers"] = strings.Join(f.employers, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type excludeFileFilter struct {
	toggle
	path   string
	logger *zap.Logger
}

// NewExcludeFile creates a filter that removes jobs listed in an exclude file.
func NewExcludeFile(path string, log *zap.Logger) Filter {
	return &excludeFileFilter{
		path:   strings.TrimSpace(path),
		logger: logger.WithFields(log),
	}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, jobs *catalog.Jobs) (*catalog.Jobs, Step, error) {
	initial := jobs.Len()
	if f.path == "" {
		return jobs, Step{Initial: initial, Dropped: 0, Left: jobs.Len()}, nil
	}

	excluded, err := catalog.GetExcludedJobsFromFile(f.path)
	if err != nil {
		return jobs, Step{}, fmt.Errorf("getting excluded jobs from file: %w", err)
	}

	removed := jobs.Exclude(catalog.JobIDField, excluded.IDs())
	if len(removed) > 0 {
		f.logger.Info("excluding jobs based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_jobs", removed),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(removed), Left: jobs.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
