package catalog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/spigell/hh-matcher/internal/apperr"
)

const dateLayout = "2006-01-02"

// LoadJobs reads a YAML list of jobs. Jobs without an explicit active flag are active.
func LoadJobs(path string) (*Jobs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file: %w", err)
	}
	return ParseJobs(data)
}

// ParseJobs decodes a YAML list of jobs.
func ParseJobs(data []byte) (*Jobs, error) {
	var raw []struct {
		Job    `yaml:",inline"`
		Active *bool `yaml:"active"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding jobs: %w", apperr.ErrInvalidInput, err)
	}

	jobs := &Jobs{Items: make([]*Job, 0, len(raw))}
	for i, r := range raw {
		job := r.Job
		job.ID = strings.TrimSpace(job.ID)
		if job.ID == "" {
			return nil, fmt.Errorf("%w: job #%d has no id", apperr.ErrInvalidInput, i)
		}
		job.Active = r.Active == nil || *r.Active
		jobs.Items = append(jobs.Items, &job)
	}
	return jobs, nil
}

// LoadProfiles reads a YAML list of profile sources and projects them as of now.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}
	return ParseProfiles(data, time.Now())
}

// ParseProfiles decodes a YAML list of profile sources tagged by kind.
func ParseProfiles(data []byte, now time.Time) (*Profiles, error) {
	sources, err := ParseSources(data)
	if err != nil {
		return nil, err
	}

	profiles := &Profiles{Items: make([]*Profile, 0, len(sources))}
	for _, src := range sources {
		p, err := ProjectAt(src, now)
		if err != nil {
			return nil, err
		}
		profiles.Items = append(profiles.Items, p)
	}
	return profiles, nil
}

// ParseSources decodes the tagged profile sources without projecting them.
func ParseSources(data []byte) ([]Source, error) {
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding profiles: %w", apperr.ErrInvalidInput, err)
	}

	sources := make([]Source, 0, len(raw))
	for i, entry := range raw {
		kind, _ := entry["kind"].(string)
		delete(entry, "kind")

		var src Source
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case KindUploaded:
			src = &Uploaded{}
		case KindBuilt:
			src = &Built{}
		default:
			return nil, fmt.Errorf("%w: profile #%d has unknown kind %q", apperr.ErrInvalidInput, i, kind)
		}

		if err := decodeSource(entry, src); err != nil {
			return nil, fmt.Errorf("%w: profile #%d: %w", apperr.ErrInvalidInput, i, err)
		}
		if strings.TrimSpace(src.SourceID()) == "" {
			return nil, fmt.Errorf("%w: profile #%d has no id", apperr.ErrInvalidInput, i)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func decodeSource(input map[string]any, out Source) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(dateLayout),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
