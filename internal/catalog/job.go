package catalog

import (
	"fmt"
	"strings"
	"time"
)

const (
	JobIDField         = "ID"
	JobEmployerIDField = "EmployerID"
)

// Job is a posting as consumed by the scoring engine.
type Job struct {
	ID              string   `json:"id" yaml:"id"`
	EmployerID      string   `json:"employer_id,omitempty" yaml:"employer_id"`
	EmployerName    string   `json:"employer_name,omitempty" yaml:"employer_name"`
	URL             string   `json:"url,omitempty" yaml:"url"`
	Title           string   `json:"title" yaml:"title"`
	Description     string   `json:"description,omitempty" yaml:"description"`
	RequiredSkills  []string `json:"required_skills,omitempty" yaml:"required_skills"`
	PreferredSkills []string `json:"preferred_skills,omitempty" yaml:"preferred_skills"`
	Languages       []string `json:"languages,omitempty" yaml:"languages"`
	// ExperienceYears is nil when the posting states no requirement.
	ExperienceYears *int `json:"experience_years,omitempty" yaml:"experience_years"`
	// Active defaults to true when a data file omits it; see ParseJobs.
	Active bool `json:"active" yaml:"-"`
}

// Jobs is an ordered collection of postings.
type Jobs struct {
	Items []*Job
}

// RequiredYears returns the experience requirement, treating unset as zero.
func (j *Job) RequiredYears() int {
	if j == nil || j.ExperienceYears == nil || *j.ExperienceYears < 0 {
		return 0
	}
	return *j.ExperienceYears
}

func (j *Job) GetStringField(name string) string {
	switch name {
	case JobIDField:
		return j.ID
	case JobEmployerIDField:
		return j.EmployerID
	default:
		return ""
	}
}

func (v *Jobs) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Items)
}

func (v *Jobs) FindByID(id string) *Job {
	for _, job := range v.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// Active returns the postings open for matching, keeping their order.
func (v *Jobs) Active() *Jobs {
	return v.filter(func(j *Job) bool { return j.Active })
}

// ByEmployer returns one employer's postings, keeping their order.
func (v *Jobs) ByEmployer(employerID string) *Jobs {
	return v.filter(func(j *Job) bool { return j.EmployerID == employerID })
}

func (v *Jobs) filter(keep func(*Job) bool) *Jobs {
	out := &Jobs{Items: make([]*Job, 0, v.Len())}
	for _, job := range v.Items {
		if job != nil && keep(job) {
			out.Items = append(out.Items, job)
		}
	}
	return out
}

// Exclude removes every job whose field equals one of targets and returns the
// removed IDs. The order of the remaining jobs is preserved.
func (v *Jobs) Exclude(field string, targets []string) []string {
	drop := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		drop[target] = struct{}{}
	}

	var excluded []string
	kept := v.Items[:0]
	for _, job := range v.Items {
		if _, ok := drop[job.GetStringField(field)]; ok {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	v.Items = kept

	return excluded
}

// ReportByEmployer groups postings by employer for a quick overview.
func (v *Jobs) ReportByEmployer() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range v.Items {
		key := fmt.Sprintf("%s (%s)", job.EmployerName, job.EmployerID)
		entry := map[string]string{
			"id":              job.ID,
			"title":           job.Title,
			"url":             job.URL,
			"required_skills": strings.Join(job.RequiredSkills, ", "),
		}
		if job.ExperienceYears != nil {
			entry["experience_years"] = fmt.Sprintf("%d", *job.ExperienceYears)
		}
		report[key] = append(report[key], entry)
	}
	return report
}

// ToExcluded converts the postings into exclude file entries.
func (v *Jobs) ToExcluded() *ExcludedJobs {
	excluded := &ExcludedJobs{}
	now := time.Now().UTC()
	for _, job := range v.Items {
		excluded.Items = append(excluded.Items, &ExcludedJob{
			ID:           job.ID,
			URL:          job.URL,
			EmployerName: job.EmployerName,
			ExcludedAt:   now,
		})
	}
	return excluded
}
