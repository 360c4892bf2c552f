package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/hh-matcher/internal/apperr"
	"github.com/spigell/hh-matcher/internal/textnorm"
)

const (
	KindUploaded = "uploaded"
	KindBuilt    = "built"
)

// yearsRe runs on normalized text, so Arabic-Indic digits are already ASCII
// and teh marbuta is folded to heh.
var yearsRe = regexp.MustCompile(`(\d+)\s*\+?\s*(?:years?|yrs?|سنوات|سنين|سنه|عاما|اعوام)`)

// Source is one of the record shapes a profile can be built from:
// Uploaded or Built.
type Source interface {
	SourceID() string
	Kind() string
	isSource()
}

// Uploaded is a resume file whose text was already parsed into fields.
type Uploaded struct {
	ID         string     `mapstructure:"id"`
	Title      string     `mapstructure:"title"`
	Processed  bool       `mapstructure:"processed"`
	ParsedData ParsedData `mapstructure:"parsed_data"`
}

// ParsedData holds the fields extracted from an uploaded resume.
type ParsedData struct {
	Skills          []string `mapstructure:"skills"`
	Languages       []string `mapstructure:"languages"`
	Experience      []string `mapstructure:"experience"`
	Education       []string `mapstructure:"education"`
	Certifications  []string `mapstructure:"certifications"`
	ExperienceYears *int     `mapstructure:"experience_years"`
}

// Built is a resume composed field by field.
type Built struct {
	ID             string          `mapstructure:"id"`
	Title          string          `mapstructure:"title"`
	Summary        string          `mapstructure:"summary"`
	Active         bool            `mapstructure:"active"`
	Skills         []BuiltSkill    `mapstructure:"skills"`
	Experiences    []Experience    `mapstructure:"experiences"`
	Education      []Education     `mapstructure:"education"`
	Languages      []Language      `mapstructure:"languages"`
	Projects       []Project       `mapstructure:"projects"`
	Certifications []Certification `mapstructure:"certifications"`
}

type BuiltSkill struct {
	Name  string `mapstructure:"name"`
	Level string `mapstructure:"level"`
	Years int    `mapstructure:"years"`
}

type Experience struct {
	Company      string     `mapstructure:"company"`
	Position     string     `mapstructure:"position"`
	StartDate    time.Time  `mapstructure:"start_date"`
	EndDate      *time.Time `mapstructure:"end_date"`
	Current      bool       `mapstructure:"current"`
	Description  string     `mapstructure:"description"`
	Achievements string     `mapstructure:"achievements"`
}

type Education struct {
	Institution  string `mapstructure:"institution"`
	Degree       string `mapstructure:"degree"`
	FieldOfStudy string `mapstructure:"field_of_study"`
}

type Language struct {
	Name  string `mapstructure:"name"`
	Level string `mapstructure:"level"`
}

type Project struct {
	Name         string `mapstructure:"name"`
	Description  string `mapstructure:"description"`
	Technologies string `mapstructure:"technologies"`
}

type Certification struct {
	Name                string `mapstructure:"name"`
	IssuingOrganization string `mapstructure:"issuing_organization"`
}

func (u *Uploaded) SourceID() string { return u.ID }
func (u *Uploaded) Kind() string     { return KindUploaded }
func (*Uploaded) isSource()          {}

func (b *Built) SourceID() string { return b.ID }
func (b *Built) Kind() string     { return KindBuilt }
func (*Built) isSource()          {}

// ProjectAt projects src into a Profile. now closes open-ended experiences.
func ProjectAt(src Source, now time.Time) (*Profile, error) {
	switch s := src.(type) {
	case *Uploaded:
		if s == nil {
			break
		}
		return s.project(), nil
	case *Built:
		if s == nil {
			break
		}
		return s.project(now), nil
	}
	return nil, fmt.Errorf("%w: unsupported profile source %T", apperr.ErrInvalidInput, src)
}

func (u *Uploaded) project() *Profile {
	d := u.ParsedData

	years := ExtractExperienceYears(d.Experience)
	if d.ExperienceYears != nil {
		years = max(*d.ExperienceYears, 0)
	}

	return &Profile{
		ID:                 u.ID,
		Title:              u.Title,
		Skills:             compact(d.Skills),
		Languages:          compact(d.Languages),
		ExperienceYears:    years,
		ExperienceText:     compact(d.Experience),
		EducationText:      compact(d.Education),
		CertificationsText: compact(d.Certifications),
		Eligible:           u.Processed,
	}
}

func (b *Built) project(now time.Time) *Profile {
	p := &Profile{
		ID:       b.ID,
		Title:    b.Title,
		Eligible: b.Active,
	}

	for _, s := range b.Skills {
		p.Skills = append(p.Skills, s.Name)
	}

	for _, e := range b.Experiences {
		p.ExperienceText = append(p.ExperienceText, joinFields(e.Position, e.Company, e.Description, e.Achievements))
		p.ExperienceYears += e.wholeYears(now)
	}

	for _, pr := range b.Projects {
		p.ExperienceText = append(p.ExperienceText, joinFields(pr.Name, pr.Description, pr.Technologies))
	}

	for _, e := range b.Education {
		p.EducationText = append(p.EducationText, joinFields(e.Degree, e.FieldOfStudy, e.Institution))
	}

	for _, l := range b.Languages {
		p.Languages = append(p.Languages, l.Name)
	}

	for _, c := range b.Certifications {
		p.CertificationsText = append(p.CertificationsText, joinFields(c.Name, c.IssuingOrganization))
	}

	p.Skills = compact(p.Skills)
	p.Languages = compact(p.Languages)
	p.ExperienceText = compact(p.ExperienceText)
	p.EducationText = compact(p.EducationText)
	p.CertificationsText = compact(p.CertificationsText)

	return p
}

// wholeYears counts complete years between start and end (now when open-ended).
func (e Experience) wholeYears(now time.Time) int {
	if e.StartDate.IsZero() {
		return 0
	}

	end := now
	if e.EndDate != nil && !e.Current {
		end = *e.EndDate
	}

	years := end.Year() - e.StartDate.Year()
	if end.Month() < e.StartDate.Month() || (end.Month() == e.StartDate.Month() && end.Day() < e.StartDate.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// ExtractExperienceYears returns the first "N years" figure found in entries.
func ExtractExperienceYears(entries []string) int {
	for _, entry := range entries {
		m := yearsRe.FindStringSubmatch(textnorm.Normalize(entry))
		if m == nil {
			continue
		}
		years, err := strconv.Atoi(m[1])
		if err == nil {
			return years
		}
	}
	return 0
}

func joinFields(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
