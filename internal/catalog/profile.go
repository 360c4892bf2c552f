package catalog

// Profile is the canonical candidate shape consumed by the scoring engine.
// It is produced by projecting a Source and never mutated afterwards.
type Profile struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title,omitempty"`
	Skills             []string `json:"skills,omitempty"`
	Languages          []string `json:"languages,omitempty"`
	ExperienceYears    int      `json:"experience_years"`
	ExperienceText     []string `json:"experience_text,omitempty"`
	EducationText      []string `json:"education_text,omitempty"`
	CertificationsText []string `json:"certifications_text,omitempty"`
	// Eligible marks profiles that finished processing or are active.
	Eligible bool `json:"eligible"`
}

// Profiles is an ordered collection of candidate profiles.
type Profiles struct {
	Items []*Profile
}

func (p *Profiles) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

func (p *Profiles) FindByID(id string) *Profile {
	for _, profile := range p.Items {
		if profile.ID == id {
			return profile
		}
	}
	return nil
}

// Eligible returns the profiles that may be ranked, keeping their order.
func (p *Profiles) Eligible() *Profiles {
	out := &Profiles{Items: make([]*Profile, 0, p.Len())}
	for _, profile := range p.Items {
		if profile != nil && profile.Eligible {
			out.Items = append(out.Items, profile)
		}
	}
	return out
}
