package types

// Profile is the candidate profile used for ranking and drafting.
type Profile struct {
	Name          string       `json:"name" validate:"required"`
	Headline      string       `json:"headline,omitempty"`
	Email         string       `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string       `json:"phone,omitempty"`
	LinkedIn      string       `json:"linkedin,omitempty"`
	Location      string       `json:"location,omitempty"`
	Summary       string       `json:"summary,omitempty"`
	Target        string       `json:"target,omitempty"`     // e.g. "In-house product roles in Singapore"
	Transition    string       `json:"transition,omitempty"` // e.g. "Consulting -> In-house product"
	YearsExp      int          `json:"years_experience,omitempty" validate:"gte=0"`
	Skills        []string     `json:"skills" validate:"required,min=1"`
	Certification string       `json:"certification,omitempty"`
	Experience    []Experience `json:"experience" validate:"required,min=1,dive"`
	Education     []Education  `json:"education,omitempty" validate:"dive"`
	Projects      []Project    `json:"projects,omitempty" validate:"dive"`
	Achievements  []string     `json:"achievements,omitempty"`
}

// Experience is one role in the candidate's history.
type Experience struct {
	Company string   `json:"company" validate:"required"`
	Role    string   `json:"role" validate:"required"`
	Period  string   `json:"period,omitempty"`
	Bullets []string `json:"bullets,omitempty"`
}

// Education is one degree entry.
type Education struct {
	Degree string `json:"degree" validate:"required"`
	School string `json:"school" validate:"required"`
	Period string `json:"period,omitempty"`
}

// Project is a personal or side project.
type Project struct {
	Title   string   `json:"title" validate:"required"`
	URL     string   `json:"url,omitempty" validate:"omitempty,url"`
	Tech    string   `json:"tech,omitempty"`
	Period  string   `json:"period,omitempty"`
	Bullets []string `json:"bullets,omitempty"`
}

// Validate validates the Profile using the validator.
func (p *Profile) Validate() error {
	return validate.Struct(p)
}

// ProjectURL returns the first project URL, used as proof of shipped work.
func (p *Profile) ProjectURL() string {
	for _, proj := range p.Projects {
		if proj.URL != "" {
			return proj.URL
		}
	}
	return ""
}
