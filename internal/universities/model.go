package universities

// Coordinates locate a campus.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Nearby is a campus students might share rides with.
type Nearby struct {
	Name          string  `json:"name"`
	ShortName     string  `json:"short_name"`
	City          string  `json:"city"`
	DistanceMiles float64 `json:"distance_miles"`
	Relationship  string  `json:"relationship,omitempty"`
}

// Info describes the university behind an email domain.
type Info struct {
	Valid              bool         `json:"valid"`
	UniversityName     string       `json:"university_name"`
	ShortName          string       `json:"short_name"`
	City               string       `json:"city,omitempty"`
	State              string       `json:"state,omitempty"`
	Country            string       `json:"country,omitempty"`
	UniversityType     string       `json:"university_type,omitempty"`
	StudentPopulation  int          `json:"student_population,omitempty"`
	FoundedYear        int          `json:"founded_year,omitempty"`
	NotablePrograms    []string     `json:"notable_programs,omitempty"`
	Coordinates        *Coordinates `json:"coordinates,omitempty"`
	NearbyUniversities []Nearby     `json:"nearby_universities,omitempty"`
	Legacy             bool         `json:"legacy,omitempty"`
	Error              string       `json:"error,omitempty"`
}

// UserUniversity is the summary block on the community-options response.
type UserUniversity struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	City      string `json:"city"`
	State     string `json:"state"`
}

// Options is the community-options response.
type Options struct {
	Communities        []string       `json:"communities"`
	UserUniversity     UserUniversity `json:"user_university"`
	NearbyUniversities []Nearby       `json:"nearby_universities"`
	Source             string         `json:"source"`
}

const (
	SourceAI     = "ai_powered"
	SourceLegacy = "legacy"
)
