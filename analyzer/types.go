package analyzer

// AnalysisResult is the validated output of one URL analysis
type AnalysisResult struct {
	OG           OGData         `json:"og"`
	SEO          SEOAnalysis    `json:"seo"`
	JSONLD       map[string]any `json:"json_ld"`
	HTMLMetaTags string         `json:"html_meta_tags"`
}

// OGData holds the Open Graph preview fields
type OGData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"site_name"`
	URL         string `json:"url"`
}

// SEOAnalysis is the audit part of the result
type SEOAnalysis struct {
	TitleAnalysis       FieldAnalysis `json:"title_analysis"`
	DescriptionAnalysis FieldAnalysis `json:"description_analysis"`
	Keywords            []string      `json:"keywords"`
	MissingTags         []string      `json:"missing_tags"`
	HeadingsStructure   []string      `json:"headings_structure"`
	SuggestedSections   []string      `json:"suggested_sections"`
	FAQSuggestions      []FAQItem     `json:"faq_suggestions"`
	AuditChecks         []AuditCheck  `json:"audit_checks"`
}

// FieldAnalysis compares the current value of a tag with a suggested one
type FieldAnalysis struct {
	Current     string `json:"current"`
	Suggested   string `json:"suggested"`
	LengthCheck string `json:"length_check"`
}

type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AuditStatus is the severity of a single audit finding
type AuditStatus string

const (
	StatusGood     AuditStatus = "good"
	StatusWarning  AuditStatus = "warning"
	StatusCritical AuditStatus = "critical"
)

type AuditCheck struct {
	Status  AuditStatus `json:"status"`
	Label   string      `json:"label"`
	Message string      `json:"message"`
}

// PageSnapshot is what could be read directly from the target page
type PageSnapshot struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Canonical   string   `json:"canonical"`
	SiteName    string   `json:"site_name"`
	Image       string   `json:"image"`
	Headings    []string `json:"headings"`
}

// Empty reports whether the snapshot carries nothing useful for the prompt
func (s *PageSnapshot) Empty() bool {
	return s == nil || (s.Title == "" && s.Description == "" && s.Canonical == "" &&
		s.SiteName == "" && s.Image == "" && len(s.Headings) == 0)
}
