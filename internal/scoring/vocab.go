package scoring

// KnownSkills is the vocabulary scanned when extracting skills from resume text.
var KnownSkills = []string{
	"javascript",
	"typescript",
	"python",
	"java",
	"react",
	"angular",
	"vue",
	"node.js",
	"express",
	"html",
	"css",
	"sql",
	"mongodb",
	"postgresql",
	"mysql",
	"redis",
	"aws",
	"azure",
	"gcp",
	"docker",
	"kubernetes",
	"git",
	"linux",
	"django",
	"flask",
	"spring",
	"c++",
	"c#",
	"php",
	"ruby",
	"golang",
	"graphql",
	"machine learning",
	"data analysis",
	"project management",
	"leadership",
	"communication",
	"teamwork",
	"problem solving",
	"agile",
}

// ExperienceIndicators are words that hint at hands-on work history.
var ExperienceIndicators = []string{
	"years",
	"experience",
	"worked",
	"developed",
	"managed",
	"led",
	"created",
	"built",
	"designed",
	"implemented",
	"delivered",
	"achieved",
	"responsible",
}

// SeniorityTerms are words that hint at leadership or seniority.
var SeniorityTerms = []string{
	"senior",
	"lead",
	"principal",
	"architect",
	"manager",
	"director",
	"team lead",
	"technical lead",
	"project manager",
}

// EducationKeyword maps a degree keyword to its rank score.
type EducationKeyword struct {
	Keyword string
	Score   int
}

// EducationLevels is ordered; earlier entries win ties.
var EducationLevels = []EducationKeyword{
	{Keyword: "phd", Score: 100},
	{Keyword: "doctorate", Score: 100},
	{Keyword: "ph.d", Score: 100},
	{Keyword: "master", Score: 80},
	{Keyword: "mba", Score: 80},
	{Keyword: "bachelor", Score: 60},
	{Keyword: "associate", Score: 40},
	{Keyword: "diploma", Score: 30},
	{Keyword: "certificate", Score: 20},
	{Keyword: "high school", Score: 10},
	{Keyword: "ged", Score: 10},
}

// TechnicalFields is ordered; the first field present in a resume is reported.
var TechnicalFields = []string{
	"computer science",
	"software engineering",
	"computer engineering",
	"information technology",
	"information systems",
	"data science",
	"electrical engineering",
	"mathematics",
	"statistics",
	"physics",
	"engineering",
	"business administration",
}
