package parser

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/josequispe9/ScraperMELI-Linkedin/locator"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

const (
	linkedInBase   = "https://www.linkedin.com"
	snippetMaxLen  = 200
	jobLinkPattern = `a[href*="/jobs/view/"]`
)

var hasJobLink = func(s *goquery.Selection) bool {
	return s.Find(jobLinkPattern).Length() > 0
}

// Job card chains. The logged-in search view comes first, then the public
// (guest) results list.
var (
	jobContainers = locator.MustChain("job.container", hasJobLink,
		`ul li:has(a[href*="/jobs/view/"])`,
		`li[data-occludable-job-id]`,
		`ul.jobs-search__results-list > li`,
		`div.base-card`,
		`li:has(div div div div div div a[href*="/jobs/view/"])`,
	)

	jobTitle = locator.MustChain("job.title", nil,
		`a[href*="/jobs/view/"] span strong`,
		`a[href*="/jobs/view/"] strong`,
		`.base-search-card__title`,
		`.job-card-list__title`,
		`a[href*="/jobs/view/"]`,
	)

	jobURL = locator.MustChain("job.url", locator.HasAttr("href"),
		`a.job-card-container__link`,
		`a.base-card__full-link`,
		`a[href*="/jobs/view/"]`,
	)

	jobCompany = locator.MustChain("job.company",
		locator.TextMatches(func(s string) bool { return !IsLocationText(s) }),
		`.artdeco-entity-lockup__subtitle span`,
		`.base-search-card__subtitle`,
		`.job-card-container__primary-description`,
		`span[dir="ltr"]:not(:has(strong))`,
		`div:nth-child(2) span[dir="ltr"]`,
		`div + div span[dir="ltr"]`,
	)

	jobLocation = locator.MustChain("job.location", locator.TextMatches(IsLocationText),
		`.job-search-card__location`,
		`.job-card-container__metadata-item`,
		`.artdeco-entity-lockup__caption`,
		`ul li span[dir="ltr"]`,
		`span[dir="ltr"]`,
	)

	jobPostedAttr = locator.MustChain("job.posted.datetime", locator.HasAttr("datetime"),
		`time[datetime]`,
	)

	jobPostedText = locator.MustChain("job.posted.text", nil,
		`time`,
		`span:contains("Hace")`,
		`span:contains("días")`,
		`span:contains("ago")`,
	)

	jobSnippet = locator.MustChain("job.snippet", nil,
		`.job-search-card__snippet`,
		`.job-card-container__snippet`,
		`.base-search-card__snippet`,
	)
)

// Job detail page chains.
var (
	jobDescription = locator.MustChain("job.detail.description", nil,
		`.jobs-description-content__text`,
		`.jobs-box__html-content`,
		`.description__text`,
		`.show-more-less-html__markup`,
	)

	experienceKeywords = []string{
		"prácticas", "sin experiencia", "algo de responsabilidad",
		"intermedio", "director", "ejecutivo",
		"entry", "senior", "mid", "junior", "level",
		"práctica", "entry level", "mid level", "senior level",
	}

	jobExperience = locator.MustChain("job.detail.experience",
		locator.TextMatches(func(s string) bool { return containsAny(s, experienceKeywords...) }),
		`span[dir="ltr"].job-details-jobs-unified-top-card__job-insight-view-model-secondary`,
		`.job-details-jobs-unified-top-card__job-insight-view-model-secondary`,
		`span[dir="ltr"][class*="job-insight-view-model-secondary"]`,
		`.job-details-jobs-unified-top-card__job-insight`,
		`.jobs-unified-top-card__job-insight`,
		`.description__job-criteria-text`,
	)

	jobBenefits = locator.MustChain("job.detail.benefits",
		locator.TextMatches(func(s string) bool { return containsAny(s, "beneficio", "benefit") }),
		`.jobs-unified-top-card__job-insight`,
		`.job-details-jobs-unified-top-card__job-insight`,
		`.jobs-benefits`,
	)
)

// JobParser parses LinkedIn job cards.
type JobParser struct {
	now func() time.Time
}

// NewJobParser returns a LinkedIn job parser.
func NewJobParser() *JobParser {
	return &JobParser{now: time.Now}
}

func (p *JobParser) Site() string               { return "linkedin" }
func (p *JobParser) Containers() *locator.Chain { return jobContainers }
func (p *JobParser) BaseURL() string            { return linkedInBase }

// ParseElement requires a title and a company.
func (p *JobParser) ParseElement(el *goquery.Selection, index int, term string) (models.Record, bool) {
	rec := models.JobRecord{
		Index:       index,
		ExtractedAt: p.now(),
		SearchTerm:  term,
		Title:       text(el, jobTitle),
		Company:     text(el, jobCompany),
		Location:    text(el, jobLocation),
	}
	if rec.Title == "" || rec.Company == "" {
		return nil, false
	}
	// The title chain's last fallback is the whole link, which also wraps
	// the company on some layouts.
	if rec.Company == rec.Title {
		return nil, false
	}

	if href := locator.Attr(el, jobURL, "href"); href != "" {
		rec.URL = StripQuery(AbsoluteURL(linkedInBase, href))
	}
	rec.Modality = InferModality(rec.Location)

	if dt := locator.Attr(el, jobPostedAttr, "datetime"); dt != "" {
		rec.PostedAt = dt
	} else {
		rec.PostedAt = text(el, jobPostedText)
	}

	if snippet := text(el, jobSnippet); snippet != "" {
		rec.Snippet = Truncate(snippet, snippetMaxLen)
	}
	return rec, true
}

// ParseDetails extracts the full description, experience level and benefits.
func (p *JobParser) ParseDetails(doc *goquery.Document) (map[string]string, string) {
	fields := make(map[string]string, 3)
	var descHTML string

	if m := locator.FindFirstMatch(doc.Selection, jobDescription); m.Found() {
		fields[models.DetailDescription] = CleanText(m.Text())
		descHTML, _ = m.Selection.First().Html()
	}
	if exp := text(doc.Selection, jobExperience); exp != "" {
		fields[models.DetailExperience] = strings.ReplaceAll(exp, `"`, "")
	}
	if benefits := text(doc.Selection, jobBenefits); benefits != "" {
		fields[models.DetailBenefits] = benefits
	}
	return fields, descHTML
}
