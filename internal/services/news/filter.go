package news

import (
	"strings"

	"github.com/ternarybob/tickerlens/internal/gdelt"
	"github.com/ternarybob/tickerlens/internal/models"
)

// reliableDomains are financial outlets whose articles pass without a
// topical tag
var reliableDomains = []string{
	"reuters.com", "bloomberg.com", "wsj.com", "cnbc.com", "ft.com",
	"marketwatch.com", "barrons.com", "finance.yahoo.com", "seekingalpha.com",
	"fool.com", "investors.com", "businessinsider.com", "forbes.com",
	"nasdaq.com", "apnews.com", "nytimes.com", "thestreet.com", "zacks.com",
	"benzinga.com", "morningstar.com", "investing.com",
}

// topicalTags mark finance-relevant headlines from other outlets
var topicalTags = []string{
	"earnings", "revenue", "guidance", "outlook", "forecast", "quarterly",
	"upgrade", "downgrade", "price target", "analyst", "acquisition",
	"merger", "dividend", "buyback", "lawsuit", "sec ", "fda", "layoffs",
	"ceo", "shares", "stock", "investor",
}

// regulatoryTags classify a headline as a regulatory event
var regulatoryTags = []string{
	"sec ", "fda", "antitrust", "lawsuit", "investigation", "probe",
	"regulator", "fine", "settlement", "ftc", "doj",
}

func isReliable(domain string) bool {
	domain = strings.ToLower(domain)
	for _, d := range reliableDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

func hasTag(title string, tags []string) bool {
	lower := strings.ToLower(title) + " "
	for _, tag := range tags {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

// filterArticles keeps English articles from a reliable domain or with a
// topical headline, dropping duplicate URLs and titles
func filterArticles(in []gdelt.Article, limit int) []models.Article {
	seen := make(map[string]bool)
	out := make([]models.Article, 0, len(in))

	for _, a := range in {
		if !strings.EqualFold(a.Language, "english") {
			continue
		}
		if !isReliable(a.Domain) && !hasTag(a.Title, topicalTags) {
			continue
		}
		title := strings.TrimSpace(a.Title)
		if title == "" || seen[a.URL] || seen[strings.ToLower(title)] {
			continue
		}
		seen[a.URL] = true
		seen[strings.ToLower(title)] = true

		out = append(out, models.Article{
			Title:     title,
			URL:       a.URL,
			Domain:    a.Domain,
			Language:  "en",
			Published: a.Published(),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
