package services

import (
	"regexp"
	"strings"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// queryPatterns are the phrase families that name a tag candidate. Each
// family contributes at most its first match.
var queryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`beste[nrs]?\s+(.+)`),
	regexp.MustCompile(`(?:bar|restaurant|cafe|café|ort)\s+mit\s+(.+)`),
	regexp.MustCompile(`wo\s+(?:gibt\s+es|bekomme?\s+ich)\s+(.+)`),
	regexp.MustCompile(`(?:^|\s)(?:wer\s+)?hat\s+(.+)`),
}

// typeKeywords maps literal keywords to the venue type they hint at,
// in detection order.
var typeKeywords = []struct {
	keywords []string
	venue    entities.VenueType
}{
	{[]string{"bar"}, entities.VenueTypeBar},
	{[]string{"restaurant", "essen"}, entities.VenueTypeRestaurant},
	{[]string{"café", "cafe"}, entities.VenueTypeCafe},
	{[]string{"club"}, entities.VenueTypeClub},
}

// QueryParserService turns free-text German queries like "Beste Carbonara"
// or "Bar mit Flipper" into a SearchIntent.
type QueryParserService struct{}

// NewQueryParserService creates a new query parser
func NewQueryParserService() *QueryParserService {
	return &QueryParserService{}
}

// Parse normalizes text and extracts tag and type candidates
func (s *QueryParserService) Parse(text string) entities.SearchIntent {
	q := normalizeQuery(text)
	intent := entities.SearchIntent{
		Query: q,
		Tags:  []string{},
		Types: []entities.VenueType{},
	}
	if q == "" {
		return intent
	}

	for _, pattern := range queryPatterns {
		m := pattern.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		if candidate := strings.TrimSpace(m[1]); candidate != "" {
			intent.Tags = appendUnique(intent.Tags, candidate)
		}
	}
	if len(intent.Tags) == 0 {
		intent.Tags = []string{q}
	}

	for _, hint := range typeKeywords {
		for _, kw := range hint.keywords {
			if strings.Contains(q, kw) {
				intent.Types = appendUniqueType(intent.Types, hint.venue)
				break
			}
		}
	}

	return intent
}

func normalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

func appendUniqueType(values []entities.VenueType, v entities.VenueType) []entities.VenueType {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
