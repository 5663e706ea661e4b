package services

import (
	"math"
	"sort"
	"strings"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// SearchRankingService scores venues against the tag candidates of a
// SearchIntent.
type SearchRankingService struct{}

func NewSearchRankingService() *SearchRankingService {
	return &SearchRankingService{}
}

// Rank orders venues by their best single tag match. A venue's score is the
// maximum of quality_score (+ specialty bonus) over matching tags, not a sum.
// The type filter runs after sorting. Without any tag match the result is a
// plain text match over name, district and tag labels in input order.
func (s *SearchRankingService) Rank(intent entities.SearchIntent, venues []*entities.Venue) []entities.ScoredVenue {
	scored := make([]entities.ScoredVenue, 0, len(venues))

	for _, v := range venues {
		best, matched, ok := bestTagMatch(v, intent.Tags)
		if !ok {
			continue
		}
		scored = append(scored, entities.ScoredVenue{
			Venue:      v,
			Score:      best,
			MatchedTag: matched,
		})
	}

	if len(scored) == 0 {
		return fallbackMatches(intent.Query, venues)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(intent.Types) == 0 {
		return scored
	}

	filtered := scored[:0]
	for _, sv := range scored {
		if containsType(intent.Types, sv.Venue.Type) {
			filtered = append(filtered, sv)
		}
	}
	return filtered
}

func bestTagMatch(v *entities.Venue, candidates []string) (float64, string, bool) {
	best := math.Inf(-1)
	matched := ""
	found := false

	for i := range v.Tags {
		label := strings.ToLower(v.Tags[i].Label)
		for _, c := range candidates {
			if c == "" || !strings.Contains(label, strings.ToLower(c)) {
				continue
			}
			if score := v.Tags[i].MatchScore(); !found || score > best {
				best, matched, found = score, v.Tags[i].Label, true
			}
		}
	}

	return best, matched, found
}

func fallbackMatches(query string, venues []*entities.Venue) []entities.ScoredVenue {
	out := []entities.ScoredVenue{}
	if strings.TrimSpace(query) == "" {
		return out
	}
	for _, v := range venues {
		if v.MatchesText(query) {
			out = append(out, entities.ScoredVenue{Venue: v})
		}
	}
	return out
}

func containsType(types []entities.VenueType, t entities.VenueType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// distance returns the haversine distance in kilometres
func distance(lat1, lon1, lat2, lon2 float64) float64 {
	p := 0.017453292519943295
	a := 0.5 - math.Cos((lat2-lat1)*p)/2 + math.Cos(lat1*p)*math.Cos(lat2*p)*(1-math.Cos((lon2-lon1)*p))/2
	return 12742 * math.Asin(math.Sqrt(a))
}
