package ticketing

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/zatekoja/datebuch/internal/adapters/providers/httpclient"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	"github.com/zatekoja/datebuch/pkg/config"
)

const (
	defaultDiscoveryURL = "https://app.ticketmaster.com/discovery/v2/events.json"
	defaultPageSize     = 20
	unknownVenue        = "TBA"
	defaultCategory     = "Event"
	preferredImageRatio = "16_9"
)

type discoveryResponse struct {
	Embedded *struct {
		Events []discoveryEvent `json:"events"`
	} `json:"_embedded"`
}

type discoveryEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	Embedded *struct {
		Venues []struct {
			Name    string `json:"name"`
			Address *struct {
				Line1 string `json:"line1"`
			} `json:"address"`
		} `json:"venues"`
	} `json:"_embedded"`
	Images []struct {
		URL   string `json:"url"`
		Ratio string `json:"ratio"`
	} `json:"images"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Classifications []struct {
		Segment *struct {
			Name string `json:"name"`
		} `json:"segment"`
	} `json:"classifications"`
}

// TicketmasterProvider implements EventProvider with the Ticketmaster
// Discovery API
type TicketmasterProvider struct {
	client      *httpclient.Client
	apiKey      string
	baseURL     string
	city        string
	countryCode string
}

// NewTicketmasterProvider creates a new Ticketmaster provider
func NewTicketmasterProvider(cfg config.TicketingConfig) providers.EventProvider {
	return NewTicketmasterProviderWithClient(cfg, httpclient.New("ticketmaster", httpclient.Options{}))
}

// NewTicketmasterProviderWithClient allows overriding the HTTP client (used for tests)
func NewTicketmasterProviderWithClient(cfg config.TicketingConfig, client *httpclient.Client) *TicketmasterProvider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultDiscoveryURL
	}
	return &TicketmasterProvider{
		client:      client,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		city:        cfg.City,
		countryCode: cfg.CountryCode,
	}
}

// SearchEvents returns events in the configured city sorted by date
func (p *TicketmasterProvider) SearchEvents(ctx context.Context, search providers.EventSearch) ([]entities.TicketEvent, error) {
	size := search.Size
	if size <= 0 {
		size = defaultPageSize
	}

	params := url.Values{}
	params.Set("apikey", p.apiKey)
	params.Set("city", p.city)
	params.Set("countryCode", p.countryCode)
	params.Set("size", strconv.Itoa(size))
	params.Set("sort", "date,asc")
	if search.Keyword != "" {
		params.Set("keyword", search.Keyword)
	}
	if search.StartDate != "" {
		params.Set("startDateTime", search.StartDate+"T00:00:00Z")
	}
	if search.EndDate != "" {
		params.Set("endDateTime", search.EndDate+"T23:59:59Z")
	}
	if search.Category != "" {
		params.Set("classificationName", search.Category)
	}

	var resp discoveryResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	events := []entities.TicketEvent{}
	if resp.Embedded == nil {
		return events, nil
	}
	for _, e := range resp.Embedded.Events {
		events = append(events, toTicketEvent(e))
	}
	return events, nil
}

func toTicketEvent(e discoveryEvent) entities.TicketEvent {
	event := entities.TicketEvent{
		ID:       e.ID,
		Name:     e.Name,
		Date:     e.Dates.Start.LocalDate,
		Time:     e.Dates.Start.LocalTime,
		Venue:    unknownVenue,
		URL:      e.URL,
		Category: defaultCategory,
	}

	if e.Embedded != nil && len(e.Embedded.Venues) > 0 {
		v := e.Embedded.Venues[0]
		if v.Name != "" {
			event.Venue = v.Name
		}
		if v.Address != nil {
			event.Address = v.Address.Line1
		}
	}

	for _, img := range e.Images {
		if img.Ratio == preferredImageRatio {
			event.Image = img.URL
			break
		}
	}
	if event.Image == "" && len(e.Images) > 0 {
		event.Image = e.Images[0].URL
	}

	if len(e.PriceRanges) > 0 {
		pr := e.PriceRanges[0]
		event.PriceRange = fmt.Sprintf("%s-%s %s", formatPrice(pr.Min), formatPrice(pr.Max), pr.Currency)
	}

	if len(e.Classifications) > 0 && e.Classifications[0].Segment != nil && e.Classifications[0].Segment.Name != "" {
		event.Category = e.Classifications[0].Segment.Name
	}

	return event
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
