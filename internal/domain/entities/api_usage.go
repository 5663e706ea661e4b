package entities

import (
	"encoding/json"
	"time"
)

// DayLayout formats the calendar day key of usage records.
const DayLayout = "2006-01-02"

// ApiUsageRecord tracks outbound calls of one external API on one calendar day.
type ApiUsageRecord struct {
	APIName      string     `json:"api_name" db:"api_name"`
	Day          string     `json:"day" db:"day"`
	CallCount    int        `json:"call_count" db:"call_count"`
	DailyLimit   int        `json:"daily_limit" db:"daily_limit"`
	MonthlyCount int        `json:"monthly_count" db:"monthly_count"`
	MonthlyLimit int        `json:"monthly_limit" db:"monthly_limit"`
	LastCallAt   *time.Time `json:"last_call_at,omitempty" db:"last_call_at"`
}

// Exhausted reports whether the daily or the monthly budget is used up.
func (r *ApiUsageRecord) Exhausted() bool {
	return r.CallCount >= r.DailyLimit || r.MonthlyCount >= r.MonthlyLimit
}

// CacheEntry is a cached external API response.
type CacheEntry struct {
	APIName   string          `json:"api_name" db:"api_name"`
	CacheKey  string          `json:"cache_key" db:"cache_key"`
	Response  json.RawMessage `json:"response" db:"response"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt time.Time       `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the entry is stale at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// ApiUsageStatus summarises today's usage of one API.
type ApiUsageStatus struct {
	APIName      string `json:"api_name"`
	Calls        int    `json:"calls"`
	Limit        int    `json:"limit"`
	Percentage   int    `json:"percentage"`
	MonthlyCalls int    `json:"monthly_calls"`
	MonthlyLimit int    `json:"monthly_limit"`
}
