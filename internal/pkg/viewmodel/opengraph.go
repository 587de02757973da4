// Package viewmodel holds presentation data shared by the HTML templates.
package viewmodel

import (
	"strings"
	"unicode/utf8"

	"github.com/ManuelReschke/BizFox/app/models"
)

const maxDescription = 200

// OpenGraph is rendered into og:* meta tags by the page layout
type OpenGraph struct {
	Title       string
	Description string
	URL         string
	Type        string
	SiteName    string
}

// BusinessOpenGraph describes a public business profile. baseURL is the
// public origin without a trailing slash.
func BusinessOpenGraph(b *models.Business, baseURL, siteName string) *OpenGraph {
	description := strings.Join(strings.Fields(b.Description), " ")
	if description == "" && b.City != "" {
		description = b.Name + " in " + b.City
	}
	return &OpenGraph{
		Title:       b.Name,
		Description: truncate(description, maxDescription),
		URL:         strings.TrimRight(baseURL, "/") + "/b/" + b.Slug,
		Type:        "business.business",
		SiteName:    siteName,
	}
}

// truncate cuts s to at most n runes, ending with an ellipsis when shortened
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}
