package portfolio

import (
	"fmt"
	"strings"
)

// Links holds the public URLs for a user's dashboards.
type Links struct {
	Primary    string          `json:"primary"`
	Dashboards []DashboardLink `json:"dashboards"`
}

// DashboardLink is one dashboard's public address.
type DashboardLink struct {
	Slug       string `json:"slug"`
	URL        string `json:"url"`
	Visibility string `json:"visibility"`
	IsPrimary  bool   `json:"isPrimary"`
}

// BuildLinks derives shareable URLs from the configured public base. The
// primary dashboard lives at /<handle>; the rest at /<handle>/<slug>.
func BuildLinks(baseURL, handle string, dashboards []DashboardView) Links {
	baseURL = strings.TrimRight(baseURL, "/")
	links := Links{
		Primary:    fmt.Sprintf("%s/%s", baseURL, handle),
		Dashboards: make([]DashboardLink, 0, len(dashboards)),
	}

	for _, dash := range dashboards {
		url := fmt.Sprintf("%s/%s/%s", baseURL, handle, dash.Slug)
		if dash.IsPrimary {
			url = links.Primary
		}
		links.Dashboards = append(links.Dashboards, DashboardLink{
			Slug:       dash.Slug,
			URL:        url,
			Visibility: dash.Visibility,
			IsPrimary:  dash.IsPrimary,
		})
	}
	return links
}
