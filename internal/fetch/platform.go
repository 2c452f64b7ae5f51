// Package fetch - platform.go provides marketplace detection and marketplace-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known freelance marketplace.
type Platform string

const (
	// PlatformUpwork is upwork.com
	PlatformUpwork Platform = "upwork"
	// PlatformFreelancer is freelancer.com
	PlatformFreelancer Platform = "freelancer"
	// PlatformPeoplePerHour is peopleperhour.com
	PlatformPeoplePerHour Platform = "peopleperhour"
	// PlatformUnknown is an unrecognized site
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the marketplace from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Hostname())

	switch {
	case host == "upwork.com" || strings.HasSuffix(host, ".upwork.com"):
		return PlatformUpwork
	case host == "freelancer.com" || strings.HasSuffix(host, ".freelancer.com"):
		return PlatformFreelancer
	case host == "peopleperhour.com" || strings.HasSuffix(host, ".peopleperhour.com"):
		return PlatformPeoplePerHour
	}

	return PlatformUnknown
}

// PlatformContentSelectors returns the selectors of the search results container.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformUpwork:
		return []string{
			"[data-test='job-tile-list']",
			"section.card-list-container",
			"[data-test='JobsList']",
			"main",
		}
	case PlatformFreelancer:
		return []string{
			".JobSearchCard-list",
			"#project-list",
			"main",
		}
	case PlatformPeoplePerHour:
		return []string{
			".list-projects",
			"[data-test='projects-list']",
			"main",
		}
	default:
		return JobListingSelectors()
	}
}

// PlatformNoiseSelectors returns noise exclusion selectors for a marketplace.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		// Search filters and forms
		"form",
		".filters",
		".search-filters",
		"[data-test='filters']",

		// Sign-up prompts
		".signup-banner",
		".login-modal",

		// Cookie and GDPR
		".cookie-banner",
		".cookie-consent",
		".gdpr-notice",
	}

	switch platform {
	case PlatformUpwork:
		return append(common,
			"[data-test='UpCSavedSearches']",
			".air3-pagination",
			"[data-test='job-tile-actions']",
		)
	case PlatformFreelancer:
		return append(common,
			".PageProjectSearch-sidebar",
			".Pagination",
		)
	case PlatformPeoplePerHour:
		return append(common,
			".pagination",
		)
	default:
		return common
	}
}
