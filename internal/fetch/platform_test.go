package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://www.upwork.com/nx/search/jobs/?q=golang", PlatformUpwork},
		{"https://upwork.com/jobs/~01abc", PlatformUpwork},
		{"https://www.freelancer.com/jobs/golang/", PlatformFreelancer},
		{"https://www.peopleperhour.com/freelance-jobs?q=go", PlatformPeoplePerHour},
		{"https://notupwork.com/jobs", PlatformUnknown},
		{"https://example.com/jobs", PlatformUnknown},
		{"://bad", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestPlatformContentSelectors(t *testing.T) {
	assert.Contains(t, PlatformContentSelectors(PlatformUpwork), "[data-test='job-tile-list']")
	assert.Equal(t, JobListingSelectors(), PlatformContentSelectors(PlatformUnknown))
}

func TestPlatformNoiseSelectors(t *testing.T) {
	upwork := PlatformNoiseSelectors(PlatformUpwork)
	assert.Contains(t, upwork, "form")
	assert.Contains(t, upwork, ".air3-pagination")

	unknown := PlatformNoiseSelectors(PlatformUnknown)
	assert.Contains(t, unknown, ".cookie-banner")
	assert.NotContains(t, unknown, ".air3-pagination")
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("   short   "))
	assert.False(t, ShouldUseBrowser(strings.Repeat("x", MinContentLength)))
}
