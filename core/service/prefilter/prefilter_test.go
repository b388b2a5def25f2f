package prefilter

import (
	"testing"
	"time"

	"benchscope/core/domain"
)

func allEnabled() EnabledSources {
	return EnabledSources{
		domain.SourceArxiv:           true,
		domain.SourceGitHub:          true,
		domain.SourceHuggingFace:     true,
		domain.SourceHELM:            true,
		domain.SourceTechEmpower:     true,
		domain.SourceDBEngines:       true,
		domain.SourceSemanticScholar: true,
	}
}

func baseCandidate() domain.RawCandidate {
	return domain.RawCandidate{
		URL:      "https://arxiv.org/abs/2401.00001",
		Source:   domain.SourceArxiv,
		Title:    "A New Coding Agent Benchmark",
		Abstract: "We introduce a benchmark dataset for evaluating coding agents on realistic software engineering tasks.",
	}
}

func TestApply_TitleTooShort(t *testing.T) {
	c := baseCandidate()
	c.Title = "Short"
	got := Apply(c, allEnabled())
	if got.Passed || got.Reason != "title_too_short" {
		t.Errorf("got %+v, want rejection title_too_short", got)
	}
}

func TestApply_AbstractTooShortExemptSources(t *testing.T) {
	c := baseCandidate()
	c.Source = domain.SourceHELM
	c.Abstract = "x"
	got := Apply(c, allEnabled())
	if !got.Passed {
		t.Errorf("expected helm source to be exempt from abstract-length rule, got %+v", got)
	}
}

func TestApply_InvalidURLScheme(t *testing.T) {
	c := baseCandidate()
	c.URL = "ftp://arxiv.org/abs/2401.00001"
	got := Apply(c, allEnabled())
	if got.Passed || got.Reason != "invalid_url_scheme" {
		t.Errorf("got %+v, want rejection invalid_url_scheme", got)
	}
}

func TestApply_SourceNotEnabled(t *testing.T) {
	c := baseCandidate()
	got := Apply(c, EnabledSources{domain.SourceGitHub: true})
	if got.Passed || got.Reason != "source_not_enabled" {
		t.Errorf("got %+v, want rejection source_not_enabled", got)
	}
}

func TestApply_TrustedSourceBypassesKeywordRules(t *testing.T) {
	c := domain.RawCandidate{
		URL:      "https://crfm.stanford.edu/helm/scenario/x",
		Source:   domain.SourceHELM,
		Title:    "HELM Scenario Page",
		Abstract: "This has nothing to do with our keyword lists at all whatsoever here.",
	}
	got := Apply(c, allEnabled())
	if !got.Passed {
		t.Errorf("expected trusted source to bypass keyword rules, got %+v", got)
	}
}

func TestApply_ExcludedKeywordRejected(t *testing.T) {
	c := baseCandidate()
	c.Abstract = "A sentiment analysis benchmark dataset for classification tasks."
	got := Apply(c, allEnabled())
	if got.Passed || got.Reason != "excluded_keyword" {
		t.Errorf("got %+v, want rejection excluded_keyword", got)
	}
}

func TestApply_NoRequiredKeywordRejected(t *testing.T) {
	c := baseCandidate()
	c.Title = "A Survey of Regional Cooking Techniques"
	c.Abstract = "This paper is about traditional recipes and culinary history across regions."
	got := Apply(c, allEnabled())
	if got.Passed || got.Reason != "no_required_keyword" {
		t.Errorf("got %+v, want rejection no_required_keyword", got)
	}
}

func TestApply_GitHubQualityGate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*domain.RawCandidate)
		reason string
	}{
		{
			name: "fork rejected",
			modify: func(c *domain.RawCandidate) {
				c.IsFork = true
			},
			reason: "github_is_fork",
		},
		{
			name: "stale rejected",
			modify: func(c *domain.RawCandidate) {
				c.PushedAt = time.Now().Add(-100 * 24 * time.Hour)
			},
			reason: "github_stale",
		},
		{
			name: "insufficient stars for age rejected",
			modify: func(c *domain.RawCandidate) {
				c.PushedAt = time.Now().Add(-5 * 24 * time.Hour)
				c.GitHubStars = 2
			},
			reason: "github_insufficient_stars",
		},
		{
			name: "short readme rejected",
			modify: func(c *domain.RawCandidate) {
				c.PushedAt = time.Now()
				c.GitHubStars = 100
				c.ReadME = "too short"
			},
			reason: "github_readme_too_short",
		},
		{
			name: "readme missing benchmark feature rejected",
			modify: func(c *domain.RawCandidate) {
				c.PushedAt = time.Now()
				c.GitHubStars = 100
				c.ReadME = longReadmeWithout("benchmark")
			},
			reason: "github_readme_missing_benchmark_feature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCandidate()
			c.Source = domain.SourceGitHub
			c.PushedAt = time.Now()
			c.GitHubStars = 100
			c.ReadME = longReadmeWith("benchmark")
			tt.modify(&c)

			got := Apply(c, allEnabled())
			if got.Passed || got.Reason != tt.reason {
				t.Errorf("got %+v, want rejection %q", got, tt.reason)
			}
		})
	}
}

func TestApply_GitHubPassesQualityGate(t *testing.T) {
	c := baseCandidate()
	c.Source = domain.SourceGitHub
	c.PushedAt = time.Now()
	c.GitHubStars = 100
	c.ReadME = longReadmeWith("benchmark")

	got := Apply(c, allEnabled())
	if !got.Passed {
		t.Errorf("expected github candidate to pass, got %+v", got)
	}
}

func longReadmeWith(feature string) string {
	return "This project includes a " + feature + " suite for evaluation. " +
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor " +
		"incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud " +
		"exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure " +
		"dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur. " +
		"Excepteur sint occaecat cupidatat non proident, sunt in culpa qui officia deserunt " +
		"mollit anim id est laborum. Sed ut perspiciatis unde omnis iste natus error sit " +
		"voluptatem accusantium doloremque laudantium, totam rem aperiam, eaque ipsa quae ab " +
		"illo inventore veritatis et quasi architecto beatae vitae dicta sunt explicabo."
}

func longReadmeWithout(_ string) string {
	return "This project is a general purpose utility library with helper functions for " +
		"string manipulation, date formatting, and collection processing. Lorem ipsum dolor " +
		"sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et " +
		"dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco " +
		"laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in " +
		"reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur. " +
		"Excepteur sint occaecat cupidatat non proident, sunt in culpa qui officia deserunt " +
		"mollit anim id est laborum."
}
