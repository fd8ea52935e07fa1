package services

import (
	"strings"

	"flow-pantry-system/models"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
)

// fold normalises text for case-insensitive comparisons.
// A Caser carries state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// containsFold reports whether needle occurs in haystack ignoring case.
// An empty needle matches everything.
func containsFold(haystack, needle string) bool {
	if strings.TrimSpace(needle) == "" {
		return true
	}
	return strings.Contains(fold(haystack), fold(needle))
}

// searchableText joins the descriptive fields of a flow into one lowercase,
// ASCII-only string.
func searchableText(meta models.FlowMetadata) string {
	parts := []string{meta.Title, meta.Tournament, meta.Round, meta.Team, meta.Judge, meta.Division}
	parts = append(parts, meta.Tags...)

	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.ToLower(unidecode.Unidecode(strings.Join(kept, " ")))
}

func cleanTags(tags []string) models.StringList {
	out := make(models.StringList, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func metadataOf(f *models.Flow) models.FlowMetadata {
	return models.FlowMetadata{
		Title:          f.Title,
		Tournament:     f.Tournament.Name,
		TournamentDate: f.Tournament.Date,
		Round:          f.Round,
		Team:           f.Team,
		Judge:          f.Judge,
		Division:       f.Division,
		Tags:           f.Tags,
		PageCount:      f.PageCount,
	}
}
