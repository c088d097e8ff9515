package system

import (
	"testing"
	"time"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
)

var _ scraper.Clock = (*Clock)(nil)

func TestNowIsUTCAndCurrent(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New().Now()
	after := time.Now().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("location = %v, want UTC", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("Now() = %v, want within [%v, %v]", got, before, after)
	}
}

func TestNowFeedsArtifactNames(t *testing.T) {
	t.Parallel()

	name := scraper.ArtifactName(scraper.StageNavigation, New().Now())
	if len(name) <= len(scraper.StageNavigation)+1 || name[len(name)-1] != 'Z' {
		t.Fatalf("unexpected artifact name %q", name)
	}
}
