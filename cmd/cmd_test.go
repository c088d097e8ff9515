package cmd

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/social-comment-harvester/internal/app"
	"github.com/JakeFAU/social-comment-harvester/internal/config"
	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
)

func useInMemoryApp(t *testing.T) {
	t.Helper()
	orig := newApp
	newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
		cfg.DB.DSN = ":memory:"
		cfg.Debug.Backend = config.DebugBackendMemory
		return app.New(ctx, cfg, logger)
	}
	t.Cleanup(func() { newApp = orig })
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["scrape"])
}

func TestScrapeRequiresFlags(t *testing.T) {
	useInMemoryApp(t)

	_, err := execute("scrape", "--platform", "youtube")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "url"`)
}

func TestScrapeRejectsUnknownPlatform(t *testing.T) {
	useInMemoryApp(t)

	_, err := execute("scrape", "--url", "https://example.com/post/1", "--platform", "MySpace")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, scraper.StatusOf(err))
	assert.Contains(t, err.Error(), "invalid platform")
}

func TestScrapeStoreReportsUnsupportedPlatform(t *testing.T) {
	useInMemoryApp(t)

	_, err := execute("scrape", "--url", "https://snapchat.com/p/1", "--platform", "snapchat", "--store")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotImplemented, scraper.StatusOf(err))
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute("--config", filepath.Join(t.TempDir(), "absent.yaml"), "scrape", "--url", "u", "--platform", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, scrapeOutput{Platform: "youtube", Count: 0, Comments: []scraper.Comment{}}))
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"platform\": \"youtube\""))
}
