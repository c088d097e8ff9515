package scraper

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
)

// PaginationKind selects the strategy used to reveal more comments.
type PaginationKind string

// Pagination kinds.
const (
	PaginationScroll PaginationKind = "scroll"
	PaginationButton PaginationKind = "button"
	// PaginationHybrid clicks a load-more control and scrolls when none is found.
	PaginationHybrid PaginationKind = "hybrid"
	PaginationNone   PaginationKind = "none"
)

// Capabilities are the switches that differ between platforms. The flags are pointers so
// an override can switch a capability off; nil means inherit.
type Capabilities struct {
	HasLoginWall  *bool          `mapstructure:"has_login_wall" json:"has_login_wall,omitempty"`
	HasReplyPanel *bool          `mapstructure:"has_reply_panel" json:"has_reply_panel,omitempty"`
	Pagination    PaginationKind `mapstructure:"pagination" json:"pagination"`
}

// Flag returns a pointer to v for building Capabilities.
func Flag(v bool) *bool { return &v }

// LoginWall reports whether the platform hides comments behind a login.
func (c Capabilities) LoginWall() bool { return c.HasLoginWall != nil && *c.HasLoginWall }

// ReplyPanel reports whether comments live in a panel that must be opened first.
func (c Capabilities) ReplyPanel() bool { return c.HasReplyPanel != nil && *c.HasReplyPanel }

func (c Capabilities) merge(o Capabilities) Capabilities {
	if o.HasLoginWall != nil {
		c.HasLoginWall = Flag(*o.HasLoginWall)
	}
	if o.HasReplyPanel != nil {
		c.HasReplyPanel = Flag(*o.HasReplyPanel)
	}
	if o.Pagination != "" {
		c.Pagination = o.Pagination
	}
	return c
}

// mergeSelectors overlays the non-empty fields of src onto dst. Capability flags set in src
// win even when false.
func mergeSelectors(dst *SelectorConfig, src SelectorConfig) error {
	caps := dst.Capabilities.merge(src.Capabilities)
	src.Capabilities = Capabilities{}
	if err := mergo.Merge(dst, src, mergo.WithOverride); err != nil {
		return err
	}
	dst.Capabilities = caps
	return nil
}

// SelectorConfig is the declarative map of DOM landmarks for one platform (or variant).
type SelectorConfig struct {
	Platform string `mapstructure:"-" json:"platform"`
	Variant  string `mapstructure:"-" json:"variant,omitempty"`

	Capabilities Capabilities `mapstructure:"capabilities" json:"capabilities"`

	LoginForm     string `mapstructure:"login_form" json:"login_form,omitempty"`
	UsernameField string `mapstructure:"username_field" json:"username_field,omitempty"`
	PasswordField string `mapstructure:"password_field" json:"password_field,omitempty"`
	// LoginNext is clicked between username and password on two-step login forms.
	LoginNext   string `mapstructure:"login_next" json:"login_next,omitempty"`
	LoginSubmit string `mapstructure:"login_submit" json:"login_submit,omitempty"`

	ContentReady  string `mapstructure:"content_ready" json:"content_ready,omitempty"`
	CommentItem   string `mapstructure:"comment_item" json:"comment_item"`
	Username      string `mapstructure:"username" json:"username,omitempty"`
	Text          string `mapstructure:"text" json:"text"`
	Timestamp     string `mapstructure:"timestamp" json:"timestamp,omitempty"`
	TimestampAttr string `mapstructure:"timestamp_attr" json:"timestamp_attr,omitempty"`
	Likes         string `mapstructure:"likes" json:"likes,omitempty"`
	Avatar        string `mapstructure:"avatar" json:"avatar,omitempty"`
	Pinned        string `mapstructure:"pinned" json:"pinned,omitempty"`
	CreatorHeart  string `mapstructure:"creator_heart" json:"creator_heart,omitempty"`
	Replies       string `mapstructure:"replies" json:"replies,omitempty"`
	ReplyItem     string `mapstructure:"reply_item" json:"reply_item,omitempty"`

	LoadMore          []string `mapstructure:"load_more" json:"load_more,omitempty"`
	LoadMoreText      string   `mapstructure:"load_more_text" json:"load_more_text,omitempty"`
	ExpandReplies     string   `mapstructure:"expand_replies" json:"expand_replies,omitempty"`
	ExpandRepliesText string   `mapstructure:"expand_replies_text" json:"expand_replies_text,omitempty"`
	ScrollContainer   string   `mapstructure:"scroll_container" json:"scroll_container,omitempty"`

	PanelOpeners   []string `mapstructure:"panel_openers" json:"panel_openers,omitempty"`
	PanelReady     []string `mapstructure:"panel_ready" json:"panel_ready,omitempty"`
	PanelAriaLabel string   `mapstructure:"panel_aria_label" json:"panel_aria_label,omitempty"`

	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" json:"navigation_timeout,omitempty"`
}

// Validate checks the landmarks the engine cannot work without.
func (c SelectorConfig) Validate() error {
	if c.CommentItem == "" {
		return fmt.Errorf("%s: comment_item selector is required", c.Platform)
	}
	if c.Text == "" {
		return fmt.Errorf("%s: text selector is required", c.Platform)
	}
	if c.Capabilities.LoginWall() && (c.LoginForm == "" || c.UsernameField == "" ||
		c.PasswordField == "" || c.LoginSubmit == "") {
		return fmt.Errorf("%s: login wall needs login_form, username_field, password_field and login_submit", c.Platform)
	}
	if c.Capabilities.ReplyPanel() && len(c.PanelOpeners) == 0 && c.PanelAriaLabel == "" {
		return fmt.Errorf("%s: reply panel needs panel_openers or panel_aria_label", c.Platform)
	}
	switch c.Capabilities.Pagination {
	case PaginationScroll, PaginationNone, "":
	case PaginationButton, PaginationHybrid:
		if len(c.LoadMore) == 0 && c.LoadMoreText == "" {
			return fmt.Errorf("%s: button pagination needs load_more or load_more_text", c.Platform)
		}
	default:
		return fmt.Errorf("%s: unknown pagination kind %q", c.Platform, c.Capabilities.Pagination)
	}
	return nil
}

// Variant overrides the base selectors for URLs containing any of URLContains.
type Variant struct {
	Name        string         `mapstructure:"name"`
	URLContains []string       `mapstructure:"url_contains"`
	Overrides   SelectorConfig `mapstructure:"overrides"`
}

// PlatformSelectors groups the base config with its URL-driven variants.
type PlatformSelectors struct {
	Base     SelectorConfig `mapstructure:",squash"`
	Variants []Variant      `mapstructure:"variants"`
}

// Registry resolves platform names to selector configs. It is read-only once the
// process starts serving and is safe to share between concurrent scrapes.
type Registry struct {
	mu        sync.RWMutex
	platforms map[string]PlatformSelectors
}

// NewRegistry builds a registry from the given entries.
func NewRegistry(entries map[string]PlatformSelectors) *Registry {
	r := &Registry{platforms: make(map[string]PlatformSelectors, len(entries))}
	for name, entry := range entries {
		r.platforms[strings.ToLower(name)] = entry
	}
	return r
}

// Has reports whether a platform is registered.
func (r *Registry) Has(platform string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.platforms[platform]
	return ok
}

// Platforms lists registered platform names in order.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.platforms))
	for name := range r.platforms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Override merges non-empty fields and explicitly set capability flags of overrides into the platform entry, registering the
// platform when it is new. Variants in overrides replace the existing list.
func (r *Registry) Override(platform string, overrides PlatformSelectors) error {
	platform = strings.ToLower(platform)
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.platforms[platform]
	if err := mergeSelectors(&current.Base, overrides.Base); err != nil {
		return fmt.Errorf("merge %s selectors: %w", platform, err)
	}
	if len(overrides.Variants) > 0 {
		current.Variants = append([]Variant(nil), overrides.Variants...)
	}
	base := current.Base
	base.Platform = platform
	if err := base.Validate(); err != nil {
		return err
	}
	r.platforms[platform] = current
	return nil
}

// Resolve returns the selector config for a platform and target URL. The first variant whose
// pattern appears in the URL is merged over the base config.
func (r *Registry) Resolve(platform, rawURL string) (SelectorConfig, error) {
	r.mu.RLock()
	entry, ok := r.platforms[platform]
	r.mu.RUnlock()
	if !ok {
		return SelectorConfig{}, UnsupportedPlatformError(platform)
	}
	cfg := entry.Base
	for _, v := range entry.Variants {
		if !matchesAny(rawURL, v.URLContains) {
			continue
		}
		if err := mergeSelectors(&cfg, v.Overrides); err != nil {
			return SelectorConfig{}, fmt.Errorf("merge %s variant %s: %w", platform, v.Name, err)
		}
		cfg.Variant = v.Name
		break
	}
	// Callers own the result; detach the slices from the registry entry.
	cfg.LoadMore = append([]string(nil), cfg.LoadMore...)
	cfg.PanelOpeners = append([]string(nil), cfg.PanelOpeners...)
	cfg.PanelReady = append([]string(nil), cfg.PanelReady...)
	cfg.Platform = platform
	if cfg.Capabilities.Pagination == "" {
		cfg.Capabilities.Pagination = PaginationScroll
	}
	return cfg, nil
}

func matchesAny(rawURL string, patterns []string) bool {
	lower := strings.ToLower(rawURL)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
