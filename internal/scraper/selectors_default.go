package scraper

import "time"

// DefaultRegistry returns the built-in selector set. Platform markup drifts, so deployments
// are expected to override these through configuration.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]PlatformSelectors{
		PlatformYouTube:   youtubeSelectors(),
		PlatformInstagram: instagramSelectors(),
		PlatformTwitter:   twitterSelectors(),
		PlatformThreads:   threadsSelectors(),
	})
}

func youtubeSelectors() PlatformSelectors {
	return PlatformSelectors{
		Base: SelectorConfig{
			Capabilities:      Capabilities{Pagination: PaginationScroll},
			ContentReady:      "#comments",
			CommentItem:       "ytd-comment-thread-renderer",
			Username:          "#author-text",
			Text:              "#content-text",
			Timestamp:         "#published-time-text",
			Likes:             "#vote-count-middle",
			Avatar:            "#img",
			Pinned:            "#pinned-comment-badge",
			CreatorHeart:      "#creator-heart-button",
			Replies:           "#replies",
			ReplyItem:         "ytd-comment-renderer",
			ExpandReplies:     "ytd-button-renderer.ytd-comment-replies-renderer",
			ExpandRepliesText: "Show more replies",
			NavigationTimeout: 60 * time.Second,
		},
	}
}

func instagramSelectors() PlatformSelectors {
	return PlatformSelectors{
		Base: SelectorConfig{
			Capabilities:  Capabilities{HasLoginWall: Flag(true), Pagination: PaginationButton},
			LoginForm:     `form[id="loginForm"]`,
			UsernameField: `input[name="username"]`,
			PasswordField: `input[name="password"]`,
			LoginSubmit:   `button[type="submit"]`,
			ContentReady:  `article[role="presentation"]`,
			CommentItem:   "ul > div > li",
			Username:      "span a",
			Text:          `span[dir="auto"]`,
			Timestamp:     "time",
			TimestampAttr: "datetime",
			Likes:         `button span[dir="auto"]`,
			LoadMore:      []string{`svg[aria-label="Load more comments"]`},
			LoadMoreText:  "View more comments",
		},
		Variants: []Variant{{
			Name:        "reel",
			URLContains: []string{"/reel/", "/reels/"},
			Overrides: SelectorConfig{
				Capabilities:    Capabilities{HasReplyPanel: Flag(true), Pagination: PaginationHybrid},
				ContentReady:    "main",
				CommentItem:     "ul._a9ym > li",
				Username:        "a._a9zc",
				Text:            "div._a9zs",
				LoadMore:        []string{"button._abl-"},
				ScrollContainer: "ul._a9ym",
				PanelOpeners: []string{
					`button[data-visualcompletion="loading-state"]`,
					"span.x78zum5 button",
					`button[aria-label*="omment"]`,
				},
				PanelReady:     []string{"div._a9-z", "section._ae65", "ul._a9ym"},
				PanelAriaLabel: "comment",
			},
		}},
	}
}

func twitterSelectors() PlatformSelectors {
	return PlatformSelectors{
		Base: SelectorConfig{
			Capabilities:  Capabilities{HasLoginWall: Flag(true), Pagination: PaginationHybrid},
			LoginForm:     `input[autocomplete="username"]`,
			UsernameField: `input[autocomplete="username"], input[name="text"]`,
			PasswordField: `input[name="password"], input[type="password"]`,
			LoginNext:     `[data-testid="next_button"], [data-testid="NextButton"]`,
			LoginSubmit:   `[data-testid="LoginForm_Login_Button"]`,
			ContentReady:  `div[data-testid="cellInnerDiv"]`,
			CommentItem:   `article[data-testid="tweet"]`,
			Username:      `div[data-testid="User-Name"] a`,
			Text:          `div[data-testid="tweetText"]`,
			Timestamp:     "time",
			TimestampAttr: "datetime",
			Likes:         `[data-testid="like"] span`,
			Avatar:        `div[data-testid="Tweet-User-Avatar"] img`,
			LoadMoreText:  "Show more replies",
		},
	}
}

func threadsSelectors() PlatformSelectors {
	return PlatformSelectors{
		Base: SelectorConfig{
			Capabilities:      Capabilities{HasLoginWall: Flag(true), Pagination: PaginationHybrid},
			LoginForm:         `form[id="loginForm"]`,
			UsernameField:     `input[name="username"]`,
			PasswordField:     `input[name="password"]`,
			LoginSubmit:       `button[type="submit"]`,
			ContentReady:      `div[role="main"]`,
			CommentItem:       `div[data-pressable-container="true"]`,
			Username:          `a[role="link"] span`,
			Text:              `div[dir="auto"] span`,
			Timestamp:         "time",
			TimestampAttr:     "datetime",
			Likes:             `div[role="button"] span[dir="auto"]`,
			Replies:           `div[role="dialog"]`,
			ReplyItem:         `article[role="article"]`,
			ExpandReplies:     `div[role="button"]`,
			ExpandRepliesText: "replies",
			LoadMoreText:      "Show more replies",
		},
	}
}
