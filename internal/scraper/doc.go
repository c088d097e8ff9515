// Package scraper drives a headless browser session through navigation, login walls and a
// convergence-based pagination loop to harvest a bounded, deduplicated set of comments.
//
// One engine serves every platform. Platform differences live in SelectorConfig data and a
// handful of capability flags; the browser itself sits behind the Session interface so the
// whole pipeline runs against static HTML in tests.
package scraper
