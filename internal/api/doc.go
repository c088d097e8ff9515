// Package api hosts the HTTP server, middleware, and REST handlers of the harvester.
// Routes:
//   - POST /v1/comments/analyze runs a scrape and sentiment analysis.
//   - GET /v1/comments serves stored comments, analyzing when too few are stored.
//   - GET /v1/stats, /v1/stats/timeseries and /v1/stats/platform-overview aggregate
//     stored sentiment.
//   - GET /healthz, /readyz for probes and /metrics for Prometheus scraping.
package api
