// Package api hosts the HTTP server, middleware, and handlers of the ingestion service.
// Notable routes:
//   - POST /api/telegram/webhook receives Bot API updates and runs the ingestion pipeline.
//   - GET /api/telegram/test parses free text without persisting anything.
//   - POST /api/leads relays contact-form requests to the operators' chat.
//   - GET /api/cars lists the catalog in sort order.
//   - GET /healthz / readyz for Kubernetes probes, GET /metrics for Prometheus scraping.
package api
