// Package main hosts the autoved service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server receives Telegram webhook updates, checks the shared secret header and hands
//     the message to the ingestion pipeline. It also serves the diagnostic parse endpoint, contact-form leads,
//     the catalog listing, health probes and Prometheus metrics.
//   - Ingestion: internal/ingest.Pipeline runs one message at a time through extraction (internal/extract),
//     validation, the optional Redis duplicate guard, photo re-hosting (internal/asset) with a placeholder
//     fallback, and the transactional catalog append (Postgres or SQLite). A catalog.entry.created event is
//     published afterwards through Pub/Sub or the in-memory publisher.
//   - Configuration & plumbing: Viper populates config from env/files (.env via godotenv); zap provides structured
//     logging; OpenTelemetry spans cover extract/asset/write steps.
//
// Quick checklist:
//   - Configure env vars: AUTOVED_TELEGRAM_BOT_TOKEN (or TELEGRAM_BOT_TOKEN), AUTOVED_TELEGRAM_WEBHOOK_SECRET,
//     AUTOVED_DATABASE_DRIVER/DSN (or DATABASE_URL), AUTOVED_STORAGE_BACKEND and friends.
//   - Run locally: go run ./cmd/autoved serve --config config.yaml
//   - Try the rules offline: echo "..." | go run ./cmd/autoved parse
package main

import (
	"os"

	"github.com/SashaDiz/autoved-sub000/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
