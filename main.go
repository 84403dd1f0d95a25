// Command chartsync harvests the sdvx.in per-level chart listings into a
// Notion database, a CSV file, a Postgres table or the log.
//
// Configuration comes from an optional chartsync.yaml, the environment
// (CHARTSYNC_* plus NOTION_API_KEY and DATABASE_ID) and an optional .env file.
// Run with: chartsync sync [--sink csv] [--min-level 1 --max-level 20].
package main

import (
	"os"

	"github.com/JakeFAU/sdvx-chart-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
