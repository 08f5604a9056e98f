package report

import (
	"fmt"

	"compassdev/database/postgres"

	lru "github.com/hashicorp/golang-lru/v2"
)

// reportCache is a small in-process read-through layer in front of the
// session_reports table. Rows are immutable except via upsert, so entries are
// replaced whenever a generation lands.
type reportCache struct {
	entries *lru.Cache[string, postgres.SessionReport]
}

func newReportCache(size int) *reportCache {
	if size <= 0 {
		size = 512
	}
	entries, _ := lru.New[string, postgres.SessionReport](size)
	return &reportCache{entries: entries}
}

func cacheKey(sessionID int64, t ReportType) string {
	return fmt.Sprintf("%d/%s", sessionID, t)
}

func (c *reportCache) get(sessionID int64, t ReportType) (postgres.SessionReport, bool) {
	return c.entries.Get(cacheKey(sessionID, t))
}

func (c *reportCache) put(row postgres.SessionReport) {
	c.entries.Add(cacheKey(row.SessionID, ReportType(row.ReportType)), row)
}

func (c *reportCache) drop(sessionID int64, t ReportType) {
	c.entries.Remove(cacheKey(sessionID, t))
}
