package repository

import "fmt"

// FillsSchema returns idempotent DDL for the fills table. Ordered by
// (bot_id, ts) so per-bot history reads stay cheap.
func FillsSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ts       DateTime64(3),
			bot_id   String,
			pair     LowCardinality(String),
			strategy LowCardinality(String),
			price    Float64,
			qty      Float64,
			fee      Float64,
			pnl      Float64,
			mark     Float64,
			capital  Float64,
			success  UInt8
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (bot_id, ts)`, table),
	}
}
