// Package scrape defines the core types shared across the extraction,
// persistence, aggregation, and scheduling subsystems of streamlens.
package scrape
