// Package scraper implements the job-posting crawl pipeline: the seed URL
// builder, the discovery and detail extraction stages, and the engine that
// routes labeled requests through them.
package scraper
