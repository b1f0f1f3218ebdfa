// Package services defines shared utilities consumed by the caption pipeline
// and its vendor integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, languages, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (not found vs transient vs vendor) with errors.Is.
//   - Result, a tagged outcome type for vendor calls that forces call sites
//     to handle absence and vendor failure explicitly.
//
// Use these helpers when wiring new vendor clients so error handling and
// observability stay uniform across the pipeline.
package services
