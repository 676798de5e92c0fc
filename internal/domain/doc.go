// Package domain models historical meteorite landing records and the pure
// computations the playback engine performs over them.
//
// # Data Source
//
// Landing records originate from the Meteoritical Society's "Meteorite
// Landings" dataset as republished by NASA's open data portal. The service
// reads a classified export of that dataset which adds two derived columns:
// "superclass" (a coarse grouping of "recclass") and "state" (the enclosing
// US state, or "Non-US").
//
// # Data Conventions
//
// Columns:
//
//	name, id, nametype, recclass, mass (g), fall, year, reclat, reclong, superclass, state
//
// Year:
//
//	Usually a plain integer ("1880"). Older exports carry a timestamp such as
//	"01/01/1880 12:00:00 AM" or "1880-01-01T00:00:00.000"; the first
//	four-digit run is taken as the year. Rows without a parsable year are
//	rejected by [ParseLanding] and skipped by the loaders.
//
// Mass:
//
//	Grams as a decimal. Empty or zero means "unknown" and is excluded from
//	extrema (see [Classify]).
//
// Coordinates:
//
//	WGS-84 decimal degrees in "reclat" / "reclong". Rows without both are
//	rejected; a (0, 0) pair is kept as recorded.
//
// Regions:
//
//	Lowercase, hyphenated US state names ("new-york"), or [NonUSRegion].
//	An empty region means containment has not been computed.
//
// # Playback Model
//
// [BuildIndex] sorts records by year once per load. [Classify] partitions a
// record set for a target year into visible, current and invisible subsets in
// a single pass. [SummarizeRegions] and [FocusOn] derive the per-region
// aggregates shown alongside the map, and [Breakdown] computes the superclass
// shares shown in the classification chart.
package domain
