// Package component loads route views lazily and keeps them for the life of
// the process.
//
// A Cache maps route identity to a load state:
//
//	unloaded ──first activation──▶ loading ──success──▶ loaded (terminal)
//	    ▲                             │
//	    └───────────failure───────────┘
//
// Concurrent activations of the same route share a single underlying fetch.
// The fetch runs detached from the caller that triggered it, so a caller
// that gives up (navigates away) does not cancel the load for everyone else;
// the completed component still lands in the cache.
//
// Views are HTML templates fetched from a Source: a directory or embedded
// filesystem (FSSource) or an S3 bucket (S3Source).
package component
