// Package irtable holds the command table of an IR-driven climate device.
//
// A command table maps the desired device state to a pre-recorded infrared
// code. It always carries a power-off code, optionally an idle code, and one
// entry per operation mode. Each operation entry is either a code or a
// mapping from fan mode to either a code or a mapping from integer target
// temperature to a code:
//
//	off: "JgBQAAAB..."
//	idle: "JgBQAAAB..."
//	dry: "JgBQAAAB..."          # operation -> code
//	cool:
//	  low: "JgBQAAAB..."        # operation -> fan -> code
//	  auto:
//	    24: "JgBQAAAB..."       # operation -> fan -> temperature -> code
//	    25: "JgBQAAAB..."
//
// Every level is a tagged variant: an entry is either a leaf code or a branch,
// never inspected at lookup time. Shape errors (a missing off code, a mapping
// where a code is required, a non-integer temperature key) are rejected while
// decoding, so a *Table that exists is always well formed.
//
// Operation and fan names are matched case-insensitively; they are lower-cased
// once at construction. A Table is immutable and safe for concurrent reads.
//
// # Usage
//
//	table, err := irtable.Parse(data)
//	if err != nil {
//	    return err
//	}
//	match, err := table.Lookup("cool", "auto", 24)
//	if err != nil {
//	    var miss *irtable.MissError
//	    errors.As(err, &miss) // miss.Level names where the walk stopped
//	}
//	send(match.Code)
package irtable
