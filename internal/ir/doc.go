// Package ir defines the content model shared by every other package:
// entries and their facets, criteria, modifiers, triggers, events and
// activation records.
//
// This package contains type definitions, codecs and hashing only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Entry facets are explicit flags on one record, never an inheritance tree
//   - Forward lists are ordered; order is part of the content
//   - Operators serialize with their authoring symbols ("==", ">=", "=", "+")
//   - Logical clocks (seq) only in activation records, never wall-clock time
package ir
