// Package rendition models the quality ladder: one immutable Spec per target
// resolution, kept in declaration order. Ladder order is manifest order and is
// never re-sorted.
package rendition
