// Package model contains the domain types for cloudlibrary-downloader.
//
// The central type is Book, which combines the brief record from the
// CloudLibrary loan list with the extended metadata from the audio
// distribution backend, and computes the local paths where chapter
// files are saved.
//
// # Path Computation
//
// Book folder names follow the fixed scheme
//
//	<item id> - <first author> - <title>
//
// sanitized to word characters, hyphen, period and space, and truncated
// to 100 characters to stay well inside filesystem path limits. Chapter
// files are named with a zero-padded sequence prefix sized to the total
// chapter count:
//
//	01 - Chapter Title.mp3
//
// # Series Strings
//
// The distribution backend reports series membership as plain strings
// like "The Expanse #4". ParseSeries splits these into a name and a
// trailing number; strings without the numeric suffix yield an
// unnumbered series.
package model
