// Package filename extracts series, issue, volume, year and publisher hints
// from comic archive filenames and normalizes series names into grouping keys.
//
// Parsing is purely lexical and never touches the filesystem. Parenthesized
// and bracketed tags are scanned for a cover year and a known publisher, then
// discarded along with scanner/release noise such as "(Digital)".
package filename
