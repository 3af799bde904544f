// Package library catalogs comic archives on disk.
//
// File ids are UUID v5 hashes of the path relative to the library root, so
// the same archive keeps its id across scans and processes.
package library
