// Package comicinfo reads and writes ComicInfo.xml inside CBZ archives.
//
// Writes rebuild the archive next to the original with every other entry
// copied unchanged, then rename it into place, so a file is either fully
// updated or untouched. Elements the package does not manage are preserved.
package comicinfo
