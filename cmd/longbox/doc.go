// Command longbox enriches comic archive metadata from ComicVine.
//
// The enrich command scans archives, groups them by series, walks the operator
// through series review (or approves confident matches with --auto), prints
// the proposed field changes and optionally writes them into ComicInfo.xml.
// The cache and config commands maintain the provider cache and the TOML
// configuration file.
package main
