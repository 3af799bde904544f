// Package textutil holds the text helpers shared by series matching, issue
// scoring and rename previews: token cosine similarity for titles and
// filesystem-safe name cleanup.
package textutil
