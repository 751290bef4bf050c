// Package domain holds the value types shared by every layer of doclens.
//
// A Document is the status record of one upload as it moves from queued to
// completed or error. Extraction yields DocumentContent (pages of
// paragraphs), which chunking turns into Chunks, the unit that is embedded
// and indexed. A query returns RetrievedPassages with their page and
// paragraph citations, and theme detection groups those into Themes.
//
// The package depends on the standard library only.
package domain
