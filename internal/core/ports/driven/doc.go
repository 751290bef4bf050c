// Package driven lists what the core needs from the outside world to turn
// an upload into cited answers.
//
// An upload is staged by a FileStager, read into pages and paragraphs by a
// ContentExtractor, embedded by an EmbeddingService and committed to an
// IndexStore. Queries go back through the same EmbeddingService and the
// IndexStore's nearest-neighbour search. ConfigStore feeds settings to all
// of it.
//
// StatusJournal, Summariser and PromptStore may be nil. Without a journal,
// status records are lost on restart; without a summariser, theme summaries
// are built from the passages themselves.
//
// Nothing here imports an adapter. Only the domain package is allowed.
package driven
