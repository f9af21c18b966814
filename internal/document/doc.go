// Package document is an in-memory document workspace for the history
// engine. Edits made through a Document return *Edit values that the engine
// records and replays; the workspace implements history.Workspace.
package document
