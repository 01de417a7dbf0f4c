package models

import "time"

type EntryKind string

const (
	EntryQuestion EntryKind = "question"
	EntryAnswer   EntryKind = "answer"
	EntrySystem   EntryKind = "system"
)

// TranscriptEntry is one turn of the interview dialogue.
type TranscriptEntry struct {
	ID        string    `bson:"id" json:"id"`
	Kind      EntryKind `bson:"kind" json:"kind"`
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
