package model

import "time"

// BallotSize is the number of positional slots on a ballot
const BallotSize = 10

// VideoState distinguishes an in-flight lookup from a confirmed absence
type VideoState int

const (
	VideoPending VideoState = iota // Lookup still outstanding
	VideoAbsent                    // Confirmed: no video for this input
	VideoPresent                   // Metadata resolved
)

// EntryVideo is the tagged three-way metadata slot of a ballot entry
type EntryVideo struct {
	state    VideoState
	metadata *VideoMetadata
}

// PendingVideo marks a slot whose lookup has not returned yet
func PendingVideo() EntryVideo {
	return EntryVideo{state: VideoPending}
}

// NoVideo marks a slot that is known to have no video
func NoVideo() EntryVideo {
	return EntryVideo{state: VideoAbsent}
}

// VideoOf marks a slot as resolved; a nil metadata pointer reads as NoVideo
func VideoOf(m *VideoMetadata) EntryVideo {
	if m == nil {
		return NoVideo()
	}
	return EntryVideo{state: VideoPresent, metadata: m}
}

// State returns which of the three states the slot is in
func (v EntryVideo) State() VideoState {
	return v.state
}

// Metadata returns the resolved metadata; ok is false unless the state is VideoPresent
func (v EntryVideo) Metadata() (*VideoMetadata, bool) {
	if v.state != VideoPresent {
		return nil, false
	}
	return v.metadata, true
}

// BallotEntry is one positional slot on a voter's ballot
type BallotEntry struct {
	Input string     `json:"input"`
	Video EntryVideo `json:"-"`
	Flags []Flag     `json:"flags"`
}

// Clone copies the entry with its own flag slice so appends never reach the original
func (e BallotEntry) Clone() BallotEntry {
	flags := make([]Flag, len(e.Flags))
	copy(flags, e.Flags)
	e.Flags = flags
	return e
}

// BallotItem is a persisted ballot slot
type BallotItem struct {
	UserID    string    `json:"user_id"`
	Index     int       `json:"index"`
	Ref       VideoRef  `json:"ref"`
	CreatedAt time.Time `json:"created_at"`
}
