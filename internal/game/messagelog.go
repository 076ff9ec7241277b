package game

const messageLogCapacity = 60

// MessageEntry is a single player-facing line.
type MessageEntry struct {
	Tick    int
	Label   string // e.g. "rifle-3"
	Faction int
	Message string
}

// MessageLog is a ring buffer of messages for the local faction. It
// implements Messenger.
type MessageLog struct {
	entries []MessageEntry
	head    int
	count   int
}

// NewMessageLog creates a message log with a fixed capacity.
func NewMessageLog() *MessageLog {
	return &MessageLog{
		entries: make([]MessageEntry, messageLogCapacity),
	}
}

// Post appends an entry, overwriting the oldest once full.
func (ml *MessageLog) Post(tick int, label string, faction int, msg string) {
	ml.entries[ml.head] = MessageEntry{
		Tick:    tick,
		Label:   label,
		Faction: faction,
		Message: msg,
	}
	ml.head = (ml.head + 1) % messageLogCapacity
	if ml.count < messageLogCapacity {
		ml.count++
	}
}

// Len returns how many entries are held.
func (ml *MessageLog) Len() int { return ml.count }

// Recent returns entries in chronological order (oldest first).
func (ml *MessageLog) Recent() []MessageEntry {
	result := make([]MessageEntry, ml.count)
	for i := 0; i < ml.count; i++ {
		idx := (ml.head - ml.count + i + messageLogCapacity) % messageLogCapacity
		result[i] = ml.entries[idx]
	}
	return result
}
