package astm

import "unicode/utf8"

// DefaultMaxChunkLen is the default maximum number of characters per frame.
const DefaultMaxChunkLen = 50

// Chunk is one bounded piece of a message, wire-encoded as one data frame.
type Chunk struct {
	Content string
	Final   bool
}

// ChunkCount returns the number of chunks msg splits into.
//
// Lengths are counted in characters (runes). A message no longer than
// maxLen, including the empty message, yields one chunk. maxLen < 1 means
// unbounded.
func ChunkCount(msg string, maxLen int) int {
	n := utf8.RuneCountInString(msg)
	if maxLen < 1 || n <= maxLen {
		return 1
	}

	return (n + maxLen - 1) / maxLen
}

// ChunkAt returns the chunk at index idx of msg without splitting the whole
// message. It returns false if idx is out of range.
//
// ChunkAt is deterministic, so a sender can rebuild any chunk for a replay.
func ChunkAt(msg string, maxLen int, idx int) (Chunk, bool) {
	count := ChunkCount(msg, maxLen)
	if idx < 0 || idx >= count {
		return Chunk{}, false
	}

	if count == 1 {
		return Chunk{Content: msg, Final: true}, true
	}

	start := runeOffset(msg, 0, idx*maxLen)
	end := runeOffset(msg, start, maxLen)

	return Chunk{Content: msg[start:end], Final: idx == count-1}, true
}

// Split splits msg into ordered chunks of at most maxLen characters. Only
// the last chunk is final.
func Split(msg string, maxLen int) []Chunk {
	count := ChunkCount(msg, maxLen)
	if count == 1 {
		return []Chunk{{Content: msg, Final: true}}
	}

	chunks := make([]Chunk, 0, count)

	for start := 0; start < len(msg); {
		end := runeOffset(msg, start, maxLen)
		chunks = append(chunks, Chunk{Content: msg[start:end], Final: end == len(msg)})
		start = end
	}

	return chunks
}

// runeOffset returns the byte offset n runes after from, clamped to len(s).
func runeOffset(s string, from int, n int) int {
	i := from
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}

	return i
}
