package provider

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkSplitter routes streamed text into answer and thinking parts.
// Tags may arrive split across chunks, so a possible partial tag at the end
// of the buffer is held back until the next write.
type thinkSplitter struct {
	buf     strings.Builder
	inThink bool
}

// Write feeds a streamed fragment and returns the chunks that are safe to emit.
func (s *thinkSplitter) Write(text string) []StreamChunk {
	s.buf.WriteString(text)
	pending := s.buf.String()
	s.buf.Reset()

	var out []StreamChunk
	for {
		tag := thinkOpen
		if s.inThink {
			tag = thinkClose
		}
		idx := strings.Index(pending, tag)
		if idx == -1 {
			break
		}
		out = s.emit(out, pending[:idx])
		pending = pending[idx+len(tag):]
		s.inThink = !s.inThink
	}

	tag := thinkOpen
	if s.inThink {
		tag = thinkClose
	}
	hold := partialSuffix(pending, tag)
	out = s.emit(out, pending[:len(pending)-hold])
	s.buf.WriteString(pending[len(pending)-hold:])
	return out
}

// Flush returns whatever is still buffered.
func (s *thinkSplitter) Flush() []StreamChunk {
	rest := s.buf.String()
	s.buf.Reset()
	return s.emit(nil, rest)
}

func (s *thinkSplitter) emit(out []StreamChunk, text string) []StreamChunk {
	if text == "" {
		return out
	}
	if s.inThink {
		return append(out, StreamChunk{Thinking: text})
	}
	return append(out, StreamChunk{Delta: text})
}

// partialSuffix reports how many trailing bytes of s are a prefix of tag.
func partialSuffix(s, tag string) int {
	for n := len(tag) - 1; n > 0; n-- {
		if len(s) >= n && strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}
