package rag

import "strings"

// Assemble builds a bounded context string from relevance-ranked chunks.
// Chunks are taken strictly in the order given; the first fragment that would
// push the running total past maxChars stops assembly entirely, so the
// included set is always a prefix of the ranking. Fragments are never
// truncated.
func Assemble(chunks []RetrievedChunk, maxChars int) AssembledContext {
	var (
		b        strings.Builder
		included = newSourceSet()
		seen     = newSourceSet()
		count    int
	)

	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Content) == "" {
			continue
		}
		count++
		seen.add(chunk.SourceID)

		fragment := chunk.Content
		if chunk.SourceID != "" {
			fragment = "Source: " + chunk.SourceID + "\n" + chunk.Content
		}

		// The newline separator counts against the budget too.
		needed := len(fragment)
		if b.Len() > 0 {
			needed++
		}
		if b.Len()+needed > maxChars {
			break
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(fragment)
		included.add(chunk.SourceID)
	}

	return AssembledContext{
		Text:              b.String(),
		IncludedSourceIDs: included.values(),
		SeenSourceIDs:     seen.values(),
		ChunkCount:        count,
	}
}

// sourceSet is a case-insensitive set of source identifiers preserving the
// first-seen casing and order.
type sourceSet struct {
	keys map[string]struct{}
	list []string
}

func newSourceSet() *sourceSet {
	return &sourceSet{keys: make(map[string]struct{})}
}

func (s *sourceSet) add(id string) {
	if id == "" {
		return
	}
	key := strings.ToLower(id)
	if _, ok := s.keys[key]; ok {
		return
	}
	s.keys[key] = struct{}{}
	s.list = append(s.list, id)
}

func (s *sourceSet) values() []string {
	return s.list
}
