package chat

import "github.com/liliang-cn/askstream/internal/domain"

// CitationBuffer holds the latest sources payload of a turn until the
// message is finalized. Each payload replaces the previous one.
type CitationBuffer struct {
	citations []domain.Citation
}

// Replace stores a copy of citations, discarding whatever was held
func (b CitationBuffer) Replace(citations []domain.Citation) CitationBuffer {
	return CitationBuffer{citations: cloneCitations(citations)}
}

// Len returns the number of buffered citations
func (b CitationBuffer) Len() int {
	return len(b.citations)
}

// Release returns the buffered citations, or an empty list when nothing arrived
func (b CitationBuffer) Release() []domain.Citation {
	if len(b.citations) == 0 {
		return []domain.Citation{}
	}
	return cloneCitations(b.citations)
}

func cloneCitations(in []domain.Citation) []domain.Citation {
	if in == nil {
		return nil
	}
	out := make([]domain.Citation, len(in))
	for i, c := range in {
		if c.URL != nil {
			u := *c.URL
			c.URL = &u
		}
		out[i] = c
	}
	return out
}
