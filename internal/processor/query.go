package processor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fillbot/gofill/internal/domain"
)

// ParseQuery decomposes one input line into a validated query. A line must
// carry exactly three whitespace-separated tokens: kind, start, end. Ranges
// wider than maxRange are rejected here, before any cache or source
// interaction.
func ParseQuery(line string, maxRange int64) (domain.Query, error) {
	tokens := strings.Fields(line)
	if len(tokens) != 3 {
		return domain.Query{}, fmt.Errorf("expected 3 tokens, got %d", len(tokens))
	}
	kind, err := domain.ParseKind(tokens[0])
	if err != nil {
		return domain.Query{}, err
	}
	start, err := strconv.ParseInt(tokens[1], 10, 64)
	if err != nil {
		return domain.Query{}, fmt.Errorf("start %q is not an integer", tokens[1])
	}
	end, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return domain.Query{}, fmt.Errorf("end %q is not an integer", tokens[2])
	}
	q := domain.Query{Kind: kind, Start: start, End: end}
	if err := ValidateRange(q, maxRange); err != nil {
		return domain.Query{}, err
	}
	return q, nil
}

// ValidateRange rejects queries spanning more than maxRange seconds.
func ValidateRange(q domain.Query, maxRange int64) error {
	if q.End-q.Start > maxRange {
		return fmt.Errorf("range of %d seconds exceeds the %d second maximum", q.End-q.Start, maxRange)
	}
	return nil
}

// ValidateQuery normalizes the kind and applies this processor's range
// limit. Structured inputs (HTTP handlers) funnel through here so they
// get the same checks as text lines.
func (p *Processor) ValidateQuery(q domain.Query) (domain.Query, error) {
	kind, err := domain.ParseKind(string(q.Kind))
	if err != nil {
		return domain.Query{}, err
	}
	q.Kind = kind
	if err := ValidateRange(q, p.cfg.BucketSize); err != nil {
		return domain.Query{}, err
	}
	return q, nil
}

// ParseQuery validates one input line against this processor's bucket
// width: a query may span at most one bucket worth of time.
func (p *Processor) ParseQuery(line string) (domain.Query, error) {
	return ParseQuery(line, p.cfg.BucketSize)
}
