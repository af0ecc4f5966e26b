package processor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fillbot/gofill/internal/metrics"
)

// ProcessLines reads one query per line from in and writes one answer line
// per successful query to out. Malformed lines and failed queries are
// logged and skipped; no query error stops the stream. The returned error
// covers input reading and output writing only.
func (p *Processor) ProcessLines(ctx context.Context, in io.Reader, out io.Writer) error {
	started := time.Now()
	scanner := bufio.NewScanner(in)
	w := bufio.NewWriter(out)

	lines, answered := 0, 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lines++
		line := scanner.Text()

		q, err := p.ParseQuery(line)
		if err != nil {
			metrics.QueryErrors.Add(1)
			procLog.WithError(err).Warnf("line %d: rejected query %q", lines, line)
			continue
		}
		res, err := p.Resolve(ctx, q)
		if err != nil {
			procLog.WithError(err).Errorf("line %d: query failed", lines)
			continue
		}
		if _, err := fmt.Fprintln(w, res.String()); err != nil {
			return fmt.Errorf("write answer: %w", err)
		}
		// Flush per answer so interactive callers see it immediately.
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush answer: %w", err)
		}
		answered++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read queries: %w", err)
	}

	procLog.WithFields(logrus.Fields{
		"lines":    lines,
		"answered": answered,
		"elapsed":  time.Since(started).String(),
	}).Info("input stream drained")
	return nil
}
