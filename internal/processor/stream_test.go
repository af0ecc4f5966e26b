package processor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fillbot/gofill/internal/source"
)

func TestProcessLines(t *testing.T) {
	src := source.NewMockSource(exampleFills()...)
	p := newProc(t, DefaultConfig(), src)

	in := strings.Join([]string{
		"count 1701386400 1701386900",
		"volume 1701386400 1701386900",
		"this is not a query",
		"B 1701386400 1701386900",
		"count 0 999999",
		"S 1701386400 1701386900",
	}, "\n")
	var out bytes.Buffer

	err := p.ProcessLines(context.Background(), strings.NewReader(in), &out)
	require.NoError(t, err)

	// Bad lines are reported and skipped; every valid query gets exactly
	// one answer line, in input order.
	require.Equal(t, "2\n404.5\n1\n1\n", out.String())
	require.Equal(t, 1, src.FetchCalls())
}

func TestProcessLinesContinuesAfterFetchFailure(t *testing.T) {
	src := source.NewMockSource(exampleFills()...)
	src.ErrorOnNext["Fetch"] = errors.New("upstream down")
	p := newProc(t, DefaultConfig(), src)

	in := "count 1701386400 1701386900\ncount 1701386400 1701386900\n"
	var out bytes.Buffer

	err := p.ProcessLines(context.Background(), strings.NewReader(in), &out)
	require.NoError(t, err)

	// The first query failed on the source; the second resolved.
	require.Equal(t, "2\n", out.String())
	require.Equal(t, 2, src.FetchCalls())
}

func TestProcessLinesEmptyInput(t *testing.T) {
	p := newProc(t, DefaultConfig(), source.NewMockSource())
	var out bytes.Buffer

	err := p.ProcessLines(context.Background(), strings.NewReader(""), &out)
	require.NoError(t, err)
	require.Equal(t, "", out.String())
}

func TestProcessLinesStopsOnCancel(t *testing.T) {
	p := newProc(t, DefaultConfig(), source.NewMockSource())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.ProcessLines(ctx, strings.NewReader("count 100 200\n"), &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
}
