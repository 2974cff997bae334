package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ponyvote/ballotcheck/internal/ballot"
)

// Evaluator checks one ballot's worth of links
type Evaluator interface {
	EvaluateBallot(ctx context.Context, inputs []string) (ballot.Result, error)
}

// BallotResult is the outcome of one ballot file
type BallotResult struct {
	Path   string
	Index  int // Position in the input list
	Links  []string
	Result ballot.Result
	Err    error
}

// BatchProcessor evaluates many ballot files concurrently
type BatchProcessor struct {
	evaluator Evaluator
	workers   int
	logger    zerolog.Logger
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(evaluator Evaluator, workers int, logger zerolog.Logger) *BatchProcessor {
	return &BatchProcessor{
		evaluator: evaluator,
		workers:   workers,
		logger:    logger,
	}
}

// ProcessFiles evaluates every file and returns results in input order.
// A file that cannot be read or evaluated carries its error; the others proceed.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []BallotResult {
	if len(paths) == 0 {
		return []BallotResult{}
	}

	tasks := make([]Task[BallotResult], len(paths))
	for i, path := range paths {
		tasks[i] = func(ctx context.Context) BallotResult {
			return b.processFile(ctx, i, path)
		}
	}

	results := NewPool[BallotResult](ctx, b.workers).Run(tasks)
	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})
	return results
}

func (b *BatchProcessor) processFile(ctx context.Context, index int, path string) BallotResult {
	res := BallotResult{Path: path, Index: index}

	links, err := ReadBallotFile(path)
	if err != nil {
		res.Err = err
		b.logger.Warn().Err(err).Str("file", path).Msg("skipping ballot file")
		return res
	}
	res.Links = links

	res.Result, res.Err = b.evaluator.EvaluateBallot(ctx, links)
	if res.Err != nil {
		b.logger.Warn().Err(res.Err).Str("file", path).Msg("ballot evaluation failed")
		return res
	}

	b.logger.Debug().
		Str("file", path).
		Int("entries", len(links)).
		Int("eligible", len(res.Result.Eligible)).
		Int("creators", res.Result.UniqueCreators).
		Msg("ballot evaluated")
	return res
}

// ReadBallotFile reads one link per line. Blank lines and lines starting with
// '#' are skipped. Repeated links are kept: they are votes to be flagged.
func ReadBallotFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ballot: %w", err)
	}
	defer func() { _ = file.Close() }()

	var links []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ballot %s: %w", path, err)
	}
	return links, nil
}
