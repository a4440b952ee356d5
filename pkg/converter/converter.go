// Package converter implements the Converter (C3): transcoding via an
// external calibre binary, progress broadcast, cancellation, and
// sibling-tool metadata extraction (spec.md §4.1).
package converter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"

	"github.com/foliobooks/folio/pkg/broadcast"
	"github.com/foliobooks/folio/pkg/metadata"
)

// statFile exists so tests can stub out filesystem probing without
// touching the real filesystem.
var statFile = func(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// job tracks one in-flight conversion for the active-jobs registry.
type job struct {
	cancel context.CancelFunc
}

// Converter locates the calibre `ebook-convert`/`ebook-meta` binaries,
// runs conversions as subprocesses, and tracks them in a mutex-guarded
// active-jobs registry (spec.md §4.1's concurrency model; grounded on
// the teacher's `pkg/plugins/hostapi_shell.go` subprocess-with-captured-
// buffers pattern and `pkg/worker/worker.go`'s job-registry shape).
type Converter struct {
	convertBinary string
	metaBinary    string
	available     bool

	mu   sync.Mutex
	jobs map[string]*job

	progress *broadcast.Broadcaster[Progress]

	newJobID func() string
}

// New creates a Converter and performs an initial binary probe.
func New(newJobID func() string) *Converter {
	c := &Converter{
		jobs:     make(map[string]*job),
		progress: broadcast.New[Progress](),
		newJobID: newJobID,
	}
	c.Refresh()
	return c
}

// Refresh re-probes for the converter binaries. The user may install
// calibre after the process started (spec.md §4.1).
func (c *Converter) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	convertPath, convertOK := resolveBinary("ebook-convert", statFile)
	metaPath, metaOK := resolveBinary("ebook-meta", statFile)

	c.convertBinary = convertPath
	c.metaBinary = metaPath
	c.available = convertOK && metaOK
}

// IsAvailable reports whether both calibre binaries were resolved.
func (c *Converter) IsAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// Subscribe returns a channel of progress updates across all active
// jobs and an unsubscribe func. Consumers filter on Progress.JobID.
func (c *Converter) Subscribe() (<-chan Progress, func()) {
	return c.progress.Subscribe()
}

// Submit starts a conversion in the background and returns its jobID
// immediately, before the conversion completes, so a caller can observe
// progress and call Cancel (spec.md §4.1's cancellation contract). The
// returned channel receives exactly one ConvertResult.
func (c *Converter) Submit(ctx context.Context, source, target string, opts Options) (jobID string, result <-chan ConvertResult) {
	jobID = c.newJobID()
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.jobs[jobID] = &job{cancel: cancel}
	c.mu.Unlock()

	resultCh := make(chan ConvertResult, 1)

	go func() {
		path, err := c.convert(ctx, jobID, source, target, opts)

		c.mu.Lock()
		delete(c.jobs, jobID)
		c.mu.Unlock()

		resultCh <- ConvertResult{Path: path, Err: err}
		close(resultCh)
	}()

	return jobID, resultCh
}

// Cancel requests cancellation of jobID. Idempotent: canceling an
// unknown or already-finished job is not an error (spec.md §4.1).
func (c *Converter) Cancel(jobID string) error {
	c.mu.Lock()
	j, ok := c.jobs[jobID]
	c.mu.Unlock()

	if !ok {
		return nil
	}
	j.cancel()
	return nil
}

// ConvertResult is the outcome delivered on Submit's result channel.
type ConvertResult struct {
	Path string
	Err  error
}

// Convert runs a conversion synchronously and blocks until it
// completes, fails, or ctx is cancelled. It's a thin wrapper over
// Submit for callers that don't need to observe the jobID before
// completion.
func (c *Converter) Convert(ctx context.Context, source, target string, opts Options) (string, error) {
	_, resultCh := c.Submit(ctx, source, target, opts)
	res := <-resultCh
	return res.Path, res.Err
}

func (c *Converter) convert(ctx context.Context, jobID, source, target string, opts Options) (string, error) {
	if !c.IsAvailable() {
		return "", &ErrConverterMissing{}
	}

	if _, err := os.Stat(source); err != nil {
		return "", &ErrSourceMissing{Path: source}
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(source), "."))
	if !supportedInputs[ext] {
		return "", &ErrUnsupportedInput{Format: ext}
	}

	target = strings.ToLower(target)
	if !supportedOutputs[target] {
		return "", &ErrUnsupportedOutput{Format: target}
	}

	if err := defaults.Set(&opts); err != nil {
		return "", errors.WithStack(err)
	}
	opts.Quality = clampQuality(opts.Quality)

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	outputPath := filepath.Join(outputDir, base+"."+target)

	args := buildArgs(source, outputPath, target, opts)

	c.mu.Lock()
	binary := c.convertBinary
	c.mu.Unlock()

	cmd := exec.CommandContext(ctx, binary, args...)

	stdoutR, stdoutW := io.Pipe()
	var stderr bytes.Buffer
	cmd.Stdout = stdoutW
	cmd.Stderr = &stderr

	start := time.Now()
	done := make(chan struct{})
	go func() {
		scanProgress(stdoutR, jobID, start, c.progress.Publish)
		close(done)
	}()

	err := cmd.Run()
	stdoutW.Close()
	<-done

	if ctx.Err() != nil {
		_ = os.Remove(outputPath)
		return "", &ErrCancelled{}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ErrProcessFailed{ExitCode: exitErr.ExitCode(), StderrTail: tail(stderr.String(), 4096)}
		}
		return "", errors.WithStack(err)
	}

	if _, statErr := os.Stat(outputPath); statErr != nil {
		return "", &ErrProcessFailed{ExitCode: 0, StderrTail: tail(stderr.String(), 4096)}
	}

	return outputPath, nil
}

func buildArgs(source, output, target string, opts Options) []string {
	args := []string{source, output}

	if opts.Profile != "" {
		args = append(args, "--output-profile", opts.Profile)
	}
	if jpegQualityFormats[target] {
		args = append(args, "--jpeg-quality", fmt.Sprintf("%d", opts.Quality))
	}
	if opts.PreserveEmbeddedMetadata {
		args = append(args, "--read-metadata-from-opf")
	}
	args = append(args, opts.ExtraArgs...)

	return args
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// GetMetadata runs the sibling ebook-meta tool against path and parses
// its key:value dump into a metadata.BookMetadata (spec.md §4.1).
func (c *Converter) GetMetadata(ctx context.Context, path string) (*metadata.BookMetadata, error) {
	if !c.IsAvailable() {
		return nil, &ErrConverterMissing{}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &ErrSourceMissing{Path: path}
	}

	c.mu.Lock()
	binary := c.metaBinary
	c.mu.Unlock()

	cmd := exec.CommandContext(ctx, binary, path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ErrProcessFailed{ExitCode: exitErr.ExitCode(), StderrTail: tail(stderr.String(), 4096)}
		}
		return nil, errors.WithStack(err)
	}

	return parseMetadataDump(stdout.String()), nil
}
