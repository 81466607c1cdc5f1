package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"plaksha/ocr-api/config"

	"go.uber.org/zap"
)

const (
	// Time the process gets to close its pipes after being killed
	waitDelay = 2 * time.Second

	// How much stderr is kept around for failure logs
	maxStderr = 64 << 10
)

// ExtractionWorker turns a raw document into whatever fields it could read
type ExtractionWorker interface {
	Run(ctx context.Context, data []byte) (map[string]any, error)
}

// ProcessWorker runs an external OCR program once per document. The document
// goes in base64 encoded on stdin and a single JSON object is expected back
// on stdout
type ProcessWorker struct {
	Path        string
	Interpreter string

	timeout   time.Duration
	maxOutput int64
	slots     chan struct{}
}

func NewProcessWorker(cfg config.Worker) *ProcessWorker {
	zap.L().Debug("Initializing extraction worker", zap.String("path", cfg.Path), zap.Int("max_jobs", cfg.MaxJobs))

	return &ProcessWorker{
		Path:        cfg.Path,
		Interpreter: cfg.Interpreter,
		timeout:     cfg.Timeout,
		maxOutput:   cfg.MaxOutput,
		slots:       make(chan struct{}, cfg.MaxJobs),
	}
}

func (w *ProcessWorker) Run(ctx context.Context, data []byte) (map[string]any, error) {
	select {
	case w.slots <- struct{}{}:
		defer func() { <-w.slots }()
	default:
		return nil, ErrWorkerBusy
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var cmd *exec.Cmd
	if w.Interpreter != "" {
		cmd = exec.CommandContext(ctx, w.Interpreter, w.Path)
	} else {
		cmd = exec.CommandContext(ctx, w.Path)
	}

	stdout := &cappedBuffer{max: w.maxOutput}
	stderr := &lineLogger{keep: cappedBuffer{max: maxStderr}}

	// Some OCR backends load two OpenMP runtimes and abort without this
	cmd.Env = append(os.Environ(), "KMP_DUPLICATE_LIB_OK=TRUE")
	cmd.Stdin = strings.NewReader(base64.StdEncoding.EncodeToString(data))
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	zap.L().Debug("Running extraction worker", zap.String("cmd", cmd.String()), zap.Int("input_size", len(data)))

	start := time.Now()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkerUnavailable, err)
	}

	waitErr := cmd.Wait()
	stderr.flush()

	if ctxErr := ctx.Err(); ctxErr != nil {
		zap.L().Error("Extraction worker did not finish",
			zap.Error(ctxErr),
			zap.Duration("took", time.Since(start)),
			zap.String("stderr", stderr.keep.String()))

		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ErrWorkerTimeout
		}
		return nil, ctxErr
	}

	// The exit status alone doesn't decide anything, a worker that printed a
	// result and then exited non-zero still produced a result
	if waitErr != nil {
		zap.L().Warn("Extraction worker exited with an error", zap.Error(waitErr))
	}

	out, err := decodeWorkerOutput(stdout)
	if err != nil {
		zap.L().Error("Extraction worker output rejected",
			zap.Error(err),
			zap.String("stdout", stdout.String()),
			zap.String("stderr", stderr.keep.String()))
		return nil, err
	}

	zap.L().Debug("Extraction worker finished", zap.Duration("took", time.Since(start)))
	return out, nil
}

func decodeWorkerOutput(stdout *cappedBuffer) (map[string]any, error) {
	raw := bytes.TrimSpace(stdout.Bytes())
	if len(raw) == 0 {
		return nil, ErrEmptyWorkerOutput
	}

	if stdout.truncated {
		return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrMalformedWorkerOutput, stdout.max)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedWorkerOutput, err)
	}

	// A literal null decodes without error
	if out == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedWorkerOutput)
	}

	return out, nil
}

// cappedBuffer keeps the first max bytes and silently drops the rest so the
// child never blocks or dies on a full pipe. The buffer is a named field so
// io.Copy can't reach bytes.Buffer.ReadFrom and skip the cap
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.max - int64(b.buf.Len())
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}

	if int64(len(p)) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}

	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte  { return b.buf.Bytes() }
func (b *cappedBuffer) String() string { return b.buf.String() }
func (b *cappedBuffer) Len() int       { return b.buf.Len() }

// lineLogger logs every complete stderr line as it arrives
type lineLogger struct {
	partial []byte
	keep    cappedBuffer
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.keep.Write(p)
	l.partial = append(l.partial, p...)

	for {
		i := bytes.IndexByte(l.partial, '\n')
		if i < 0 {
			break
		}

		l.log(l.partial[:i])
		l.partial = l.partial[i+1:]
	}

	// A worker spamming without newlines shouldn't grow this forever
	if len(l.partial) > maxStderr {
		l.flush()
	}

	return len(p), nil
}

func (l *lineLogger) flush() {
	if len(l.partial) > 0 {
		l.log(l.partial)
		l.partial = nil
	}
}

func (l *lineLogger) log(line []byte) {
	if line = bytes.TrimSpace(line); len(line) > 0 {
		zap.L().Debug("Extraction worker stderr", zap.ByteString("line", line))
	}
}
