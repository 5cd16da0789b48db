package trainer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/absmach/detlab/task"
)

const (
	DefaultBin = "yolo"

	maxLineSize = 1024 * 1024
)

var (
	ErrEmptyWeights = errors.New("empty weights path")

	ansiPattern     = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
	resultsPattern  = regexp.MustCompile(`Results saved to (.+)$`)
	exportedPattern = regexp.MustCompile(`saved as '([^']+)'`)
)

var _ Runtime = (*hostRuntime)(nil)

type hostRuntime struct {
	bin     string
	workDir string
	output  io.Writer
	logger  *slog.Logger
}

// NewHostRuntime drives the ultralytics command line. Child output is copied to output.
func NewHostRuntime(logger *slog.Logger, bin, workDir string, output io.Writer) Runtime {
	if bin == "" {
		bin = DefaultBin
	}
	if output == nil {
		output = io.Discard
	}

	return &hostRuntime{
		bin:     bin,
		workDir: workDir,
		output:  output,
		logger:  logger,
	}
}

func (h *hostRuntime) Train(ctx context.Context, req task.TrainRequest) (Result, error) {
	args := append([]string{"detect", "train"}, req.Args()...)

	out, err := h.run(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("training %s failed: %w", req.Name, err)
	}

	runDir := lastMatch(out, resultsPattern)
	if runDir == "" {
		runDir = filepath.Join(req.Project, req.Name)
	}

	return Result{
		RunDir:  runDir,
		Weights: filepath.Join(runDir, "weights", "best.pt"),
	}, nil
}

func (h *hostRuntime) Export(ctx context.Context, res Result, opts ExportOptions) (string, error) {
	if res.Weights == "" {
		return "", ErrEmptyWeights
	}

	args := []string{
		"export",
		"model=" + res.Weights,
		"format=" + opts.Format,
		"nms=" + pyBool(opts.NMS),
	}

	out, err := h.run(ctx, args)
	if err != nil {
		return "", fmt.Errorf("export of %s to %s failed: %w", res.Weights, opts.Format, err)
	}

	return lastMatch(out, exportedPattern), nil
}

func (h *hostRuntime) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, h.bin, args...)
	cmd.Dir = h.workDir

	results := bytes.Buffer{}
	w := io.MultiWriter(h.output, &results)
	cmd.Stdout = w
	cmd.Stderr = w

	h.logger.Debug("Running trainer command", slog.String("bin", h.bin), slog.Any("args", args))

	if err := cmd.Run(); err != nil {
		if tail := lastLine(results.Bytes()); tail != "" {
			return nil, fmt.Errorf("%w: %s", err, tail)
		}

		return nil, err
	}

	return results.Bytes(), nil
}

func lastMatch(out []byte, pattern *regexp.Regexp) string {
	var match string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)
	for scanner.Scan() {
		line := ansiPattern.ReplaceAllString(scanner.Text(), "")
		if m := pattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			match = strings.TrimSpace(m[1])
		}
	}

	return match
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(ansiPattern.ReplaceAllString(string(out), "")), "\n")

	return strings.TrimSpace(lines[len(lines)-1])
}

func pyBool(b bool) string {
	if b {
		return "True"
	}

	return "False"
}
