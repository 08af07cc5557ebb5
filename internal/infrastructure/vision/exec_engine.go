package vision

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/spf13/afero"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
)

// ExecEngine запускает detect.py из репозитория yolov5 отдельным процессом.
type ExecEngine struct {
	Command []string // например: python detect.py
	Weights string
	Data    string // файл датасета с именами классов
	Dir     string // рабочий каталог процесса

	fs afero.Fs
}

// NewExecEngine создаёт детектор-процесс. fs должен указывать на ту же файловую
// систему, куда пишет процесс (в рабочем режиме afero.NewOsFs()).
func NewExecEngine(command []string, weights, data, dir string, fs afero.Fs) *ExecEngine {
	return &ExecEngine{
		Command: command,
		Weights: weights,
		Data:    data,
		Dir:     dir,
		fs:      fs,
	}
}

// Args возвращает аргументы detect.py для запроса.
// yolov5 пишет результаты в <project>/<name>, поэтому OutputDir делится на два аргумента.
func (e *ExecEngine) Args(req entity.DetectionRequest) []string {
	args := append([]string(nil), e.Command[1:]...)
	args = append(args,
		"--weights", e.Weights,
		"--source", req.SourcePath,
		"--project", filepath.Dir(req.OutputDir),
		"--name", filepath.Base(req.OutputDir),
		"--save-txt",
		"--exist-ok",
	)
	if e.Data != "" {
		args = append(args, "--data", e.Data)
	}
	return args
}

// Detect запускает процесс и ждёт его завершения.
// yolov5 не создаёт файл меток, если ничего не нашёл; после успешного завершения
// создаём пустой файл, чтобы «ничего не найдено» отличалось от сбоя.
func (e *ExecEngine) Detect(ctx context.Context, req entity.DetectionRequest) error {
	if len(e.Command) == 0 {
		return fmt.Errorf("detection command is not configured")
	}

	procReq, err := e.processPaths(req)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Args(procReq)...)
	cmd.Dir = e.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("detect.py: %w", ctxErr)
		}
		return fmt.Errorf("detect.py: %w: %s", err, lastLine(stderr.Bytes()))
	}

	labelsPath := entity.LabelFilePath(req.OutputDir, filepath.Base(req.SourcePath))
	exists, err := afero.Exists(e.fs, labelsPath)
	if err != nil {
		return fmt.Errorf("check labels file: %w", err)
	}
	if !exists {
		if err := e.fs.MkdirAll(filepath.Dir(labelsPath), 0o755); err != nil {
			return fmt.Errorf("create labels dir: %w", err)
		}
		if err := afero.WriteFile(e.fs, labelsPath, nil, 0o644); err != nil {
			return fmt.Errorf("write empty labels file: %w", err)
		}
	}
	return nil
}

// processPaths переводит пути запроса в абсолютные, если процесс работает в другом каталоге
func (e *ExecEngine) processPaths(req entity.DetectionRequest) (entity.DetectionRequest, error) {
	if e.Dir == "" {
		return req, nil
	}
	source, err := filepath.Abs(req.SourcePath)
	if err != nil {
		return req, fmt.Errorf("resolve source path: %w", err)
	}
	output, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return req, fmt.Errorf("resolve output dir: %w", err)
	}
	return entity.DetectionRequest{SourcePath: source, OutputDir: output}, nil
}

func lastLine(b []byte) string {
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	return string(lines[len(lines)-1])
}

var _ port.DetectionEngine = (*ExecEngine)(nil)
