package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"locator-capture/internal/config"
	"locator-capture/internal/entity"
	"locator-capture/pkg/apperr"
	"locator-capture/pkg/logg"
)

// NothingCapturedNotice is shown to the operator when a session ends empty.
const NothingCapturedNotice = "No locators were captured in this session."

var ErrNothingCaptured = errors.New("nothing captured")

type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

func NewWriter(cfg *config.Config, logger *zap.Logger) *Writer {
	return &Writer{
		dir:    cfg.ExportConfig.Dir,
		logger: logger.With(zap.String(logg.Layer, "ExportWriter")),
		now:    time.Now,
	}
}

// FileName is the download name for a capture finished at t. The date is
// taken in UTC.
func FileName(t time.Time) string {
	return "locators_" + t.UTC().Format("20060102") + ".json"
}

// Write serialises the results as an indented JSON array and returns the
// file path. An existing export of the same day is never overwritten.
func (w *Writer) Write(results []entity.LocatorResult) (string, error) {
	const op = "Write"

	if len(results) == 0 {
		return "", apperr.Wrap(op, apperr.CodeNothingCaptured, ErrNothingCaptured, map[string]any{
			apperr.MetaStage: apperr.StageExport,
		})
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageExport,
		})
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaPath:   w.dir,
		})
	}

	path, err := w.reserve(FileName(w.now()))
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "create_failed",
			apperr.MetaPath:   w.dir,
		})
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)

		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaPath:   path,
		})
	}

	w.logger.Info("Locators exported", zap.String(logg.Path, path), zap.Int("count", len(results)))

	return path, nil
}

// reserve creates name in the export directory, or name_2, name_3, ... when taken.
func (w *Writer) reserve(name string) (string, error) {
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]

	for i := 1; ; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}

		path := filepath.Join(w.dir, candidate)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		return path, f.Close()
	}
}
