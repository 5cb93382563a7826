package triage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailtriage/interfaces"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/internal/utils"
)

const (
	reportFileTimeLayout = "20060102_150405"
	reportSuffixLength   = 8
)

type FileReportWriter struct {
	dir string
}

func NewFileReportWriter(dir string) interfaces.ReportWriter {
	return &FileReportWriter{dir: dir}
}

// Save writes markdown to a new file under the report directory and returns
// its path once the content has been synced to disk. Existing files are
// never overwritten.
func (w *FileReportWriter) Save(ctx context.Context, markdown string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FileReportWriter.Save")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		tracing.TraceErr(span, err)
		return "", triageerrors.Mark(errors.Wrapf(err, "failed to create report directory %s", w.dir), triageerrors.ErrReportWrite)
	}

	name := fmt.Sprintf("report_%s_%s.md",
		utils.Now().Format(reportFileTimeLayout),
		utils.GenerateNanoIDWithPrefix("", reportSuffixLength))
	path := filepath.Join(w.dir, name)
	span.SetTag("path", path)

	if err := writeFileDurably(path, []byte(markdown)); err != nil {
		tracing.TraceErr(span, err)
		return "", triageerrors.Mark(err, triageerrors.ErrReportWrite)
	}

	return path, nil
}

func writeFileDurably(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(path)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err = f.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %s", path)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", path)
	}
	if err = syncDir(filepath.Dir(path)); err != nil {
		return err
	}
	return nil
}

// syncDir flushes the directory entry of a newly created file.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to open directory %s", dir)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync directory %s", dir)
	}
	return nil
}
