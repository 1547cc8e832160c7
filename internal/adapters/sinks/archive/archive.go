// Package archive writes submission packages as local zip files.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/ctrain/internal/submission"
)

// SinkName is the registered name of the archive sink.
const SinkName = "archive"

// Sink writes one zip per submission into a directory.
type Sink struct {
	outDir string
	now    func() time.Time
}

// New constructs an archive sink rooted at outDir.
func New(outDir string) (*Sink, error) {
	outDir = strings.TrimSpace(outDir)
	if outDir == "" {
		return nil, errors.New("archive output directory is required")
	}
	return &Sink{outDir: outDir, now: time.Now}, nil
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return SinkName
}

// Deliver writes the package to a temp file and renames it into place.
func (s *Sink) Deliver(ctx context.Context, pkg submission.Package) (receipt submission.Receipt, err error) {
	if err := ctx.Err(); err != nil {
		return submission.Receipt{}, err
	}
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return submission.Receipt{}, fmt.Errorf("create archive dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.outDir, ".ctrain-*.zip.tmp")
	if err != nil {
		return submission.Receipt{}, fmt.Errorf("create archive temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = WriteZip(tmp, pkg); err != nil {
		return submission.Receipt{}, err
	}
	if err = tmp.Close(); err != nil {
		return submission.Receipt{}, fmt.Errorf("close archive: %w", err)
	}
	target := filepath.Join(s.outDir, pkg.ArchiveName())
	if err = os.Rename(tmp.Name(), target); err != nil {
		return submission.Receipt{}, fmt.Errorf("move archive into place: %w", err)
	}
	return submission.Receipt{
		Sink:        SinkName,
		Location:    target,
		Files:       len(pkg.Files) + 1,
		DeliveredAt: s.now().UTC(),
	}, nil
}

// WriteZip writes the details table and the certificates folder.
func WriteZip(w io.Writer, pkg submission.Package) error {
	zw := zip.NewWriter(w)
	if err := writeEntry(zw, submission.CSVFileName, pkg.CreatedAt, pkg.CSV); err != nil {
		return err
	}
	for _, f := range pkg.Files {
		if err := writeEntry(zw, f.Path, pkg.CreatedAt, f.Data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

// writeEntry adds one deflated file.
func writeEntry(zw *zip.Writer, name string, modified time.Time, data []byte) error {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	}
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
