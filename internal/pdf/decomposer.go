// Package pdf decomposes judicial-auction PDFs into overlapping page
// chunks and extracts their text using pdfcpu.
package pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/common/errs"
	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Decomposer implements interfaces.PDFDecomposer using pdfcpu against a
// caller-provided object store.
type Decomposer struct {
	store   interfaces.ObjectStore
	logger  arbor.ILogger
	tempDir string
	maxSize int64
}

var _ interfaces.PDFDecomposer = (*Decomposer)(nil)

// NewDecomposer creates a Decomposer. maxSizeBytes bounds the documents
// Validate will accept; pass 0 to skip the size check.
func NewDecomposer(store interfaces.ObjectStore, logger arbor.ILogger, maxSizeBytes int64) *Decomposer {
	tempDir := filepath.Join(os.TempDir(), "leadforge-pdf")
	os.MkdirAll(tempDir, 0755)
	return &Decomposer{store: store, logger: logger, tempDir: tempDir, maxSize: maxSizeBytes}
}

// Validate opens the PDF at objectKey and confirms it parses and is within
// the configured size bound. An encrypted PDF that opens with an empty
// password is decrypted and accepted; any other encrypted PDF is rejected.
func (d *Decomposer) Validate(ctx context.Context, objectKey string) (*interfaces.PDFMetadata, error) {
	meta, err := d.store.Stat(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to stat object %s: %w", objectKey, err)
	}
	if d.maxSize > 0 && meta.SizeBytes > d.maxSize {
		return nil, errs.NewPDFError(errs.PDFTooLarge, objectKey, fmt.Errorf("%d > %d bytes", meta.SizeBytes, d.maxSize))
	}

	tempFile, cleanup, err := d.materialize(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, errs.NewPDFError(errs.PDFInvalid, objectKey, err)
	}
	isEncrypted := pdfCtx.Encrypt != nil

	readFile := tempFile
	if isEncrypted {
		decrypted, decCleanup, err := d.decryptEmptyPassword(objectKey, tempFile)
		if err != nil {
			return nil, err
		}
		defer decCleanup()
		readFile = decrypted
		pdfCtx, err = api.ReadContextFile(readFile)
		if err != nil {
			return nil, errs.NewPDFError(errs.PDFInvalid, objectKey, err)
		}
	}

	return &interfaces.PDFMetadata{
		PageCount:   pdfCtx.PageCount,
		SizeBytes:   meta.SizeBytes,
		IsEncrypted: isEncrypted,
	}, nil
}

// decryptEmptyPassword attempts to decrypt an encrypted PDF with an empty
// user password, the only credential this pipeline ever has available
// (spec.md §4.4: "decryptable with empty password if encrypted"). A PDF
// that rejects the empty password is rejected outright rather than queued
// for a password it will never receive.
func (d *Decomposer) decryptEmptyPassword(objectKey, inFile string) (string, func(), error) {
	outFile := filepath.Join(d.tempDir, uuid.New().String()+"-decrypted.pdf")
	conf := model.NewDefaultConfiguration()
	conf.UserPW = ""
	conf.OwnerPW = ""
	if err := api.DecryptFile(inFile, outFile, conf); err != nil {
		return "", func() {}, errs.NewPDFError(errs.PDFEncrypted, objectKey, err)
	}
	return outFile, func() { os.Remove(outFile) }, nil
}

// PlanChunks divides a document of pageCount pages into overlapping windows
// of chunkSizePages with overlapPages shared between consecutive windows.
func (d *Decomposer) PlanChunks(pageCount, chunkSizePages, overlapPages int) []models.Chunk {
	if pageCount <= 0 {
		return nil
	}
	if chunkSizePages <= 0 {
		chunkSizePages = pageCount
	}
	if overlapPages < 0 || overlapPages >= chunkSizePages {
		overlapPages = 0
	}

	stride := chunkSizePages - overlapPages
	var chunks []models.Chunk
	seq := 0
	for start := 1; start <= pageCount; start += stride {
		end := start + chunkSizePages - 1
		if end > pageCount {
			end = pageCount
		}
		overlap := 0
		if seq > 0 {
			overlap = overlapPages
		}
		chunks = append(chunks, models.Chunk{
			ID:           uuid.New().String(),
			Sequence:     seq,
			StartPage:    start,
			EndPage:      end,
			OverlapPages: overlap,
			Status:       models.ChunkStatusPending,
		})
		seq++
		if end == pageCount {
			break
		}
	}
	return chunks
}

// ExtractChunk pulls the text and image count for one planned chunk out of
// the PDF at objectKey, using pdfcpu's page-selection content extraction.
func (d *Decomposer) ExtractChunk(ctx context.Context, objectKey string, chunk *models.Chunk) error {
	tempFile, cleanup, err := d.materialize(ctx, objectKey)
	if err != nil {
		return err
	}
	defer cleanup()

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return errs.NewPDFError(errs.PDFInvalid, objectKey, err)
	}
	readFile := tempFile
	if pdfCtx.Encrypt != nil {
		decrypted, decCleanup, err := d.decryptEmptyPassword(objectKey, tempFile)
		if err != nil {
			return err
		}
		defer decCleanup()
		readFile = decrypted
	}
	if chunk.StartPage < 1 || chunk.EndPage > pdfCtx.PageCount || chunk.StartPage > chunk.EndPage {
		return errs.NewPDFError(errs.PDFPageOutOfRange, objectKey, fmt.Errorf("chunk pages %d-%d outside document of %d pages", chunk.StartPage, chunk.EndPage, pdfCtx.PageCount))
	}

	outDir := filepath.Join(d.tempDir, "chunk_"+chunk.ID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	pageSelection := []string{fmt.Sprintf("%d-%d", chunk.StartPage, chunk.EndPage)}
	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(readFile, outDir, pageSelection, conf); err != nil {
		d.logger.Warn().Err(err).Str("chunk_id", chunk.ID).Msg("content extraction failed")
		return errs.NewPDFError(errs.PDFExtractionFailed, objectKey, err)
	}

	files, _ := os.ReadDir(outDir)
	pageTexts := make(map[int]string)
	imageCount := 0
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		content, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			continue
		}
		if strings.Contains(name, "Image") {
			imageCount++
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(name, "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	var builder strings.Builder
	for page := chunk.StartPage; page <= chunk.EndPage; page++ {
		text, ok := pageTexts[page]
		if !ok {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n--- Page ")
			builder.WriteString(strconv.Itoa(page))
			builder.WriteString(" ---\n\n")
		}
		builder.WriteString(text)
	}

	chunk.Text = builder.String()
	chunk.ImageCount = imageCount
	return nil
}

// materialize streams the object to a local temp file for pdfcpu, which
// operates on paths rather than readers, and returns a cleanup func.
func (d *Decomposer) materialize(ctx context.Context, objectKey string) (string, func(), error) {
	r, err := d.store.Get(ctx, objectKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch object %s: %w", objectKey, err)
	}
	defer r.Close()

	tempFile := filepath.Join(d.tempDir, uuid.New().String()+".pdf")
	f, err := os.Create(tempFile)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tempFile)
		return "", nil, fmt.Errorf("failed to materialize object %s: %w", objectKey, err)
	}
	f.Close()

	return tempFile, func() { os.Remove(tempFile) }, nil
}
