package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/internal/chat/repository"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true,
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
}

var allowedMIME = []string{
	"image/jpeg", "image/png", "image/gif",
	"application/pdf", "application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	// legacy .doc files sniff as generic OLE containers
	"application/x-ole-storage",
}

// UploadUseCase stores chat attachments
type UploadUseCase struct {
	store    repository.AttachmentRepository
	maxBytes int64
}

// NewUploadUseCase maxMB bounds a single file
func NewUploadUseCase(store repository.AttachmentRepository, maxMB int) *UploadUseCase {
	if maxMB <= 0 {
		maxMB = 10
	}
	return &UploadUseCase{store: store, maxBytes: int64(maxMB) << 20}
}

// MaxBytes per file limit
func (uc *UploadUseCase) MaxBytes() int64 {
	return uc.maxBytes
}

// Upload checks name, sniffed content type and size, then stores the file under
// a random name keeping its extension.
func (uc *UploadUseCase) Upload(ctx context.Context, name string, size int64, r io.Reader) (*domain.Attachment, error) {
	if size > uc.maxBytes {
		return nil, domain.ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return nil, domain.ErrUnsupportedFile
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !mimetype.EqualsAny(mt.String(), allowedMIME...) && !matchesParent(mt) {
		return nil, domain.ErrUnsupportedFile
	}

	contentType := mt.String()
	objectName := uuid.New().String() + ext
	body := io.MultiReader(bytes.NewReader(head), r)
	url, err := uc.store.Save(ctx, objectName, body, size, contentType)
	if err != nil {
		return nil, err
	}

	kind := domain.AttachmentFile
	if strings.HasPrefix(contentType, "image/") {
		kind = domain.AttachmentImage
	}
	return &domain.Attachment{URL: url, Type: kind, Name: name, Size: size}, nil
}

// matchesParent accepts subtypes such as text/plain; charset=utf-8 or docx
// detected through its zip parent chain.
func matchesParent(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if mimetype.EqualsAny(m.String(), allowedMIME...) {
			return true
		}
	}
	return false
}
