package app

import (
	"bytes"
	"context"
	"testing"

	"tourism_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestUploadUseCase_Image(t *testing.T) {
	ctx := context.Background()
	store := new(MockAttachmentRepository)
	store.On("Save", ctx, mock.MatchedBy(func(name string) bool { return len(name) > 4 && name[len(name)-4:] == ".png" }),
		pngHeader, int64(len(pngHeader)), "image/png").Return("http://cdn/chat/x.png", nil)
	uc := NewUploadUseCase(store, 1)

	att, err := uc.Upload(ctx, "Photo.PNG", int64(len(pngHeader)), bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, domain.Attachment{URL: "http://cdn/chat/x.png", Type: domain.AttachmentImage, Name: "Photo.PNG", Size: int64(len(pngHeader))}, *att)
	store.AssertExpectations(t)
}

func TestUploadUseCase_TextFile(t *testing.T) {
	ctx := context.Background()
	body := []byte("meeting point is the north gate at 9am")
	store := new(MockAttachmentRepository)
	store.On("Save", ctx, mock.Anything, body, int64(len(body)), mock.Anything).Return("http://cdn/chat/x.txt", nil)
	uc := NewUploadUseCase(store, 1)

	att, err := uc.Upload(ctx, "notes.txt", int64(len(body)), bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, domain.AttachmentFile, att.Type)
}

func TestUploadUseCase_Rejected(t *testing.T) {
	ctx := context.Background()
	store := new(MockAttachmentRepository)
	uc := NewUploadUseCase(store, 1)

	_, err := uc.Upload(ctx, "big.png", 2<<20, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	_, err = uc.Upload(ctx, "run.exe", 10, bytes.NewReader([]byte("MZ")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFile)

	// extension says png, content is an ELF binary
	_, err = uc.Upload(ctx, "fake.png", 8, bytes.NewReader([]byte("\x7fELF\x02\x01\x01\x00")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFile)

	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
