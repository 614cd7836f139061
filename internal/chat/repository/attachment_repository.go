package repository

import (
	"context"
	"io"

	"tourism_chat_service/pkg/database"
)

// AttachmentRepository definition object storage for uploaded chat files
type AttachmentRepository interface {
	// Save stores the object and returns the URL clients fetch it from
	Save(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
}

type minioAttachmentRepository struct {
	client *database.MinIOClient
}

// NewMinIOAttachmentRepository create AttachmentRepository on a bucket
func NewMinIOAttachmentRepository(client *database.MinIOClient) AttachmentRepository {
	return &minioAttachmentRepository{client: client}
}

func (r *minioAttachmentRepository) Save(ctx context.Context, objectName string, rd io.Reader, size int64, contentType string) (string, error) {
	return r.client.PutObject(ctx, objectName, rd, size, contentType)
}
