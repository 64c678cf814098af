package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ruthikN/foodie-die/config"
)

// archiveURLTTL bounds how long a returned image link stays valid.
const archiveURLTTL = 24 * time.Hour

// ImageArchive keeps a copy of every accepted meal photo in S3. Archival is
// best-effort: the pipeline treats its failure as a logged warning.
type ImageArchive struct {
	s3Config *config.S3Config
}

// NewImageArchive creates a new ImageArchive instance
func NewImageArchive(s3Config *config.S3Config) *ImageArchive {
	return &ImageArchive{s3Config: s3Config}
}

// Archive uploads the image keyed by its content hash and returns a presigned
// URL for it. Re-uploading the same image overwrites the same object, which
// is a no-op in practice since the content is identical.
func (a *ImageArchive) Archive(ctx context.Context, image []byte, contentType, hash string) (string, error) {
	key := fmt.Sprintf("meal-images/%s.%s", hash, contentType)

	_, err := a.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(image),
		ContentType: aws.String("image/" + contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.WithField("key", key).Info("archived meal image")

	url, err := a.s3Config.GeneratePresignedURL(ctx, key, archiveURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to presign image URL: %w", err)
	}
	return url, nil
}
