// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

// StorageService stores chapter record documents in S3, or in process when
// no AWS credentials are configured.
type StorageService struct {
	s3Client s3iface.S3API
	bucket   string

	mu    sync.RWMutex
	local map[string][]byte
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.AccessKeyID == "" {
		// Return service without S3 for local development
		return &StorageService{bucket: cfg.S3Bucket, local: make(map[string][]byte)}, nil
	}

	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewStorageServiceWithClient(s3.New(sess), cfg.S3Bucket), nil
}

func NewStorageServiceWithClient(client s3iface.S3API, bucket string) *StorageService {
	return &StorageService{s3Client: client, bucket: bucket}
}

// ChapterRecordKey is the object key for a chapter's record document.
func ChapterRecordKey(bookID string, chapterNumber int) string {
	return "books/" + bookID + "/chapters/" + strconv.Itoa(chapterNumber) + "/record.json"
}

func (s *StorageService) PutChapterRecord(ctx context.Context, rec models.ChapterRecord) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode chapter record: %w", err)
	}
	key := ChapterRecordKey(rec.Metadata.BookID, rec.Metadata.ChapterNumber)

	if s.s3Client == nil {
		s.mu.Lock()
		s.local[key] = body
		s.mu.Unlock()
		return key, nil
	}

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", utils.NewExternalDependencyError("s3", "PutObject", err)
	}
	return key, nil
}

func (s *StorageService) GetChapterRecord(ctx context.Context, bookID string, chapterNumber int) (*models.ChapterRecord, error) {
	key := ChapterRecordKey(bookID, chapterNumber)
	body, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}

	var rec models.ChapterRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode chapter record %s: %w", key, err)
	}
	return &rec, nil
}

func (s *StorageService) read(ctx context.Context, key string) ([]byte, error) {
	notFound := &utils.NotFoundError{Resource: "chapter record", ID: key, Hint: "Publish the chapter before reading its record"}

	if s.s3Client == nil {
		s.mu.RLock()
		body, ok := s.local[key]
		s.mu.RUnlock()
		if !ok {
			return nil, notFound
		}
		return body, nil
	}

	out, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, notFound
		}
		return nil, utils.NewExternalDependencyError("s3", "GetObject", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, utils.NewExternalDependencyError("s3", "GetObject", err)
	}
	return body, nil
}
