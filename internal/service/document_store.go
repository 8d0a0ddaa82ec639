package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sandeepkv93/endorsement-backend/internal/observability"
)

const (
	MaxDocumentSize     = 10 * 1024 * 1024
	documentPathPrefix  = "recommendations"
	documentURLTTL      = 15 * time.Minute
	contentSniffByteLen = 512
	bucketInitTimeout   = 10 * time.Second
)

var (
	errBucketUnavailable = errors.New("document bucket unavailable")

	documentTypes = map[string]string{
		"application/pdf": ".pdf",
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
	}
)

type StoredDocument struct {
	ObjectKey   string
	ContentType string
	Size        int64
}

type bucketAdmin interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

// MinIODocumentStore keeps supporting documents in an S3-compatible bucket.
// The bucket is created on first use so startup never waits on storage.
// A failed bootstrap is retried by the next caller.
type MinIODocumentStore struct {
	client *minio.Client
	admin  bucketAdmin
	bucket string
	initMu sync.Mutex
	ready  bool
}

func NewMinIODocumentStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIODocumentStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIODocumentStore{client: client, admin: client, bucket: bucket}, nil
}

// ensureBucket latches only on success. The bootstrap runs detached from the
// caller's cancellation so one aborted request cannot fail it for the next.
func (s *MinIODocumentStore) ensureBucket(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready {
		return nil
	}
	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bucketInitTimeout)
	defer cancel()

	exists, err := s.admin.BucketExists(initCtx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: %v", errBucketUnavailable, err)
	}
	if !exists {
		if err := s.admin.MakeBucket(initCtx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			exists, checkErr := s.admin.BucketExists(initCtx, s.bucket)
			if checkErr != nil || !exists {
				return fmt.Errorf("%w: %v", errBucketUnavailable, err)
			}
		}
	}
	s.ready = true
	return nil
}

// Put sniffs the first bytes to decide the content type; the client-declared type is ignored.
func (s *MinIODocumentStore) Put(ctx context.Context, recommendationID string, body io.Reader, size int64) (*StoredDocument, error) {
	if size > MaxDocumentSize {
		observability.RecordDocumentStorageEvent(ctx, "put", "too_big")
		return nil, ErrFileTooBig
	}
	contentType, head, err := sniffDocument(body)
	if err != nil {
		observability.RecordDocumentStorageEvent(ctx, "put", "invalid_type")
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		observability.RecordDocumentStorageEvent(ctx, "put", "error")
		return nil, err
	}

	key := path.Join(documentPathPrefix, recommendationID, uuid.NewString()+documentTypes[contentType])
	_, err = s.client.PutObject(ctx, s.bucket, key, io.MultiReader(bytes.NewReader(head), body), size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"Recommendation-ID": recommendationID,
		},
	})
	if err != nil {
		observability.RecordDocumentStorageEvent(ctx, "put", "error")
		return nil, fmt.Errorf("upload document: %w", err)
	}
	observability.RecordDocumentStorageEvent(ctx, "put", "success")
	return &StoredDocument{ObjectKey: key, ContentType: contentType, Size: size}, nil
}

func (s *MinIODocumentStore) Remove(ctx context.Context, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return nil
	}
	if !strings.HasPrefix(objectKey, documentPathPrefix+"/") || strings.Contains(objectKey, "..") {
		return fmt.Errorf("refusing to remove object %q", objectKey)
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		observability.RecordDocumentStorageEvent(ctx, "remove", "error")
		return fmt.Errorf("remove document: %w", err)
	}
	observability.RecordDocumentStorageEvent(ctx, "remove", "success")
	return nil
}

func (s *MinIODocumentStore) PresignGet(ctx context.Context, objectKey, fileName string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	params := url.Values{}
	if fileName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(fileName)))
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, documentURLTTL, params)
	if err != nil {
		observability.RecordDocumentStorageEvent(ctx, "presign", "error")
		return "", fmt.Errorf("presign document: %w", err)
	}
	observability.RecordDocumentStorageEvent(ctx, "presign", "success")
	return u.String(), nil
}

// Ping reports whether the bucket is reachable; used by readiness checks.
func (s *MinIODocumentStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func sniffDocument(body io.Reader) (string, []byte, error) {
	head := make([]byte, contentSniffByteLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read document: %w", err)
	}
	head = head[:n]
	detected := strings.ToLower(http.DetectContentType(head))
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	if _, ok := documentTypes[detected]; !ok {
		return "", nil, ErrInvalidFileType
	}
	return detected, head, nil
}
