package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the slice of the S3 client the blob store uses
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// BlobStore persists the state document to an object-store blob.
// Writes are write-if-changed: an upload is skipped when the document
// hashes identically to the last successful one.
type BlobStore struct {
	client ObjectAPI
	bucket string
	key    string

	mu       sync.Mutex
	lastHash [sha256.Size]byte
	hasHash  bool
}

// NewBlobStore creates a blob store over an existing S3 client
func NewBlobStore(client ObjectAPI, bucket, key string) *BlobStore {
	return &BlobStore{client: client, bucket: bucket, key: key}
}

// NewBlobStoreFromEnv builds the S3 client from ambient AWS config
func NewBlobStoreFromEnv(ctx context.Context, region, bucket, key string) (*BlobStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewBlobStore(s3.NewFromConfig(awsCfg), bucket, key), nil
}

// Save uploads the document unless it is unchanged since the last
// successful upload.
func (s *BlobStore) Save(ctx context.Context, doc *StateDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	sum := sha256.Sum256(data)

	s.mu.Lock()
	unchanged := s.hasHash && sum == s.lastHash
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put state blob: %w", err)
	}

	s.mu.Lock()
	s.lastHash = sum
	s.hasHash = true
	s.mu.Unlock()
	return nil
}

// Load fetches the document from the blob.
// Returns nil, nil when the blob does not exist yet.
func (s *BlobStore) Load(ctx context.Context) (*StateDocument, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			// a missing blob is a fresh start, not a failure
			return nil, nil
		}
		return nil, fmt.Errorf("get state blob: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read state blob: %w", err)
	}

	var doc StateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal state blob: %w", err)
	}

	s.mu.Lock()
	s.lastHash = sha256.Sum256(data)
	s.hasHash = true
	s.mu.Unlock()
	return &doc, nil
}
