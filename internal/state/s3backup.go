package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ujanalytics/costctl/internal/awsclient"
	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
)

// BackupInfo describes one snapshot stored in S3.
type BackupInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// S3Backup mirrors state documents to an S3 bucket. Uploads are
// best-effort from the caller's point of view: a failed mirror never
// blocks a stop.
type S3Backup struct {
	client awsclient.S3API
	bucket string
	prefix string
	log    logger.Logger
}

// NewS3Backup creates a backup writer for the given bucket and key prefix.
func NewS3Backup(client awsclient.S3API, bucket, prefix string, log logger.Logger) *S3Backup {
	return &S3Backup{client: client, bucket: bucket, prefix: prefix, log: log}
}

// Upload mirrors the document to S3 and returns the object key. Keys
// embed project, environment and a UTC timestamp so listings sort by
// name as well as by modification time.
func (b *S3Backup) Upload(ctx context.Context, doc *Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.New(errors.TypeState, "failed to encode state document for upload").WithCause(err)
	}

	key := path.Join(b.prefix, fmt.Sprintf("state_%s_%s_%s.json",
		doc.Project, doc.Environment, doc.Timestamp.UTC().Format("20060102_150405")))

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"project":     doc.Project,
			"environment": doc.Environment,
			"timestamp":   doc.Timestamp.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", errors.Classify(err, "s3", "PutObject")
	}

	b.log.WithFields(map[string]interface{}{
		"bucket": b.bucket,
		"key":    key,
	}).Info("state mirrored to S3")
	return key, nil
}

// List returns available snapshots newest-first. An unreachable bucket
// yields an empty list and a warning rather than an error, so status
// and listing commands degrade instead of failing.
func (b *S3Backup) List(ctx context.Context, project, environment string) []BackupInfo {
	keyPrefix := path.Join(b.prefix, fmt.Sprintf("state_%s_%s_", project, environment))

	var backups []BackupInfo
	var token *string

	for {
		out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(keyPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			b.log.WithField("bucket", b.bucket).Warn("failed to list S3 backups: " + err.Error())
			return nil
		}

		for _, obj := range out.Contents {
			backups = append(backups, BackupInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].LastModified.After(backups[j].LastModified)
	})
	return backups
}

// Restore downloads a snapshot and validates it.
func (b *S3Backup) Restore(ctx context.Context, key string) (*Document, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Classify(err, "s3", "GetObject").
			WithSolutions("Run 'costctl backups list' to see available snapshots")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.New(errors.TypeState, "failed to read snapshot body").WithCause(err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.TypeState, "snapshot is not a valid state document").WithCause(err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}
