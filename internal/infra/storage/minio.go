package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/neurolytics/neuroscan/internal/domain/analysis"
)

const defaultPresignExpiry = 15 * time.Minute

// Store implements analysis.ArtifactStore on top of MinIO/S3. The bucket
// layout is the single source of truth; there is no side index.
type Store struct {
	client        *minio.Client
	bucketName    string
	region        string
	presignExpiry time.Duration
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool, presignExpiry time.Duration) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	if presignExpiry <= 0 {
		presignExpiry = defaultPresignExpiry
	}
	return &Store{
		client:        cli,
		bucketName:    bucket,
		region:        region,
		presignExpiry: presignExpiry,
	}, nil
}

// SaveAnalysis writes the JSON record, the image bytes and the summary text
// under one token. The three writes are independent; a failure leaves any
// earlier writes in place.
func (s *Store) SaveAnalysis(ctx context.Context, token string, rec analysis.Record, image []byte, imageExt, summary string) (analysis.KeySet, error) {
	keys := analysis.KeysFor(token, imageExt)

	recJSON, err := rec.JSON()
	if err != nil {
		return analysis.KeySet{}, fmt.Errorf("encode record: %w", err)
	}

	if err := s.put(ctx, keys.JSON, recJSON, "application/json"); err != nil {
		return analysis.KeySet{}, err
	}
	if err := s.put(ctx, keys.Image, image, imageContentType(imageExt)); err != nil {
		return analysis.KeySet{}, err
	}
	if err := s.put(ctx, keys.Summary, []byte(summary), "text/plain"); err != nil {
		return analysis.KeySet{}, err
	}
	return keys, nil
}

// Latest returns the most recently modified analysis, or (nil, nil) when
// nothing has been stored yet.
func (s *Store) Latest(ctx context.Context) (*analysis.LatestAnalysis, error) {
	objs, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	ctxObj, ok := analysis.LatestContext(objs)
	if !ok {
		return nil, nil
	}

	rec, err := s.getRecord(ctx, ctxObj.Key)
	if err != nil {
		return nil, err
	}

	latest := &analysis.LatestAnalysis{Record: rec}
	for _, g := range analysis.GroupObjects(objs) {
		if g.JSONKey != ctxObj.Key {
			continue
		}
		latest.Token = g.Token
		latest.ImageKey = g.ImageKey
		if latest.ImageURL, err = s.presign(ctx, g.ImageKey); err != nil {
			return nil, err
		}
		break
	}
	return latest, nil
}

// History reconstructs every complete artifact group, newest first. Groups
// missing any of the three artifacts are left out.
func (s *Store) History(ctx context.Context) ([]analysis.HistoryEntry, error) {
	objs, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	groups := analysis.GroupObjects(objs)
	entries := make([]analysis.HistoryEntry, 0, len(groups))
	for _, g := range groups {
		rec, err := s.getRecord(ctx, g.JSONKey)
		if err != nil {
			return nil, err
		}
		summary, err := s.get(ctx, g.SummaryKey)
		if err != nil {
			return nil, err
		}
		imageURL, err := s.presign(ctx, g.ImageKey)
		if err != nil {
			return nil, err
		}
		jsonURL, err := s.presign(ctx, g.JSONKey)
		if err != nil {
			return nil, err
		}
		entries = append(entries, analysis.HistoryEntry{
			ID:        g.Token,
			ImageURL:  imageURL,
			Summary:   string(summary),
			Timestamp: g.Token,
			JSONURL:   jsonURL,
			FullData:  rec,
		})
	}
	return entries, nil
}

// SignedURL generates a short-lived read reference for a stored object.
func (s *Store) SignedURL(ctx context.Context, key string) (string, error) {
	return s.presign(ctx, key)
}

// Ping checks storage reachability, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucketName); err != nil {
		return s.wrap("ping", err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return s.wrap("put "+key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap("get "+key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap("read "+key, err)
	}
	return data, nil
}

func (s *Store) getRecord(ctx context.Context, key string) (analysis.Record, error) {
	data, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec analysis.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode stored record %s: %w", key, err)
	}
	return rec, nil
}

func (s *Store) list(ctx context.Context) ([]analysis.ObjectInfo, error) {
	var objs []analysis.ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    analysis.KeyPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, s.wrap("list", obj.Err)
		}
		objs = append(objs, analysis.ObjectInfo{Key: obj.Key, LastModified: obj.LastModified})
	}
	return objs, nil
}

func (s *Store) presign(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.presignExpiry, url.Values{})
	if err != nil {
		return "", s.wrap("presign "+key, err)
	}
	return u.String(), nil
}

// wrap marks credential and connectivity failures so the boundary can tell
// them apart from a valid empty listing.
func (s *Store) wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", analysis.ErrStorageUnavailable, op, err)
}

func imageContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
