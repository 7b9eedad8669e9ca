package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

const MaxUploadSize = 32 << 20

type UploadRequest struct {
	Filename       string
	ContentType    string
	Data           []byte
	ConversationID *uint
}

type UploadResult struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Uploader stores a blob and returns the durable URL it can be fetched from.
type Uploader interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
}

type MinioUploader struct {
	cfg    MinioConfig
	client *minio.Client
}

func NewMinioUploader(cfg MinioConfig) (*MinioUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioUploader{cfg: cfg, client: client}, nil
}

func (v *MinioUploader) EnsureBucket(ctx context.Context) error {
	exists, err := v.client.BucketExists(ctx, v.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return v.client.MakeBucket(ctx, v.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (v *MinioUploader) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if _, err := v.client.PutObject(ctx, v.cfg.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(v.cfg.PublicURL, "/")
	if len(base) == 0 {
		scheme := map[bool]string{true: "https", false: "http"}[v.cfg.UseSSL]
		base = fmt.Sprintf("%s://%s/%s", scheme, v.cfg.Endpoint, v.cfg.Bucket)
	}
	return fmt.Sprintf("%s/%s", base, key), nil
}

// Upload hands the file to the storage collaborator. With a conversation
// id the uploader must be an active participant of it.
func (v *Service) Upload(ctx context.Context, userId uint, req UploadRequest) (UploadResult, error) {
	if v.uploader == nil {
		return UploadResult{}, newError(ErrInternal, "uploads are not configured")
	}
	req.Filename = path.Base(strings.TrimSpace(req.Filename))
	if len(req.Filename) == 0 || req.Filename == "." || req.Filename == "/" {
		return UploadResult{}, newError(ErrValidation, "filename is required")
	}
	if len(req.Data) == 0 {
		return UploadResult{}, newError(ErrValidation, "file is empty")
	}
	if len(req.Data) > MaxUploadSize {
		return UploadResult{}, newError(ErrValidation, "file exceeds %d bytes", MaxUploadSize)
	}
	if len(req.ContentType) == 0 {
		req.ContentType = "application/octet-stream"
	}
	if req.ConversationID != nil {
		if _, _, err := v.RequireParticipant(*req.ConversationID, userId); err != nil {
			return UploadResult{}, err
		}
	}

	key := fmt.Sprintf("%s/%d/%s%s", time.Now().UTC().Format("2006/01/02"), userId, uuid.NewString(), path.Ext(req.Filename))
	url, err := v.uploader.Put(ctx, key, req.ContentType, req.Data)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("An error occurred when uploading attachment...")
		return UploadResult{}, newError(ErrInternal, "unable to store file")
	}

	return UploadResult{
		URL:         url,
		Filename:    req.Filename,
		Size:        int64(len(req.Data)),
		ContentType: req.ContentType,
	}, nil
}
