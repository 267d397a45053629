package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/google/uuid"
)

// S3ClientConfig holds configuration for S3Store
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Container       string
	UsePathStyle    bool
}

// S3Store keeps documents in an S3-compatible bucket (e.g., RustFS)
type S3Store struct {
	client    *s3.Client
	bucket    string
	container string
}

// NewS3Store creates a new S3Store with the given configuration
func NewS3Store(ctx context.Context, cfg S3ClientConfig) (*S3Store, error) {
	// Create custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		container: cfg.Container,
	}, nil
}

// List returns every file in the container, newest first.
func (c *S3Store) List(ctx context.Context) ([]domain.StoredFile, error) {
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(containerPrefix(c.container)),
	})

	var files []domain.StoredFile
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, domain.ErrStore.WithCause(fmt.Errorf("failed to list objects: %w", err))
		}
		for _, obj := range page.Contents {
			id, name, ok := parseKey(c.container, aws.ToString(obj.Key))
			if !ok {
				continue
			}
			files = append(files, domain.StoredFile{
				ID:           id,
				Name:         name,
				MimeType:     mimeTypeFor(name, ""),
				Size:         aws.ToInt64(obj.Size),
				ModifiedTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModifiedTime.After(files[j].ModifiedTime)
	})
	return files, nil
}

// resolveKey finds the object key for a file id.
func (c *S3Store) resolveKey(ctx context.Context, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", domain.ErrFileNotFound.WithCause(err)
	}

	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(containerPrefix(c.container) + id + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return "", domain.ErrStore.WithCause(fmt.Errorf("failed to look up object: %w", err))
	}
	if len(out.Contents) == 0 {
		return "", domain.ErrFileNotFound
	}
	return aws.ToString(out.Contents[0].Key), nil
}

// Stat returns the metadata of a stored file
func (c *S3Store) Stat(ctx context.Context, id string) (domain.StoredFile, error) {
	key, err := c.resolveKey(ctx, id)
	if err != nil {
		return domain.StoredFile{}, err
	}

	output, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return domain.StoredFile{}, c.wrapErr("failed to head object", err)
	}

	_, name, _ := parseKey(c.container, key)
	return domain.StoredFile{
		ID:           id,
		Name:         name,
		MimeType:     mimeTypeFor(name, aws.ToString(output.ContentType)),
		Size:         aws.ToInt64(output.ContentLength),
		ModifiedTime: aws.ToTime(output.LastModified),
	}, nil
}

// Download opens the object body. The caller must close it.
func (c *S3Store) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	key, err := c.resolveKey(ctx, id)
	if err != nil {
		return nil, err
	}

	output, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.wrapErr("failed to get object", err)
	}
	return output.Body, nil
}

// Upload stores r under a new file id. size may be -1 when unknown.
func (c *S3Store) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (domain.StoredFile, error) {
	name, err := cleanName(name)
	if err != nil {
		return domain.StoredFile{}, domain.ErrMissingRequiredField.WithCause(err)
	}

	id := uuid.New().String()
	contentType = mimeTypeFor(name, contentType)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(objectKey(c.container, id, name)),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		return domain.StoredFile{}, domain.ErrStore.WithCause(fmt.Errorf("failed to put object: %w", err))
	}

	return c.Stat(ctx, id)
}

// Delete removes a stored file
func (c *S3Store) Delete(ctx context.Context, id string) error {
	key, err := c.resolveKey(ctx, id)
	if err != nil {
		return err
	}

	_, err = c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return domain.ErrStore.WithCause(fmt.Errorf("failed to delete object: %w", err))
	}

	return nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (c *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return domain.ErrStore.WithCause(fmt.Errorf("failed to create bucket: %w", err))
	}

	return nil
}

func (c *S3Store) wrapErr(msg string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return domain.ErrFileNotFound.WithCause(err)
	}
	return domain.ErrStore.WithCause(fmt.Errorf("%s: %w", msg, err))
}
