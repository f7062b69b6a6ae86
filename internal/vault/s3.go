package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fdp-go/internal/fdp"
)

// S3API is the subset of the S3 client used by S3Vault.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Vault stores content, pins and feed updates as objects under a key
// prefix in one bucket, using the same layout as FileSystemVault.
type S3Vault struct {
	client   S3API
	uploader *manager.Uploader // nil when client is not a full *s3.Client
	bucket   string
	prefix   string
}

// NewS3Vault creates a vault over a real S3 client. Content uploads go
// through the multipart upload manager.
func NewS3Vault(client *s3.Client, bucket, prefix string) *S3Vault {
	v := NewS3VaultWithAPI(client, bucket, prefix)
	v.uploader = manager.NewUploader(client)
	return v
}

// NewS3VaultWithAPI creates a vault over any S3API implementation.
func NewS3VaultWithAPI(client S3API, bucket, prefix string) *S3Vault {
	return &S3Vault{client: client, bucket: bucket, prefix: prefix}
}

func (v *S3Vault) key(parts ...string) string {
	return v.prefix + path.Join(parts...)
}

func (v *S3Vault) put(ctx context.Context, key string, r io.Reader, size int64) error {
	// Count what the SDK reads so short readers are caught the same way
	// the local vaults catch them.
	cr := &countingReader{r: r}
	var err error
	if v.uploader != nil {
		_, err = v.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(v.bucket),
			Key:    aws.String(key),
			Body:   cr,
		})
	} else {
		_, err = v.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(v.bucket),
			Key:           aws.String(key),
			Body:          cr,
			ContentLength: aws.Int64(size),
		})
	}
	if err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", v.bucket, key, err)
	}
	if cr.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, cr.n)
	}
	return nil
}

func (v *S3Vault) get(ctx context.Context, key string, w io.Writer) error {
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("s3://%s/%s: %w", v.bucket, key, fdp.ErrNotFound)
		}
		return fmt.Errorf("getting s3://%s/%s: %w", v.bucket, key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading s3://%s/%s: %w", v.bucket, key, err)
	}
	return nil
}

func (v *S3Vault) head(ctx context.Context, key string) (bool, error) {
	_, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking s3://%s/%s: %w", v.bucket, key, err)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// PutContent stores content identified by its address.
func (v *S3Vault) PutContent(ctx context.Context, address string, r io.Reader, size int64) error {
	return v.put(ctx, v.key("content", address), r, size)
}

// GetContent retrieves content by address.
func (v *S3Vault) GetContent(ctx context.Context, address string, w io.Writer) error {
	return v.get(ctx, v.key("content", address), w)
}

// HasContent reports whether address is stored.
func (v *S3Vault) HasContent(ctx context.Context, address string) (bool, error) {
	return v.head(ctx, v.key("content", address))
}

// Pin writes an empty marker object for stored content.
func (v *S3Vault) Pin(ctx context.Context, address string) error {
	ok, err := v.HasContent(ctx, address)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pinning %s: %w", address, fdp.ErrNotFound)
	}
	return v.put(ctx, v.key("pins", address), strings.NewReader(""), 0)
}

// IsPinned reports whether a pin marker exists for address.
func (v *S3Vault) IsPinned(ctx context.Context, address string) (bool, error) {
	return v.head(ctx, v.key("pins", address))
}

// PutFeedUpdate stores one version of a feed slot.
func (v *S3Vault) PutFeedUpdate(ctx context.Context, slot string, version int64, r io.Reader, size int64) error {
	if version < 1 {
		return fmt.Errorf("invalid feed version %d", version)
	}
	return v.put(ctx, v.key("feeds", slot, versionName(version)), r, size)
}

// GetFeedUpdate retrieves one version of a feed slot.
func (v *S3Vault) GetFeedUpdate(ctx context.Context, slot string, version int64, w io.Writer) error {
	return v.get(ctx, v.key("feeds", slot, versionName(version)), w)
}

// LatestFeedVersion lists the slot prefix and returns the highest version.
func (v *S3Vault) LatestFeedVersion(ctx context.Context, slot string) (int64, error) {
	prefix := v.key("feeds", slot) + "/"
	p := s3.NewListObjectsV2Paginator(v.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(v.bucket),
		Prefix: aws.String(prefix),
	})

	var latest int64
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("listing feed %s: %w", slot, err)
		}
		for _, obj := range page.Contents {
			version, err := strconv.ParseInt(strings.TrimPrefix(aws.ToString(obj.Key), prefix), 10, 64)
			if err != nil {
				continue
			}
			latest = max(latest, version)
		}
	}
	return latest, nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if v.bucket == "" {
		return fmt.Errorf("s3 vault requires a bucket")
	}
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ fdp.Vault = (*S3Vault)(nil)
