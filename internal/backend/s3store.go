package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/catalogd/catalogd/internal/catalogerr"
)

// s3ObjectAPI adapts *s3.Client to the ObjectAPI interface, using ETag as
// the precondition token.
type s3ObjectAPI struct {
	client *s3.Client
	bucket string
}

func newS3ObjectStore(ctx context.Context, rawURI string) (*ObjectStore, error) {
	bucket, key, err := parseBucketURI(rawURI, "s3://")
	if err != nil {
		return nil, catalogerr.NewInvalidArgument(err.Error())
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if key, secret := os.Getenv("CATALOG_S3_ACCESS_KEY"), os.Getenv("CATALOG_S3_SECRET_KEY"); key != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, os.Getenv("CATALOG_S3_SESSION_TOKEN")),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, catalogerr.NewStorageUnavailable(fmt.Errorf("load aws config: %w", err))
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := os.Getenv("CATALOG_S3_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true
		}
	})
	return &ObjectStore{
		API: &s3ObjectAPI{client: client, bucket: bucket},
		Key: key,
	}, nil
}

func (a *s3ObjectAPI) Get(ctx context.Context, key string) ([]byte, string, bool, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &a.bucket, Key: &key})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", false, nil
		}
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, "", false, nil
		}
		return nil, "", false, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", false, err
	}
	return data, etagOf(out.ETag), true, nil
}

func (a *s3ObjectAPI) Stat(ctx context.Context, key string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &a.bucket, Key: &key})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *s3ObjectAPI) PutIfMatch(ctx context.Context, key string, data []byte, expectedToken string) (bool, error) {
	input := &s3.PutObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	}
	if expectedToken == "" {
		none := "*"
		input.IfNoneMatch = &none
	} else {
		input.IfMatch = &expectedToken
	}

	_, err := a.client.PutObject(ctx, input)
	if err == nil {
		return true, nil
	}
	if isPreconditionFailed(err) {
		return false, nil
	}
	return false, err
}

func isPreconditionFailed(err error) bool {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == 412 || code == 409
	}
	return false
}

func etagOf(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, `"`)
}

func parseBucketURI(rawURI, prefix string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(rawURI, prefix)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid object uri %q: expected %sBUCKET/KEY", rawURI, prefix)
	}
	return parts[0], parts[1], nil
}
