package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/catalogd/catalogd/internal/catalogerr"
)

// gcsObjectAPI adapts *storage.Client to the ObjectAPI interface, using
// the object's generation as the precondition token.
type gcsObjectAPI struct {
	client *storage.Client
	bucket string
}

func newGCSObjectStore(ctx context.Context, rawURI string) (*ObjectStore, error) {
	bucket, key, err := parseBucketURI(rawURI, "gs://")
	if err != nil {
		return nil, catalogerr.NewInvalidArgument(err.Error())
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, catalogerr.NewStorageUnavailable(fmt.Errorf("create gcs client: %w", err))
	}
	return &ObjectStore{
		API: &gcsObjectAPI{client: client, bucket: bucket},
		Key: key,
	}, nil
}

func (a *gcsObjectAPI) object(key string) *storage.ObjectHandle {
	return a.client.Bucket(a.bucket).Object(key)
}

func (a *gcsObjectAPI) Get(ctx context.Context, key string) ([]byte, string, bool, error) {
	attrs, err := a.object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}

	r, err := a.object(key).NewReader(ctx)
	if err != nil {
		return nil, "", false, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", false, err
	}
	return data, strconv.FormatInt(attrs.Generation, 10), true, nil
}

func (a *gcsObjectAPI) Stat(ctx context.Context, key string) (bool, error) {
	_, err := a.object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *gcsObjectAPI) PutIfMatch(ctx context.Context, key string, data []byte, expectedToken string) (bool, error) {
	obj := a.object(key)
	if expectedToken == "" {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	} else {
		generation, err := strconv.ParseInt(expectedToken, 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid generation token %q: %w", expectedToken, err)
		}
		obj = obj.If(storage.Conditions{GenerationMatch: generation})
	}

	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return false, err
	}
	if err := w.Close(); err != nil {
		if isGCSPreconditionFailed(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isGCSPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 412 || apiErr.Code == 409
	}
	return false
}
