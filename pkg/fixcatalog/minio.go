package fixcatalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/catalogd/catalogd/internal/backend"
	"github.com/catalogd/catalogd/internal/catalog"
	"github.com/catalogd/catalogd/internal/retry"
)

type minioConfig struct {
	image string
	user  string
	pass  string
}

// MinIOOption configures BootMinIOOnce.
type MinIOOption func(*minioConfig)

func WithMinIOImage(image string) MinIOOption { return func(c *minioConfig) { c.image = image } }

var (
	minioOnce     sync.Once
	minioBooted   bool
	minioBootErr  error
	minioEndpoint string
	minioAccess   string
	minioSecret   string
)

// BootMinIOOnce starts a shared MinIO container for the test binary's
// lifetime. Call it from TestMain before any test requests an S3-backed
// sandbox.
func BootMinIOOnce(t *testing.T, opts ...MinIOOption) {
	t.Helper()
	minioOnce.Do(func() {
		minioBooted = true
		cfg := &minioConfig{
			image: "docker.io/minio/minio:RELEASE.2024-01-16T16-07-38Z",
			user:  "minioadmin",
			pass:  "minioadmin",
		}
		for _, o := range opts {
			o(cfg)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		req := testcontainers.ContainerRequest{
			Image:        cfg.image,
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     cfg.user,
				"MINIO_ROOT_PASSWORD": cfg.pass,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
		}
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			minioBootErr = err
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			minioBootErr = err
			return
		}
		port, err := container.MappedPort(ctx, "9000/tcp")
		if err != nil {
			minioBootErr = err
			return
		}

		minioEndpoint = fmt.Sprintf("http://%s:%s", host, port.Port())
		minioAccess = cfg.user
		minioSecret = cfg.pass
	})
	if minioBootErr != nil {
		t.Fatalf("fixcatalog: boot minio: %v", minioBootErr)
	}
}

// MinIOBooted reports whether BootMinIOOnce has run, so tests that need
// the container can skip instead of failing when it was never requested.
func MinIOBooted() bool { return minioBooted }

// MinIOSandbox is a catalog sandbox backed by a real s3:// backend
// pointed at the shared MinIO container, wired through backend.Open
// exactly as the production CATALOG_PATH=s3://... path is, rather than
// through FakeObjectAPI. Use it to exercise s3store.go's actual
// credential/endpoint/precondition wiring end to end.
type MinIOSandbox struct {
	Store  *catalog.Store
	Bucket string
	Key    string
}

// NewMinIOObjectSandbox ensures bucket exists in the shared MinIO
// container and wires a catalog.Store over a real s3:// backend against
// it. It does not boot the container: it fails the test unless
// BootMinIOOnce has already run (call it from TestMain).
func NewMinIOObjectSandbox(t *testing.T, bucket, key string) *MinIOSandbox {
	t.Helper()
	if !minioBooted {
		t.Fatalf("fixcatalog: minio not booted. Call fixcatalog.BootMinIOOnce(...) in TestMain first.")
	}

	t.Setenv("CATALOG_S3_ACCESS_KEY", minioAccess)
	t.Setenv("CATALOG_S3_SECRET_KEY", minioSecret)
	t.Setenv("CATALOG_S3_ENDPOINT", minioEndpoint)

	ctx, cancel := Context()
	defer cancel()

	if err := ensureMinIOBucket(ctx, bucket); err != nil {
		t.Fatalf("fixcatalog: create minio bucket %q: %v", bucket, err)
	}

	b, err := backend.Open(ctx, fmt.Sprintf("s3://%s/%s", bucket, key))
	if err != nil {
		t.Fatalf("fixcatalog: open s3 backend: %v", err)
	}

	policy := retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Seed: 1}
	return &MinIOSandbox{Store: catalog.New(b, policy, nil), Bucket: bucket, Key: key}
}

// ensureMinIOBucket creates bucket against the booted MinIO container if
// it does not already exist, using the same static-credential/
// path-style-endpoint shape newS3ObjectStore builds from
// CATALOG_S3_ACCESS_KEY/CATALOG_S3_SECRET_KEY/CATALOG_S3_ENDPOINT.
func ensureMinIOBucket(ctx context.Context, bucket string) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(minioAccess, minioSecret, "")),
		awsconfig.WithRegion("us-east-1"),
	)
	if err != nil {
		return err
	}
	endpoint := minioEndpoint
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = &endpoint
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &bucket})
	if err == nil {
		return nil
	}
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return nil
	}
	var exists *types.BucketAlreadyExists
	if errors.As(err, &exists) {
		return nil
	}
	return err
}

// FakeObjectAPI is an in-memory backend.ObjectAPI used by commit-loop
// conflict tests that don't need a real object store, only faithful
// compare-and-swap semantics.
type FakeObjectAPI struct {
	mu      sync.Mutex
	objects map[string][]byte
	tokens  map[string]int
}

// NewFakeObjectAPI returns an empty in-memory ObjectAPI.
func NewFakeObjectAPI() *FakeObjectAPI {
	return &FakeObjectAPI{objects: map[string][]byte{}, tokens: map[string]int{}}
}

func (f *FakeObjectAPI) Get(ctx context.Context, key string) ([]byte, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, "", false, nil
	}
	return append([]byte(nil), data...), fmt.Sprintf("%d", f.tokens[key]), true, nil
}

func (f *FakeObjectAPI) Stat(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *FakeObjectAPI) PutIfMatch(ctx context.Context, key string, data []byte, expectedToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := fmt.Sprintf("%d", f.tokens[key])
	_, exists := f.objects[key]
	if expectedToken == "" && exists {
		return false, nil
	}
	if expectedToken != "" && expectedToken != current {
		return false, nil
	}
	f.objects[key] = append([]byte(nil), data...)
	f.tokens[key]++
	return true, nil
}

var _ backend.ObjectAPI = (*FakeObjectAPI)(nil)
