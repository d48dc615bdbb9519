package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/kjk/inventory/atomicfile"
	"github.com/kjk/inventory/u"
	"github.com/melbahja/goph"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/sftp"
)

// Target is a place where snapshots are backed up
type Target interface {
	Name() string
	// Upload copies a local snapshot and returns its remote location
	Upload(ctx context.Context, localPath string) (string, error)
}

// Backup uploads localPath to all targets. It tries every target even if
// some fail and returns the locations of successful uploads.
func Backup(ctx context.Context, localPath string, targets []Target, logf func(string, ...any)) ([]string, error) {
	var res []string
	var errs []error
	for _, t := range targets {
		timeStart := time.Now()
		loc, err := t.Upload(ctx, localPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
			continue
		}
		if logf != nil {
			logf("uploaded '%s' (%s) to '%s' in %s\n", localPath, u.FormatSize(u.FileSize(localPath)), loc, time.Since(timeStart))
		}
		res = append(res, loc)
	}
	return res, errors.Join(errs...)
}

// DirTarget copies snapshots to a local directory e.g. a mounted disk
type DirTarget struct {
	Dir string
}

func (t *DirTarget) Name() string {
	return "dir"
}

func (t *DirTarget) Upload(ctx context.Context, localPath string) (string, error) {
	if err := os.MkdirAll(t.Dir, 0755); err != nil {
		return "", err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	dst := filepath.Join(t.Dir, filepath.Base(localPath))
	if _, err = atomicfile.WriteFrom(dst, f); err != nil {
		return "", err
	}
	return dst, nil
}

type MinioConfig struct {
	Endpoint string
	Access   string
	Secret   string
	Bucket   string
	Region   string
	// remote "directory" for snapshots
	Prefix string
}

// MinioTarget uploads snapshots to S3-compatible storage
type MinioTarget struct {
	client *minio.Client
	config MinioConfig
}

func NewMinioTarget(ctx context.Context, config *MinioConfig) (*MinioTarget, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	c := config
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return nil, errors.New("must provide endpoint, access, secret and bucket")
	}
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: true,
	})
	if err != nil {
		return nil, err
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}
	return &MinioTarget{
		client: mc,
		config: *c,
	}, nil
}

func (t *MinioTarget) Name() string {
	return "minio"
}

func (t *MinioTarget) Upload(ctx context.Context, localPath string) (string, error) {
	remotePath := path.Join(t.config.Prefix, filepath.Base(localPath))
	opts := minio.PutObjectOptions{
		ContentType: u.MimeTypeFromFileName(localPath),
	}
	info, err := t.client.FPutObject(ctx, t.config.Bucket, remotePath, localPath, opts)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", t.config.Bucket, info.Key), nil
}

type SFTPConfig struct {
	User string
	// host or host:port
	Host string
	// path of the private key, ~ is expanded
	KeyPath string
	// remote directory for snapshots
	Dir string
}

// SFTPTarget uploads snapshots over ssh
type SFTPTarget struct {
	client *goph.Client
	sftp   *sftp.Client
	config SFTPConfig
}

func NewSFTPTarget(config *SFTPConfig) (*SFTPTarget, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	c := config
	if c.User == "" || c.Host == "" || c.KeyPath == "" || c.Dir == "" {
		return nil, errors.New("must provide user, host, key_path and dir")
	}
	auth, err := goph.Key(u.ExpandTildeInPath(c.KeyPath), "")
	if err != nil {
		return nil, fmt.Errorf("goph.Key() failed with '%w'", err)
	}
	client, err := goph.New(c.User, c.Host, auth)
	if err != nil {
		return nil, fmt.Errorf("goph.New() failed with '%w'", err)
	}
	sc, err := client.NewSftp()
	if err != nil {
		client.Close()
		return nil, err
	}
	return &SFTPTarget{
		client: client,
		sftp:   sc,
		config: *c,
	}, nil
}

func (t *SFTPTarget) Name() string {
	return "sftp"
}

func (t *SFTPTarget) Upload(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := t.sftp.MkdirAll(t.config.Dir); err != nil {
		return "", fmt.Errorf("sftp.MkdirAll('%s') failed with '%w'", t.config.Dir, err)
	}
	remotePath := path.Join(t.config.Dir, filepath.Base(localPath))
	if _, err := t.sftp.Stat(remotePath); err == nil {
		return "", fmt.Errorf("file '%s' already exists on the server", remotePath)
	}
	if err := t.client.Upload(localPath, remotePath); err != nil {
		return "", err
	}
	return t.config.Host + ":" + remotePath, nil
}

func (t *SFTPTarget) Close() error {
	err := t.sftp.Close()
	err2 := t.client.Close()
	return errors.Join(err, err2)
}

// HTTPTarget uploads snapshots with PUT <URL>/<file name>
type HTTPTarget struct {
	URL string
	// sent as X-Api-Key header if not empty
	APIKey  string
	Timeout time.Duration
}

func (t *HTTPTarget) Name() string {
	return "http"
}

func (t *HTTPTarget) Upload(ctx context.Context, localPath string) (string, error) {
	d, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	uri := strings.TrimSuffix(t.URL, "/") + "/" + filepath.Base(localPath)
	r := requests.
		URL(uri).
		Method("PUT").
		BodyBytes(d).
		ContentType(u.MimeTypeFromFileName(localPath))
	if t.APIKey != "" {
		r = r.Header("X-Api-Key", t.APIKey)
	}
	timeout := t.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err = r.Fetch(ctx); err != nil {
		return "", err
	}
	return uri, nil
}
