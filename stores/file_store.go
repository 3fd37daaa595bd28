package stores

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/segmentio/ksuid"
	"wuyrush.io/valentine/common/logging"
	cst "wuyrush.io/valentine/constants"
	pe "wuyrush.io/valentine/errors"
)

// FileStore stores uploaded media of experiences. Experiences only ever hold the ref of a file.
type FileStore interface {
	// Ref returns a fresh, unique reference for a file uploaded under filename
	Ref(filename string) string
	// Save persists data from r under ref. It returns an ErrCodeOversized error when data exceeds the
	// store's size limit, in which case nothing is kept
	Save(ref string, r io.Reader) *pe.Err
	Get(ref string) (io.ReadCloser, *pe.Err)
	// Delete deletes the file from store. Delete must be idempotent
	Delete(ref string) *pe.Err
	Close() *pe.Err
}

// accepted video extensions and their MIME types, which system MIME tables often lack
var videoExts = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
}

// AllowedVideo reports whether filename carries one of the accepted video extensions.
func AllowedVideo(filename string) bool {
	_, ok := videoExts[videoExt(filename)]
	return ok
}

func videoExt(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// ContentType guesses the MIME type of the file behind ref from its extension.
func ContentType(ref string) string {
	if t, ok := videoExts[videoExt(ref)]; ok {
		return t
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(ref))); t != "" {
		return t
	}
	return "application/octet-stream"
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces filename to a flat, ASCII-only name safe to use on any file system.
func SanitizeFilename(filename string) string {
	// browsers on Windows may send full paths
	filename = filename[strings.LastIndexAny(filename, `/\`)+1:]
	filename = unsafeFilenameChars.ReplaceAllString(strings.Join(strings.Fields(filename), "_"), "")
	filename = strings.TrimLeft(filename, "._")
	if filename == "" {
		return "upload"
	}
	return filename
}

func newRef(filename string) string {
	return fmt.Sprintf("%s_%s", ksuid.New().String(), SanitizeFilename(filename))
}

// validRef refuses refs which could escape the storage root.
func validRef(ref string) bool {
	return ref != "" && ref != "." && ref != ".." && !strings.ContainsAny(ref, `/\`) && ref == filepath.Base(ref)
}

var errOversized = errors.New(cst.ErrMsgRequestBodyTooLarge)

// capReader fails with errOversized once more than max bytes were read from r.
type capReader struct {
	r   io.Reader
	max int64
	n   int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > c.max {
		return n, errOversized
	}
	return n, err
}

func capped(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return &capReader{r: r, max: max}
}

// LocalFileStore implements FileStore backed by local file system
type LocalFileStore struct {
	Dir string
	// MaxBytes caps the size of a single file; zero means no limit
	MaxBytes int64
}

// NewLocalFileStore creates dir if missing and returns a LocalFileStore rooted at it.
func NewLocalFileStore(dir string, maxBytes int64) (*LocalFileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalFileStore{Dir: dir, MaxBytes: maxBytes}, nil
}

func (fs *LocalFileStore) Ref(filename string) string {
	return newRef(filename)
}

func (fs *LocalFileStore) path(ref string) (string, *pe.Err) {
	if !validRef(ref) {
		return "", pe.NewValidation(fmt.Sprintf("invalid file reference %q", ref))
	}
	return filepath.Join(fs.Dir, ref), nil
}

func (fs *LocalFileStore) Save(ref string, r io.Reader) *pe.Err {
	p, perr := fs.path(ref)
	if perr != nil {
		return perr
	}
	clog := logging.WithFuncName().WithField(cst.LogFieldFilename, ref)
	f, err := os.Create(p)
	if err != nil {
		clog.WithError(err).Error("error allocating file")
		return pe.NewServiceFailure("error allocating file storage space").WithCause(err)
	}
	defer f.Close()
	br := bufio.NewReader(capped(r, fs.MaxBytes))
	if _, err := br.WriteTo(f); err != nil {
		os.Remove(p)
		if errors.Is(err, errOversized) {
			return pe.NewOversized("uploaded file too large").WithCause(err)
		}
		clog.WithError(err).Error("error saving file data")
		return pe.NewServiceFailure("error saving file data").WithCause(err)
	}
	return nil
}

func (fs *LocalFileStore) Get(ref string) (io.ReadCloser, *pe.Err) {
	p, perr := fs.path(ref)
	if perr != nil {
		return nil, pe.NewNotFound("file not found").WithCause(perr)
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pe.NewNotFound("file not found").WithCause(err)
		}
		return nil, pe.NewServiceFailure("error retrieving file").WithCause(err)
	}
	return f, nil
}

func (fs *LocalFileStore) Delete(ref string) *pe.Err {
	p, perr := fs.path(ref)
	if perr != nil {
		return perr
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return pe.NewServiceFailure("error removing file").WithCause(err)
	}
	return nil
}

func (fs *LocalFileStore) Close() *pe.Err {
	return nil
}

// S3Config locates the bucket of an S3FileStore. Endpoint is only needed for S3-compatible services
// like R2 or MinIO.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	MaxBytes        int64
}

// S3FileStore implements FileStore backed by an S3-compatible object store
type S3FileStore struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	maxBytes int64
}

func NewS3FileStore(c S3Config) (*S3FileStore, error) {
	region := c.Region
	if region == "" {
		region = "auto"
	}
	cfg := &aws.Config{Region: aws.String(region)}
	if c.Endpoint != "" {
		cfg.Endpoint = aws.String(c.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if c.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(c.AccessKeyID, c.SecretAccessKey, "")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}
	return &S3FileStore{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   c.Bucket,
		maxBytes: c.MaxBytes,
	}, nil
}

func (fs *S3FileStore) Ref(filename string) string {
	return newRef(filename)
}

func (fs *S3FileStore) Save(ref string, r io.Reader) *pe.Err {
	if !validRef(ref) {
		return pe.NewValidation(fmt.Sprintf("invalid file reference %q", ref))
	}
	clog := logging.WithFuncName().WithField(cst.LogFieldFilename, ref)
	_, err := fs.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(fs.bucket),
		Key:         aws.String(ref),
		Body:        capped(r, fs.maxBytes),
		ContentType: aws.String(ContentType(ref)),
	})
	if err != nil {
		if errors.Is(err, errOversized) || strings.Contains(err.Error(), cst.ErrMsgRequestBodyTooLarge) {
			// the uploader aborts multipart uploads on failure; a single-part upload never lands
			return pe.NewOversized("uploaded file too large").WithCause(err)
		}
		clog.WithError(err).Error("error uploading file to bucket")
		return pe.NewDependencyFailure("error saving file data").WithCause(err)
	}
	return nil
}

func (fs *S3FileStore) Get(ref string) (io.ReadCloser, *pe.Err) {
	if !validRef(ref) {
		return nil, pe.NewNotFound("file not found")
	}
	out, err := fs.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, pe.NewNotFound("file not found").WithCause(err)
		}
		logging.WithFuncName().WithField(cst.LogFieldFilename, ref).WithError(err).Error("error fetching file from bucket")
		return nil, pe.NewDependencyFailure("error retrieving file").WithCause(err)
	}
	return out.Body, nil
}

func (fs *S3FileStore) Delete(ref string) *pe.Err {
	if !validRef(ref) {
		return pe.NewValidation(fmt.Sprintf("invalid file reference %q", ref))
	}
	// S3 reports success on deleting absent keys
	if _, err := fs.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(ref),
	}); err != nil {
		return pe.NewDependencyFailure("error removing file").WithCause(err)
	}
	return nil
}

func (fs *S3FileStore) Close() *pe.Err {
	return nil
}
