package upload

import (
	"errors"
	"fmt"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxFileSize int64 = 25 << 20

var DefaultAllowedTypes = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/gif",
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
	"text/plain",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var (
	ErrMissingFields  = errors.New("missing required fields: fileName, fileType, fileSize")
	ErrTypeNotAllowed = errors.New("file type not allowed")
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
)

// Request mirrors the presign endpoint body.
type Request struct {
	FileName  string `json:"fileName"`
	FileType  string `json:"fileType"`
	FileSize  int64  `json:"fileSize"`
	UserEmail string `json:"userEmail,omitempty"`
	GPTID     string `json:"gptId,omitempty"`
}

// Ticket is what a presigner hands back; the caller PUTs to UploadURL.
type Ticket struct {
	UploadURL string    `json:"uploadUrl"`
	AccessURL string    `json:"accessUrl"`
	FileKey   string    `json:"fileKey"`
	Bucket    string    `json:"bucket"`
	Expires   time.Time `json:"expires"`
}

type Policy struct {
	AllowedTypes []string
	MaxFileSize  int64
}

func DefaultPolicy() Policy {
	return Policy{AllowedTypes: DefaultAllowedTypes, MaxFileSize: DefaultMaxFileSize}
}

func NewPolicy(allowed []string, maxSize int64) Policy {
	p := DefaultPolicy()
	if len(allowed) > 0 {
		p.AllowedTypes = allowed
	}
	if maxSize > 0 {
		p.MaxFileSize = maxSize
	}
	return p
}

func (p Policy) Check(req Request) error {
	if strings.TrimSpace(req.FileName) == "" || strings.TrimSpace(req.FileType) == "" || req.FileSize <= 0 {
		return ErrMissingFields
	}
	fileType := MediaType(req.FileType)
	if !p.Allows(fileType) {
		return fmt.Errorf("%w: %s", ErrTypeNotAllowed, fileType)
	}
	if req.FileSize > p.MaxFileSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, req.FileSize, p.MaxFileSize)
	}
	return nil
}

func (p Policy) Allows(fileType string) bool {
	for _, allowed := range p.AllowedTypes {
		if strings.EqualFold(allowed, fileType) {
			return true
		}
	}
	return false
}

// MediaType drops parameters such as "; charset=utf-8".
func MediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if mt, _, err := mime.ParseMediaType(raw); err == nil {
		return mt
	}
	return strings.ToLower(raw)
}

var (
	unsafeName  = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	unsafeEmail = regexp.MustCompile(`[^a-zA-Z0-9@.-]`)
)

// ObjectKey lays files out per user and assistant:
// users/<email>/gpts/<gptId>/..., users/<email>/files/..., general/...
func ObjectKey(req Request, now time.Time) string {
	name := fmt.Sprintf("%d_%s_%s", now.UnixMilli(), randomID(), unsafeName.ReplaceAllString(req.FileName, "_"))
	email := strings.TrimSpace(req.UserEmail)
	switch {
	case email != "" && strings.TrimSpace(req.GPTID) != "":
		return fmt.Sprintf("users/%s/gpts/%s/%s", unsafeEmail.ReplaceAllString(email, "_"), unsafeName.ReplaceAllString(req.GPTID, "_"), name)
	case email != "":
		return fmt.Sprintf("users/%s/files/%s", unsafeEmail.ReplaceAllString(email, "_"), name)
	default:
		return "general/" + name
	}
}

func randomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
