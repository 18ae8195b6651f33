package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Service validates requests against the Policy before presigning, and can
// complete an upload by PUTting the bytes to the presigned URL.
type Service struct {
	policy    Policy
	presigner Presigner
	http      Doer
}

func NewService(policy Policy, presigner Presigner, doer Doer) *Service {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Service{policy: policy, presigner: presigner, http: doer}
}

func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) Presign(ctx context.Context, req Request) (*Ticket, error) {
	req.FileType = MediaType(req.FileType)
	if err := s.policy.Check(req); err != nil {
		return nil, err
	}
	return s.presigner.Presign(ctx, req)
}

// Upload presigns and then PUTs body with the same content type. A ticket
// without an upload URL (demo mode) is returned as is.
func (s *Service) Upload(ctx context.Context, req Request, body []byte) (*Ticket, error) {
	req.FileSize = int64(len(body))
	ticket, err := s.Presign(ctx, req)
	if err != nil {
		return nil, err
	}
	if ticket.UploadURL == "" {
		return ticket, nil
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, ticket.UploadURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upload request failed: %w", err)
	}
	put.Header.Set("Content-Type", MediaType(req.FileType))
	put.ContentLength = int64(len(body))

	resp, err := s.http.Do(put)
	if err != nil {
		return nil, fmt.Errorf("upload file failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("upload file failed: HTTP %d: %s", resp.StatusCode, string(raw))
	}
	return ticket, nil
}
