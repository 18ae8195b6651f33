package upload

import (
	"context"
	"fmt"
	"time"
)

// MockPresigner names the object for demo deployments; nothing is stored and
// the ticket has no upload URL.
type MockPresigner struct {
	now func() time.Time
}

func NewMockPresigner() *MockPresigner {
	return &MockPresigner{now: time.Now}
}

func (m *MockPresigner) Presign(_ context.Context, req Request) (*Ticket, error) {
	now := m.now()
	return &Ticket{
		FileKey: fmt.Sprintf("mock/%d_%s", now.UnixMilli(), unsafeName.ReplaceAllString(req.FileName, "_")),
		Bucket:  "mock",
		Expires: now.Add(15 * time.Minute),
	}, nil
}
