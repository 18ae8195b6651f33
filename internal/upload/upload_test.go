package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyCheck(t *testing.T) {
	p := DefaultPolicy()

	assert.NoError(t, p.Check(Request{FileName: "a.pdf", FileType: "application/pdf", FileSize: 10}))
	assert.NoError(t, p.Check(Request{FileName: "a.txt", FileType: "text/plain; charset=utf-8", FileSize: 10}))
	assert.ErrorIs(t, p.Check(Request{FileName: "a.pdf", FileSize: 10}), ErrMissingFields)
	assert.ErrorIs(t, p.Check(Request{FileName: "a.exe", FileType: "application/x-msdownload", FileSize: 10}), ErrTypeNotAllowed)
	assert.ErrorIs(t, p.Check(Request{FileName: "a.pdf", FileType: "application/pdf", FileSize: DefaultMaxFileSize + 1}), ErrFileTooLarge)
	assert.NoError(t, p.Check(Request{FileName: "a.pdf", FileType: "application/pdf", FileSize: DefaultMaxFileSize}))
}

func TestObjectKeyLayout(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	gpt := ObjectKey(Request{FileName: "ficha técnica.pdf", UserEmail: "ana+x@iespecialidades.com", GPTID: "g-1"}, now)
	assert.Regexp(t, regexp.MustCompile(`^users/ana_x@iespecialidades\.com/gpts/g-1/1700000000000_[0-9a-f]{12}_ficha_t_cnica\.pdf$`), gpt)

	files := ObjectKey(Request{FileName: "a.txt", UserEmail: "ana@iespecialidades.com"}, now)
	assert.True(t, strings.HasPrefix(files, "users/ana@iespecialidades.com/files/1700000000000_"))

	general := ObjectKey(Request{FileName: "a.txt"}, now)
	assert.True(t, strings.HasPrefix(general, "general/1700000000000_"))
}

func TestClientPresign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.FileType == "application/zip" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"File type application/zip not allowed"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(Ticket{UploadURL: "https://up/x", AccessURL: "https://get/x", FileKey: "general/x", Bucket: "b"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	ticket, err := c.Presign(context.Background(), Request{FileName: "a.pdf", FileType: "application/pdf", FileSize: 1})
	require.NoError(t, err)
	assert.Equal(t, "general/x", ticket.FileKey)

	_, err = c.Presign(context.Background(), Request{FileName: "a.zip", FileType: "application/zip", FileSize: 1})
	assert.ErrorIs(t, err, ErrPresignRejected)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestServiceUploadPutsBytesWithContentType(t *testing.T) {
	var gotType, gotBody string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/presign", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Ticket{UploadURL: srv.URL + "/object", FileKey: "users/a/files/k"})
	})
	mux.HandleFunc("/object", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
	})

	svc := NewService(DefaultPolicy(), NewClient(srv.URL+"/presign", srv.Client()), srv.Client())
	ticket, err := svc.Upload(context.Background(), Request{FileName: "n.txt", FileType: "text/plain; charset=utf-8"}, []byte("pH 7"))
	require.NoError(t, err)

	assert.Equal(t, "users/a/files/k", ticket.FileKey)
	assert.Equal(t, "text/plain", gotType)
	assert.Equal(t, "pH 7", gotBody)
}

func TestServiceRejectsBeforePresigning(t *testing.T) {
	svc := NewService(NewPolicy(nil, 3), NewMockPresigner(), nil)

	_, err := svc.Upload(context.Background(), Request{FileName: "n.txt", FileType: "text/plain"}, []byte("toolong"))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestMockPresignerSkipsUpload(t *testing.T) {
	svc := NewService(DefaultPolicy(), NewMockPresigner(), nil)

	ticket, err := svc.Upload(context.Background(), Request{FileName: "a b.txt", FileType: "text/plain"}, []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, ticket.UploadURL)
	assert.Regexp(t, `^mock/\d+_a_b\.txt$`, ticket.FileKey)
}
