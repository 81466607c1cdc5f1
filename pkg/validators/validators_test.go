package validators

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
	allowed   = []string{"image/png", "image/jpeg", "application/pdf"}
)

func fileHeader(t *testing.T, name string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["file"][0]
}

func TestFileValidator(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		maxSize  int64
		status   int
		err      error
	}{
		{"png", "slip.png", pngHeader, 1024, 0, nil},
		{"pdf", "slip.pdf", pdfHeader, 1024, 0, nil},
		{"too large", "slip.pdf", pdfHeader, 8, http.StatusRequestEntityTooLarge, ErrFileTooLarge},
		{"wrong type", "slip.pdf", []byte("just some text pretending"), 1024, http.StatusUnsupportedMediaType, ErrFileTypeUnsupported},
		{"long name", strings.Repeat("a", 300) + ".pdf", pdfHeader, 1024, http.StatusBadRequest, ErrFileNameTooLong},
		{"empty", "slip.pdf", nil, 1024, http.StatusBadRequest, ErrNoFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, f, err := FileValidator(fileHeader(t, tt.filename, tt.data), tt.maxSize, allowed)

			assert.Equal(t, tt.status, status)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, f)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.filename, f.Name)
			assert.Equal(t, tt.data, f.Data)
		})
	}
}

func TestFileValidator_SniffsContentType(t *testing.T) {
	_, f, err := FileValidator(fileHeader(t, "renamed.pdf", pngHeader), 1024, allowed)
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.ContentType)
}

func TestFileValidator_NoFile(t *testing.T) {
	status, _, err := FileValidator(nil, 1024, allowed)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestEmailValidator(t *testing.T) {
	assert.NoError(t, EmailValidator("alice@example.com"))
	assert.ErrorIs(t, EmailValidator(""), ErrEmailEmpty)
	assert.ErrorIs(t, EmailValidator("alice"), ErrEmailInvalid)
	assert.ErrorIs(t, EmailValidator("Alice <alice@example.com>"), ErrEmailInvalid)
}

func TestPasswordValidator(t *testing.T) {
	assert.NoError(t, PasswordValidator("x"))
	assert.ErrorIs(t, PasswordValidator(""), ErrPasswordEmpty)
	assert.ErrorIs(t, PasswordValidator(strings.Repeat("x", 256)), ErrPasswordTooLong)
}

func TestBindingMessage(t *testing.T) {
	type body struct {
		FirstName string `binding:"required"`
		Email     string `binding:"required"`
	}

	v := validator.New()
	v.SetTagName("binding")

	err := v.Struct(body{Email: "a@x.com"})
	require.Error(t, err)
	assert.Equal(t, "firstName is required", BindingMessage(err))

	assert.Equal(t, "Invalid request body", BindingMessage(assert.AnError))
}
