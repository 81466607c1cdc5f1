package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileNameTooLong     = errors.New("file name is too long")
	ErrFileTypeUnsupported = errors.New("unsupported file type")
	ErrNoFile              = errors.New("no file provided")
)

const maxFileNameSize = 255

// ValidatedFile is an upload that passed every check, read fully into memory
type ValidatedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileValidator checks the upload against the size cap and the allowed MIME
// types. The type is sniffed from the content, the client's header is ignored.
// The returned int is the HTTP status to answer with on failure
func FileValidator(fh *multipart.FileHeader, maxSize int64, allowed []string) (int, *ValidatedFile, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, ErrNoFile
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, nil, ErrFileNameTooLong
	}

	// Fast reject, the header can lie so the real size is checked below too
	if fh.Size > maxSize {
		return http.StatusRequestEntityTooLarge, nil, ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	if int64(len(data)) > maxSize {
		return http.StatusRequestEntityTooLarge, nil, ErrFileTooLarge
	}

	if len(data) == 0 {
		return http.StatusBadRequest, nil, ErrNoFile
	}

	mime := mimetype.Detect(data)
	if !isAllowed(mime, allowed) {
		return http.StatusUnsupportedMediaType, nil, ErrFileTypeUnsupported
	}

	return 0, &ValidatedFile{
		Name:        fh.Filename,
		ContentType: mime.String(),
		Data:        data,
	}, nil
}

func isAllowed(mime *mimetype.MIME, allowed []string) bool {
	for m := mime; m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return true
			}
		}
	}

	return false
}
