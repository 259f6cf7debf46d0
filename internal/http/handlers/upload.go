package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

const (
	uploadField = "image"
	// multipartSlack leaves room for form fields and part headers on top of
	// the file limit so an oversized file can still be measured.
	multipartSlack  = 1 << 20
	multipartMemory = 32 << 20
)

type upload struct {
	Filename string
	MIMEType string
	Size     int64
	Data     []byte
}

// readUpload parses the multipart body and returns the image part. On failure
// it returns the message to report with a 400.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request, missing messageKey) (*upload, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, text(r, msgTooLarge, a.maxUploadMB()), false
		case errors.Is(err, http.ErrNotMultipart):
			return nil, text(r, missing), false
		default:
			return nil, text(r, msgMalformedUpload), false
		}
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, text(r, missing), false
		}
		return nil, text(r, msgMalformedUpload), false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, text(r, msgMalformedUpload), false
	}
	return &upload{
		Filename: header.Filename,
		MIMEType: strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type"))),
		Size:     int64(len(data)),
		Data:     data,
	}, "", true
}

func (a *App) maxUploadMB() int64 {
	return a.MaxUploadBytes >> 20
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
