package handlers

import (
	"fmt"
	"net/http"
	"strings"
)

var supportedFormats = map[string]struct{}{
	"image/jpeg":    {},
	"image/png":     {},
	"image/svg+xml": {},
}

type fileInfo struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mimetype"`
	Size     int64  `json:"size"`
	SizeInMB string `json:"sizeInMB"`
}

type fileValidations struct {
	IsImage         bool `json:"isImage"`
	SizeOK          bool `json:"sizeOK"`
	FormatSupported bool `json:"formatSupported"`
}

// ValidateFile checks an upload without sending it to a provider.
func (a *App) ValidateFile(w http.ResponseWriter, r *http.Request) {
	defer cleanupMultipart(r)

	up, msg, ok := a.readUpload(w, r, msgNoFile)
	if !ok {
		a.error(w, http.StatusBadRequest, msg, nil)
		return
	}

	info := fileInfo{
		Filename: up.Filename,
		MIMEType: up.MIMEType,
		Size:     up.Size,
		SizeInMB: fmt.Sprintf("%.2f", float64(up.Size)/(1<<20)),
	}
	_, supported := supportedFormats[up.MIMEType]
	checks := fileValidations{
		IsImage:         strings.HasPrefix(up.MIMEType, "image/"),
		SizeOK:          up.Size <= a.MaxUploadBytes,
		FormatSupported: supported,
	}
	extra := map[string]any{"fileInfo": info, "validations": checks}

	switch {
	case !checks.IsImage:
		a.error(w, http.StatusBadRequest, text(r, msgMustBeImage), extra)
	case !checks.SizeOK:
		a.error(w, http.StatusBadRequest, text(r, msgTooLarge, a.maxUploadMB()), extra)
	case !checks.FormatSupported:
		a.error(w, http.StatusBadRequest, text(r, msgUnsupportedFormat), extra)
	default:
		a.json(w, http.StatusOK, map[string]any{
			"success":     true,
			"message":     text(r, msgFileValid),
			"fileInfo":    info,
			"validations": checks,
		})
	}
}
