package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"colorizer/internal/colorize"
	"colorizer/internal/domain"
)

type processResult struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	MIMEType string `json:"mimeType,omitempty"`
}

type processResponse struct {
	Success          bool          `json:"success"`
	Result           processResult `json:"result"`
	CreditsUsed      int           `json:"creditsUsed"`
	RemainingCredits int           `json:"remainingCredits"`
	Message          string        `json:"message"`
}

// ProcessImage accepts a multipart upload and returns the colorized result.
func (a *App) ProcessImage(w http.ResponseWriter, r *http.Request) {
	defer cleanupMultipart(r)

	up, msg, ok := a.readUpload(w, r, msgNoImage)
	if !ok {
		a.error(w, http.StatusBadRequest, msg, nil)
		return
	}
	if !strings.HasPrefix(up.MIMEType, "image/") {
		a.error(w, http.StatusBadRequest, text(r, msgOnlyImages), nil)
		return
	}
	if up.Size > a.MaxUploadBytes {
		a.error(w, http.StatusBadRequest, text(r, msgTooLarge, a.maxUploadMB()), nil)
		return
	}

	res := a.Processor.Process(r.Context(), colorize.Request{
		UserID:             r.FormValue("userId"),
		Image:              up.Data,
		MIMEType:           up.MIMEType,
		CustomInstructions: r.FormValue("customInstructions"),
	})

	if res.Succeeded() {
		out := processResult{Type: string(res.Kind)}
		if res.Kind == domain.ResultImage {
			out.Data = base64.StdEncoding.EncodeToString(res.Data)
			out.MIMEType = res.MIMEType
		} else {
			out.Data = res.Content
		}
		a.json(w, http.StatusOK, processResponse{
			Success:          true,
			Result:           out,
			CreditsUsed:      res.CreditsUsed,
			RemainingCredits: res.RemainingCredits,
			Message:          text(r, msgProcessed, a.Processor.Provider()),
		})
		return
	}

	extra := map[string]any{
		"errorKind":        string(res.ErrorKind),
		"remainingCredits": res.RemainingCredits,
		"message":          text(r, msgProcessFailed),
	}
	switch res.ErrorKind {
	case domain.KindInsufficientCredits:
		extra["requiredCredits"] = a.Processor.Cost()
		extra["currentCredits"] = res.RemainingCredits
		a.error(w, http.StatusPaymentRequired, text(r, msgInsufficientCredits, a.Processor.Cost()), extra)
	case domain.KindInvalidInput:
		a.error(w, http.StatusBadRequest, res.ErrorMessage, extra)
	default:
		a.error(w, http.StatusInternalServerError, res.ErrorMessage, extra)
	}
}
