package image

import (
	"context"
	"net/http"
	"strings"
)

// SourceImage is the uploaded line art forwarded to a provider.
type SourceImage struct {
	Data     []byte
	MIMEType string
}

// Params is the provider-specific generation bundle. Field meanings differ per
// provider and the orchestrator treats the struct as opaque.
type Params struct {
	Temperature        float64
	TopK               int
	TopP               float64
	MaxOutputTokens    int
	ResponseModalities []string
	AspectRatio        string
}

// Profile describes how an adapter wants to be driven: the prompt it uses when
// the caller gives no instructions and the parameter bundles for default and
// custom-instruction requests.
type Profile struct {
	Provider           string
	DefaultInstruction string
	Params             Params
	CustomParams       Params
}

// GenerateRequest is a normalized request passed to any adapter.
type GenerateRequest struct {
	JobID       string
	Image       SourceImage
	Instruction string
	Params      Params
}

// OutputKind distinguishes image output from a text-only answer.
type OutputKind string

const (
	OutputImage OutputKind = "image"
	OutputText  OutputKind = "text"
)

// Output is the uniform successful result of an adapter call.
type Output struct {
	Kind     OutputKind
	Data     []byte
	MIMEType string
	Text     string
}

// Adapter is the contract implemented by all image providers. Failures are
// returned as errors wrapping the domain sentinels.
type Adapter interface {
	Profile() Profile
	Generate(ctx context.Context, req GenerateRequest) (*Output, error)
}

// DetectMIME returns declared when it is an image type, otherwise sniffs data.
func DetectMIME(declared string, data []byte) string {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

// ForCustom picks the parameter bundle for the given instruction mode.
func (p Profile) ForCustom(custom bool) Params {
	if custom {
		return p.CustomParams
	}
	return p.Params
}
