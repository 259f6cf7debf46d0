package domain

// ResultKind tags the variant held by a ProcessingResult.
type ResultKind string

const (
	ResultImage   ResultKind = "image"
	ResultText    ResultKind = "text"
	ResultFailure ResultKind = "failure"
)

// ProcessingResult is the uniform outcome of one colorization attempt.
// Exactly one of the payload groups is meaningful depending on Kind.
type ProcessingResult struct {
	Kind ResultKind

	// image
	Data     []byte
	MIMEType string

	// text
	Content string

	// failure
	ErrorKind    ErrorKind
	ErrorMessage string

	CreditsUsed      int
	RemainingCredits int
}

// Succeeded reports whether the result carries generated output.
func (r ProcessingResult) Succeeded() bool {
	return r.Kind == ResultImage || r.Kind == ResultText
}

// Failure builds a failure result from err.
func Failure(err error, remaining int) ProcessingResult {
	return ProcessingResult{
		Kind:             ResultFailure,
		ErrorKind:        KindOf(err),
		ErrorMessage:     err.Error(),
		RemainingCredits: remaining,
	}
}
