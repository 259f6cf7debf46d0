package image

// DefaultGeminiInstruction is sent with the upload when the caller gives no
// custom instructions.
const DefaultGeminiInstruction = "Generate a colored version of this black and white line art. " +
	"Use vibrant, professional colors while maintaining the original line structure. " +
	"Create a high-quality digital artwork."

// DefaultFluxInstruction is tuned for Kontext-style image editing models,
// which respond better to an imperative edit description.
const DefaultFluxInstruction = "Colorize this black and white line art with vibrant, professional colors. " +
	"Keep every original line, shape and proportion exactly as drawn; only add color, shading and lighting. " +
	"Produce a clean, high-quality digital illustration."
