package domain

const (
	MinImages = 3
	MaxImages = 5

	// DownloadFilename is the attachment name of an exported headshot.
	DownloadFilename = "ai-headshot.png"

	// FallbackGenerationMessage is shown when the generator returned neither an image nor text.
	FallbackGenerationMessage = "Model did not return an image. It might be due to a safety policy violation or an issue with the input images. Please try again with different images or a modified prompt."
)

// UploadedImage is one user-selected photo. It is never mutated after creation.
type UploadedImage struct {
	Data      []byte
	MediaType string
	Filename  string
}

// GeneratedImage is the generator output, possibly watermarked.
type GeneratedImage struct {
	Data      []byte
	MediaType string
}

// WorkflowState enumerates the generation screens.
type WorkflowState string

const (
	StateUpload     WorkflowState = "upload"
	StateGenerating WorkflowState = "generating"
	StateResult     WorkflowState = "result"
)

// GenerationResult is what the remote generator returned. Either field may
// be empty; an absent image with absent text maps to FallbackGenerationMessage.
type GenerationResult struct {
	Image *GeneratedImage
	Text  string
}
