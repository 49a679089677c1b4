package matcher

// User-facing status texts.
const (
	msgCouldNotOpen    = "Could not open image: %v"
	msgNoFace          = "No clear face detected. Try a sharper, frontal photo."
	msgDetectionFailed = "Face detection failed: %v"
	msgFetching        = "Fetching Reddit posts… (threshold ≥ %d%% similarity)"
	msgFetchFailed     = "Failed to fetch posts: %v"
	msgNoImages        = "No images found at that link."
	msgFound           = "Found %d image URLs. Downloading…"
	msgProcessing      = "Processing image %d/%d"
	msgCanceled        = "Canceled."
	msgCancelRequested = "Cancel requested…"
	msgInternalError   = "Search stopped because of an internal error."
)
