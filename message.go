package main

const (
	MsgNoImage        = "No image provided"
	MsgNoFileSelected = "No file selected"
	MsgInvalidImage   = "Invalid image data"
	MsgModelNotLoaded = "Model not loaded"

	MsgDetectionFailed    = "Detection failed"
	MsgFaceCroppingFailed = "Face cropping failed"

	MsgFileTooLarge     = "File too large. Please upload a smaller image."
	MsgNotFound         = "Endpoint not found"
	MsgMethodNotAllowed = "Method not allowed"
	MsgInternalError    = "Internal server error"
	MsgInvalidLimit     = "limit must be an integer"

	MsgModelReloaded = "Model reloaded successfully"
	MsgNoModelLoaded = "No model could be loaded"
)
