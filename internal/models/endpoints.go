// Package models defines wire-level constants and payload types shared by
// the API client and its consumers.
package models

// DefaultBaseURL is the agent backend address used when no server is
// configured.
const DefaultBaseURL = "http://localhost:8000"

// Backend endpoint paths. Trailing slashes are significant: FastAPI routes
// them literally.
const (
	EndpointChat        = "/chat"
	EndpointChatStream  = "/chat/stream"
	EndpointRAGStream   = "/rag/chat/stream"
	EndpointSearch      = "/search"
	EndpointConvert     = "/upload_pdf/"
	EndpointTranscribe  = "/transcribe"
	EndpointSpeech      = "/text-to-speech/"
	EndpointLanguages   = "/supported-languages/"
	EndpointAuthStatus  = "/auth/status"
	EndpointPageImages  = "/page_images"
)

// Event-stream framing.
const (
	// EventDataPrefix marks a payload-bearing line in a streamed response.
	EventDataPrefix = "data:"
	// StreamDoneSentinel signals end of a streamed response independent of
	// stream-level EOF.
	StreamDoneSentinel = "[DONE]"
)

// SessionCookieName is the cookie carrying the backend's authenticated
// session (set by the Google OAuth callback).
const SessionCookieName = "session"
