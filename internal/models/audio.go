package models

// Transcription is the result of a speech-to-text request.
type Transcription struct {
	Transcript   string `json:"transcript"`
	LanguageCode string `json:"language_code"`
}

// Speech is the result of a text-to-speech request. Language and Speaker
// echo the values the server actually used (it may auto-detect both).
type Speech struct {
	Audio    []byte
	Language string
	Speaker  string
}

// Languages describes the server's supported TTS languages and speakers.
type Languages struct {
	SupportedLanguages map[string]string `json:"supported_languages"`
	DetectionMapping   map[string]string `json:"language_detection_mapping"`
	ValidSpeakers      []string          `json:"valid_speakers"`
}
