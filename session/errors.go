package session

import "errors"

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrNotConfirmed    = errors.New("not confirmed")
	ErrSaveRejected    = errors.New("settings rejected")
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

// Canned text shown to the user.
const (
	Greeting          = "Hello! I'm your voice assistant. You can either speak to me or type your message."
	VoiceErrorNotice  = "Sorry, I encountered an error processing your voice message."
	TextErrorNotice   = "Sorry, I encountered an error processing your message."
	TestVoiceSentence = "Hello! This is a test of the selected voice and speed."
	ResetPrompt       = "Are you sure you want to reset the conversation?"

	BusyVoice = "Processing voice..."
	BusyText  = "Generating response..."

	AlertMicrophone    = "Could not access microphone. Please ensure microphone permissions are granted."
	AlertLoadSettings  = "Failed to load settings"
	AlertSettingsSaved = "Settings saved successfully!"
	AlertSaveSettings  = "Failed to save settings"
	AlertTestVoice     = "Failed to test voice"
	AlertOpenTTS       = "Failed to open TTS mode"
	AlertSpeakEmpty    = "Please enter some text to read"
	AlertSpeak         = "Failed to generate speech"
	AlertDownloadEmpty = "Please enter some text to generate audio"
	AlertDownload      = "Failed to generate audio for download"
	AlertReset         = "Failed to reset conversation"
)
