package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var (
	transcribeLanguageFlag string

	speakLanguageFlag  string
	speakSpeakerFlag   string
	speakOutputFlag    string
	speakListLanguages bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe an audio file",
	Long: `Send an audio file to the backend speech-to-text service and print the
transcript.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Synthesize speech from text",
	Long: `Convert text to speech through the backend. The language is auto-detected
unless set explicitly; the WAV audio is written to the output file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSpeak,
}

func init() {
	transcribeCmd.Flags().StringVar(&transcribeLanguageFlag, "language", "", "Language code hint (e.g. en-IN, hi-IN)")

	speakCmd.Flags().StringVar(&speakLanguageFlag, "language", "", "Target language code (default: auto-detect)")
	speakCmd.Flags().StringVar(&speakSpeakerFlag, "speaker", "", "Voice to use")
	speakCmd.Flags().StringVarP(&speakOutputFlag, "output", "o", "speech.wav", "Output WAV file")
	speakCmd.Flags().BoolVar(&speakListLanguages, "list-languages", false, "List supported languages and speakers")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("cannot read %s: %w", args[0], err)
	}

	cfg := loadedConfig()

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	spin := newSpinner("Transcribing")
	spin.start()

	result, err := client.Transcribe(context.Background(), args[0], transcribeLanguageFlag)
	if err != nil {
		spin.stopWithError()
		return err
	}
	spin.stopWithSuccess(fmt.Sprintf("Transcribed (%s)", result.LanguageCode))

	fmt.Println(result.Transcript)
	return nil
}

func runSpeak(cmd *cobra.Command, args []string) error {
	cfg := loadedConfig()

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	if speakListLanguages {
		langs, err := client.SupportedLanguages(context.Background())
		if err != nil {
			return err
		}
		codes := make([]string, 0, len(langs.SupportedLanguages))
		for code := range langs.SupportedLanguages {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		fmt.Println("Languages (default speaker):")
		for _, code := range codes {
			fmt.Printf("  %-8s %s\n", code, langs.SupportedLanguages[code])
		}
		if len(langs.ValidSpeakers) > 0 {
			fmt.Printf("Speakers: %s\n", strings.Join(langs.ValidSpeakers, ", "))
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("text to speak is required")
	}

	language := speakLanguageFlag
	if language == "" {
		language = cfg.TTSLanguage
	}
	speaker := speakSpeakerFlag
	if speaker == "" {
		speaker = cfg.TTSSpeaker
	}

	spin := newSpinner("Synthesizing")
	spin.start()

	speech, err := client.Synthesize(context.Background(), args[0], language, speaker)
	if err != nil {
		spin.stopWithError()
		return err
	}

	if err := os.WriteFile(speakOutputFlag, speech.Audio, 0o644); err != nil {
		spin.stopWithError()
		return fmt.Errorf("failed to save audio: %w", err)
	}
	spin.stopWithSuccess(fmt.Sprintf("Saved %s (%s, %s)", speakOutputFlag, speech.Language, speech.Speaker))
	return nil
}
