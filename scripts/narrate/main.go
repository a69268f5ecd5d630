// Command narrate renders each lesson's problem statement to an MP3 file so
// the lesson page can offer an audio version.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"code-sprint/internal/content"
	"code-sprint/internal/generation"
	"code-sprint/internal/models"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

const (
	maxWorkers = 10
	// keeps maxWorkers under the free-tier quota of 1000 requests a minute
	requestPause = 700 * time.Millisecond
)

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type googleTTS struct {
	client *texttospeech.Client
}

func (g *googleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: "en-US",
			SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
			Name:         "en-US-Standard-F",
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("SynthesizeSpeech: %w", err)
	}
	return resp.AudioContent, nil
}

func main() {
	log.Println("Starting lesson narration...")

	// Credentials come from GOOGLE_APPLICATION_CREDENTIALS.
	_ = godotenv.Load()
	catalog, err := content.Load(os.Getenv("CONTENT_PATH"))
	if err != nil {
		log.Fatalf("Failed to load question catalog: %v", err)
	}
	outputDir := os.Getenv("MEDIA_DIR")
	if outputDir == "" {
		outputDir = "media"
	}

	ctx := context.Background()
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		log.Fatalf("Failed to create TTS client: %v", err)
	}
	defer client.Close()

	written, err := narrate(ctx, &googleTTS{client: client}, catalog.Chapters(), outputDir, requestPause)
	if err != nil {
		log.Fatalf("Narration failed: %v", err)
	}
	log.Printf("Narration finished, %d new files", written)
}

// narrate writes one MP3 per question that does not have one yet. A failed
// question is logged and skipped; the rest still run.
func narrate(ctx context.Context, tts Synthesizer, chapters []models.Chapter, outputDir string, pause time.Duration) (int, error) {
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outputDir, err)
	}

	var pending []models.Question
	for _, ch := range chapters {
		for _, q := range ch.Questions {
			if _, err := os.Stat(AudioPath(outputDir, q.ID)); os.IsNotExist(err) {
				pending = append(pending, q)
			}
		}
	}
	if len(pending) == 0 {
		log.Println("Every lesson is already narrated.")
		return 0, nil
	}
	log.Printf("Narrating %d lessons.", len(pending))

	results := make(chan int, len(pending))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for _, q := range pending {
		g.Go(func() error {
			audio, err := tts.Synthesize(ctx, generation.ProblemText(q))
			if err != nil {
				log.Printf("lesson %d: %v", q.ID, err)
				return nil
			}
			if err := os.WriteFile(AudioPath(outputDir, q.ID), audio, 0o644); err != nil {
				return fmt.Errorf("lesson %d: %w", q.ID, err)
			}
			results <- q.ID
			time.Sleep(pause)
			return nil
		})
	}
	err := g.Wait()
	close(results)
	return len(results), err
}

// AudioPath is where the narration of a lesson lives.
func AudioPath(dir string, lessonID int) string {
	return filepath.Join(dir, fmt.Sprintf("lesson_%d.mp3", lessonID))
}
