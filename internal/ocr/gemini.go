package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const transcribePrompt = `Transcribe all visible text from this receipt image.
Return the raw text exactly as printed, one receipt line per output line.
Do not summarize, translate, or add any commentary.`

// GeminiEngine implements Engine using Google Gemini vision transcription.
type GeminiEngine struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiEngine(ctx context.Context, apiKey string, modelName string) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiEngine{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (g *GeminiEngine) Recognize(ctx context.Context, image []byte, language string, onProgress ProgressFunc) (Result, error) {
	report(onProgress, 0)

	prompt := transcribePrompt
	if language != "" {
		prompt = fmt.Sprintf("%s\nThe receipt language is %q.", transcribePrompt, language)
	}

	parts := []genai.Part{
		genai.ImageData("png", image),
		genai.Text(prompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return Result{}, fmt.Errorf("generating content: %w", err)
	}
	report(onProgress, 90)

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	report(onProgress, 100)
	return Result{
		Text:       strings.TrimSpace(text.String()),
		Confidence: DefaultConfidence,
	}, nil
}

func (g *GeminiEngine) Close() error {
	return g.client.Close()
}

func report(onProgress ProgressFunc, percent int) {
	if onProgress != nil {
		onProgress(percent)
	}
}
