package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"supportdesk/internal/config"
)

const defaultModel = "gemini-2.0-flash-exp"

const (
	placeholderQuery = "Please help me with this IT issue shown in the image."
	emptyReply       = "I apologize, but I couldn't generate a response. Please try again."
	failureReply     = "I encountered an error while processing your request. Please try again or contact support if the issue persists."
)

// Query carries the heterogeneous inputs of one support request.
type Query struct {
	Text          string
	ImageData     []byte
	ImageMIMEType string
	AudioData     []byte
	FileContent   string
}

type generateFunc func(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)

// Service assembles multimodal prompts and relays them to Gemini.
type Service struct {
	model       string
	transcriber Transcriber
	generate    generateFunc
}

// NewService builds the support responder. It fails when the Gemini
// credential is absent so the process can stop at startup.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Gemini.Model
	if model == "" {
		model = defaultModel
	}
	s := &Service{model: model}
	if sc := NewSpeechClient(cfg.Speech); sc != nil {
		s.transcriber = sc
	}
	s.generate = func(ctx context.Context, contents []*genai.Content, gcfg *genai.GenerateContentConfig) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, s.model, contents, gcfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return s, nil
}

// BuildParts converts the query inputs into an ordered part sequence.
// The image part, when present, precedes the single text part; file
// content takes over the text slot and carries the query with it.
func (s *Service) BuildParts(ctx context.Context, q Query) []*genai.Part {
	text := strings.TrimSpace(q.Text)

	if len(q.AudioData) > 0 {
		if s.transcriber == nil {
			log.Printf("audio attached but no speech service configured, skipping transcription")
		} else if voice, err := s.transcriber.Transcribe(ctx, q.AudioData); err != nil {
			log.Printf("speech recognition error: %v", err)
		} else if voice = strings.TrimSpace(voice); voice != "" {
			text = strings.TrimSpace(text + " " + voice)
		}
	}

	var parts []*genai.Part
	hasImage := len(q.ImageData) > 0 && q.ImageMIMEType != ""
	if hasImage {
		parts = append(parts, genai.NewPartFromBytes(q.ImageData, q.ImageMIMEType))
	}
	switch {
	case q.FileContent != "":
		parts = append(parts, genai.NewPartFromText("File Content:\n"+q.FileContent+"\n\n\nUser Query: "+text))
	case text == "" && hasImage:
		parts = append(parts, genai.NewPartFromText(placeholderQuery))
	default:
		parts = append(parts, genai.NewPartFromText(text))
	}
	return parts
}

// SupportResponse runs one generation call and always returns
// user-facing text. Service failures are logged and replaced by a fixed
// fallback; error details never reach the client.
func (s *Service) SupportResponse(ctx context.Context, q Query) string {
	parts := s.BuildParts(ctx, q)
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	gcfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "text/plain",
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		TopP:              genai.Ptr[float32](0.9),
		MaxOutputTokens:   2048,
	}

	text, err := s.generate(ctx, contents, gcfg)
	if err != nil {
		log.Printf("gemini api error: %v", err)
		return failureReply
	}
	if strings.TrimSpace(text) == "" {
		return emptyReply
	}
	return text
}
