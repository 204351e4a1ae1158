package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiVersion = "v1beta"
	aiTemperature        = 0.2
)

var errEmptyResponse = errors.New("ai response content is empty")

func requestGemini(ctx context.Context, req completionRequest) (string, error) {
	clientConfig, err := geminiClientConfig(req.BaseURL, req.APIKey)
	if err != nil {
		return "", err
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return "", fmt.Errorf("create gemini client failed: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(aiTemperature)),
		MaxOutputTokens: aiMaxOutputTokens,
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema
	}

	parts := []*genai.Part{genai.NewPartFromText(req.UserPrompt)}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	response, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}
	content := strings.TrimSpace(response.Text())
	if content == "" {
		return "", errEmptyResponse
	}
	return content, nil
}

func requestOpenAI(ctx context.Context, req completionRequest) (string, error) {
	opts := []openaioption.RequestOption{openaioption.WithAPIKey(req.APIKey)}
	if req.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(req.BaseURL))
	}
	client := openai.NewClient(opts...)

	user := openai.UserMessage(req.UserPrompt)
	if req.Image != nil && len(req.Image.Data) > 0 {
		user = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.UserPrompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL(req.Image.MIMEType, req.Image.Data)}),
		})
	}
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, user)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(aiTemperature),
		MaxTokens:   openai.Int(aiMaxOutputTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errEmptyResponse
	}
	return content, nil
}

func requestAnthropic(ctx context.Context, req completionRequest) (string, error) {
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(req.APIKey)}
	if req.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(req.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	blocks := []anthropic.ContentBlockParamUnion{}
	if req.Image != nil && len(req.Image.Data) > 0 {
		blocks = append(blocks, anthropic.NewImageBlockBase64(req.Image.MIMEType, base64.StdEncoding.EncodeToString(req.Image.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.UserPrompt))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   aiMaxOutputTokens,
		Temperature: anthropic.Float(aiTemperature),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	message, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages failed: %w", err)
	}
	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", errEmptyResponse
	}
	return content, nil
}

func dataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func geminiClientConfig(endpoint, apiKey string) (*genai.ClientConfig, error) {
	baseURL, apiVersion, err := splitGeminiEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	return &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL,
			APIVersion: apiVersion,
		},
	}, nil
}

// splitGeminiEndpoint turns an endpoint such as
// https://proxy.example/gemini/v1beta into the SDK's base URL and API
// version. A missing version segment means v1beta.
func splitGeminiEndpoint(endpoint string) (string, string, error) {
	raw := strings.TrimSpace(endpoint)
	if raw == "" {
		raw = defaultGeminiBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid gemini endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("invalid gemini endpoint scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("invalid gemini endpoint host")
	}

	var prefix []string
	version := defaultGeminiVersion
	for _, segment := range strings.Split(strings.Trim(parsed.Path, "/"), "/") {
		if segment == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(segment), "v1") {
			version = segment
			break
		}
		prefix = append(prefix, segment)
	}

	baseURL := fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host)
	if len(prefix) > 0 {
		baseURL += strings.Join(prefix, "/") + "/"
	}
	return baseURL, version, nil
}
