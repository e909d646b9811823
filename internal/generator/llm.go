package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/aka-Rakesh/Xbot/internal/logging"
	"github.com/aka-Rakesh/Xbot/pkg/models"
)

// LLMStrategy asks a language model for the thread. Any failure is
// returned to the caller so the chain can fall through to the next
// strategy.
type LLMStrategy struct {
	llm       llms.Model
	modelName string
}

// NewLLMStrategy wraps an already-constructed model. Used directly in
// tests with a fake llms.Model.
func NewLLMStrategy(llm llms.Model, modelName string) *LLMStrategy {
	return &LLMStrategy{llm: llm, modelName: modelName}
}

// NewOpenAIStrategy builds an LLMStrategy backed by the OpenAI chat API.
func NewOpenAIStrategy(apiKey, modelName string) (*LLMStrategy, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api_key is required")
	}
	if modelName == "" {
		modelName = "gpt-3.5-turbo"
	}

	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(modelName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai model: %w", err)
	}

	return &LLMStrategy{llm: llm, modelName: modelName}, nil
}

// NewOllamaStrategy builds an LLMStrategy backed by a local Ollama server.
func NewOllamaStrategy(serverURL, modelName string) (*LLMStrategy, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("ollama server_url is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}

	llm, err := ollama.New(ollama.WithServerURL(serverURL), ollama.WithModel(modelName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama model: %w", err)
	}

	return &LLMStrategy{llm: llm, modelName: modelName}, nil
}

func (s *LLMStrategy) Name() string {
	return "llm:" + s.modelName
}

func (s *LLMStrategy) GenerateThread(ctx context.Context, opp models.Opportunity) ([]string, error) {
	prompt := buildPrompt(opp)

	if logger := logging.GetCurrentLogger(); logger != nil {
		logger.Log("Calling model %s for opportunity %s", s.modelName, opp.ID)
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(500),
	)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	thread := parseThread(response)
	if len(thread) == 0 {
		return nil, fmt.Errorf("LLM response contained no usable messages")
	}

	return thread, nil
}

func buildPrompt(opp models.Opportunity) string {
	var prompt strings.Builder

	prompt.WriteString("You are a bot that creates engaging Twitter threads about bounty opportunities.\n\n")
	prompt.WriteString("Bounty Information:\n")
	prompt.WriteString(fmt.Sprintf("- Title: %s\n", opp.Title))
	prompt.WriteString(fmt.Sprintf("- Description: %s\n", opp.Description))
	prompt.WriteString(fmt.Sprintf("- URL: %s\n\n", opp.URL))
	prompt.WriteString("Create a Twitter thread (3-4 tweets) that:\n")
	prompt.WriteString("1. Introduces the bounty opportunity naturally\n")
	prompt.WriteString("2. Explains what skills are needed\n")
	prompt.WriteString("3. Encourages qualified developers to apply\n")
	prompt.WriteString("4. Feels organic and not spammy\n\n")
	prompt.WriteString("Format each tweet on a new line, starting with \"Tweet 1:\", \"Tweet 2:\", etc.\n")
	prompt.WriteString("Keep each tweet under 280 characters.\n")
	prompt.WriteString("Use relevant hashtags but keep it natural.\n\n")
	prompt.WriteString("Thread:\n")

	return prompt.String()
}

var (
	tweetPrefixRe = regexp.MustCompile(`(?i)^tweet\s+\d+\s*:\s*`)
	numberedRe    = regexp.MustCompile(`^\d+[.)]\s*`)
)

// parseThread splits a model response into messages. Lines may carry a
// "Tweet N:" prefix or bare numbering; both are stripped. Blank lines
// and a leading "Thread:" marker are skipped.
func parseThread(content string) []string {
	var thread []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "thread:") {
			continue
		}

		line = tweetPrefixRe.ReplaceAllString(line, "")
		line = numberedRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)

		if line != "" {
			thread = append(thread, line)
		}
	}

	return thread
}
