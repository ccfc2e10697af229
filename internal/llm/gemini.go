// Package llm answers questions about a document with Gemini on Vertex AI.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

const systemPrompt = "You are a helpful assistant that can answer questions based on the provided context delimited " +
	"with triple backticks.\n\n" +
	"You will be given a context and a user query. Your task is to generate a response that is " +
	"relevant to the query based on the context provided. If the context does not contain enough " +
	"information to answer the query, you should indicate that you do not have enough information " +
	"to provide a complete answer.\n\n" +
	"If the context is empty, you should respond with a message indicating that you do not have " +
	"enough information to answer the query.\n\n" +
	"You should always respond in a friendly and helpful manner. You should not include any " +
	"personal opinions or information.\n\n"

var ErrMissingProject = errors.New("gemini: PROJECT_ID and VERTEX_AI_REGION must be set")

type Answer struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
}

// Answerer produces an answer to query using docText as the only source.
type Answerer interface {
	GenerateAnswer(ctx context.Context, docText, query string) (Answer, error)
}

type GeminiConfig struct {
	APIKey    string
	ProjectID string
	Region    string
	Model     string
}

// Gemini creates its Vertex AI client on first use, so the server starts
// without a project or credentials and only queries fail.
type Gemini struct {
	config GeminiConfig

	mu     sync.Mutex
	client *genai.Client
}

var _ Answerer = (*Gemini)(nil)

func NewGemini(config GeminiConfig) *Gemini {
	return &Gemini{config: config}
}

func (g *Gemini) GenerateAnswer(ctx context.Context, docText, query string) (Answer, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return Answer{}, err
	}

	model := client.GenerativeModel(g.config.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction(docText))},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "text/plain",
	}

	resp, err := model.GenerateContent(ctx, genai.Text(query))
	if err != nil {
		return Answer{}, fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return answerFromResponse(resp), nil
}

func (g *Gemini) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if g.config.ProjectID == "" || g.config.Region == "" {
		return nil, ErrMissingProject
	}

	// without a key the client falls back to application default credentials
	var opts []option.ClientOption
	if g.config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(g.config.APIKey))
	}

	// the client outlives the request that created it
	client, err := genai.NewClient(context.WithoutCancel(ctx), g.config.ProjectID, g.config.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *Gemini) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// SystemInstruction embeds the document text between triple backticks.
func SystemInstruction(docText string) string {
	return systemPrompt + "Context:\n```" + docText + "```"
}

func answerFromResponse(resp *genai.GenerateContentResponse) Answer {
	if resp == nil {
		return Answer{}
	}

	var answer Answer
	if resp.UsageMetadata != nil {
		answer.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return answer
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	answer.Text = text.String()
	return answer
}
