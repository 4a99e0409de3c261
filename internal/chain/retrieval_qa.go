// Package chain wires a retriever and a chat model into a question-answering
// chain.
package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"rag-web-qa/internal/domain"
)

// DefaultPromptTemplate is an instruction-style prompt. It takes the
// question and context variables.
const DefaultPromptTemplate = `<s> [INST] You are an assistant for question-answering tasks. Use the following context to answer the question. If you don't know the answer, just say you don't know. Use three sentences and be concise in your answer. [/INST] </s>
[INST] Question: {{.question}}
Context: {{.context}}
Answer: [/INST]`

// RetrievalQA answers a query by stuffing retrieved chunks into a prompt.
type RetrievalQA struct {
	llm       domain.ChatModel
	retriever domain.Retriever
	prompt    prompts.PromptTemplate
}

// NewRetrievalQA builds a chain. An empty template selects
// DefaultPromptTemplate; a template that fails to render is rejected.
func NewRetrievalQA(llm domain.ChatModel, retriever domain.Retriever, template string) (*RetrievalQA, error) {
	if template == "" {
		template = DefaultPromptTemplate
	}
	prompt := prompts.NewPromptTemplate(template, []string{"question", "context"})
	if _, err := prompt.Format(map[string]any{"question": "", "context": ""}); err != nil {
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}
	return &RetrievalQA{llm: llm, retriever: retriever, prompt: prompt}, nil
}

// Invoke retrieves context for query, renders the prompt and asks the model.
func (c *RetrievalQA) Invoke(ctx context.Context, query string) (domain.Answer, error) {
	docs, err := c.retriever.Retrieve(ctx, query)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	rendered, err := c.prompt.Format(map[string]any{
		"question": query,
		"context":  StuffDocuments(docs),
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("render prompt: %w", err)
	}
	out, err := c.llm.Chat(ctx, []domain.Message{{Role: domain.RoleUser, Content: rendered}})
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{
		Query:           query,
		Result:          strings.TrimSpace(out),
		SourceDocuments: docs,
	}, nil
}

// StuffDocuments joins chunk texts with a blank line.
func StuffDocuments(docs []domain.SearchResult) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Chunk.Text
	}
	return strings.Join(parts, "\n\n")
}
