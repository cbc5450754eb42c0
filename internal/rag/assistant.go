package rag

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"telecom-assistant/internal/llmservice"
	"telecom-assistant/internal/models"
	"telecom-assistant/internal/telemetry"
	"telecom-assistant/internal/websearch"
)

const (
	defaultTopK       = 3
	defaultWebResults = 3

	stageRetrieve  = "retrieve"
	stageGenerate  = "generate_documents"
	stageSearch    = "web_search"
	stageWebAnswer = "generate_web"
)

// Options tune the assistant; zero values fall back to defaults.
type Options struct {
	TopK          int
	MaxWebResults int
	Sentinel      string
	Metrics       *telemetry.Metrics
}

// Assistant answers questions from the document index, falling back to web search.
type Assistant struct {
	retriever     Retriever
	llm           llmservice.Generator
	searcher      websearch.Searcher
	metrics       *telemetry.Metrics
	topK          int
	maxWebResults int
	sentinel      string
	now           func() time.Time
}

func NewAssistant(retriever Retriever, llm llmservice.Generator, searcher websearch.Searcher, opts Options) *Assistant {
	a := &Assistant{
		retriever:     retriever,
		llm:           llm,
		searcher:      searcher,
		metrics:       opts.Metrics,
		topK:          opts.TopK,
		maxWebResults: opts.MaxWebResults,
		sentinel:      opts.Sentinel,
		now:           time.Now,
	}
	if a.topK <= 0 {
		a.topK = defaultTopK
	}
	if a.maxWebResults <= 0 {
		a.maxWebResults = defaultWebResults
	}
	if a.sentinel == "" {
		a.sentinel = models.DefaultSentinel
	}
	return a
}

// Respond answers question and returns conv with the new turn appended.
// conv itself is left untouched. Blank questions are not recorded.
func (a *Assistant) Respond(ctx context.Context, conv models.Conversation, question string) (models.Conversation, models.Answer) {
	answer := a.Answer(ctx, question)
	if strings.TrimSpace(question) == "" {
		return conv, answer
	}
	return conv.Append(models.Turn{
		Question: strings.TrimSpace(question),
		Answer:   answer.Text,
		Source:   answer.Source,
		At:       a.now(),
	}), answer
}

// Answer runs retrieval, then the web fallback when the documents do not
// hold the answer. Failures are reported as answers, never as errors.
func (a *Assistant) Answer(ctx context.Context, question string) models.Answer {
	ctx, span := telemetry.Tracer().Start(ctx, "assistant.answer")
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return a.finish(span, models.Answer{Text: models.EmptyQuestionMessage, Source: models.SourceNone})
	}

	results := a.retrieve(ctx, question)
	if len(results) > 0 {
		start := time.Now()
		raw, err := a.llm.Generate(ctx, llmservice.Request{Prompt: DocumentPrompt(question, results, a.sentinel), JSON: true})
		a.metrics.ObserveStage(stageGenerate, time.Since(start))
		if err != nil {
			log.Error().Err(err).Msg("Document answer generation failed")
			span.RecordError(err)
			return a.finish(span, models.Answer{Text: models.UnavailableMessage, Source: models.SourceUnavailable})
		}

		reply := ParseReply(raw, a.sentinel)
		if reply.Found {
			return a.finish(span, models.Answer{Text: reply.Answer, Source: models.SourceDocuments, Chunks: results})
		}
		log.Debug().Str("question", question).Msg("Answer not in documents, checking online sources")
	}

	return a.finish(span, a.fallback(ctx, question))
}

func (a *Assistant) retrieve(ctx context.Context, question string) []models.SearchResult {
	ctx, span := telemetry.Tracer().Start(ctx, "assistant.retrieve")
	defer span.End()

	start := time.Now()
	results, err := a.retriever.Retrieve(ctx, question, a.topK)
	a.metrics.ObserveStage(stageRetrieve, time.Since(start))
	if err != nil {
		log.Warn().Err(err).Msg("Retrieval failed, using web search")
		span.RecordError(err)
		return nil
	}
	span.SetAttributes(attribute.Int("retrieve.results", len(results)))
	return results
}

func (a *Assistant) fallback(ctx context.Context, question string) models.Answer {
	ctx, span := telemetry.Tracer().Start(ctx, "assistant.web_fallback")
	defer span.End()

	start := time.Now()
	webResults, err := a.searcher.Search(ctx, question, a.maxWebResults)
	a.metrics.ObserveStage(stageSearch, time.Since(start))
	if err != nil {
		a.metrics.ObserveWebSearch("error")
		log.Error().Err(err).Msg("Web search failed")
		span.RecordError(err)
		return models.Answer{Text: models.NoAnswerMessage, Source: models.SourceNone}
	}
	if len(webResults) == 0 {
		a.metrics.ObserveWebSearch("empty")
		return models.Answer{Text: models.NoAnswerMessage, Source: models.SourceNone}
	}
	a.metrics.ObserveWebSearch("ok")

	start = time.Now()
	raw, err := a.llm.Generate(ctx, llmservice.Request{Prompt: WebPrompt(question, webResults)})
	a.metrics.ObserveStage(stageWebAnswer, time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("Web answer generation failed")
		span.RecordError(err)
		return models.Answer{Text: models.UnavailableMessage, Source: models.SourceUnavailable}
	}

	text := CleanText(raw)
	if text == "" || isSentinel(text, a.sentinel) {
		return models.Answer{Text: models.NoAnswerMessage, Source: models.SourceNone}
	}
	return models.Answer{Text: text, Source: models.SourceWeb, WebResults: webResults}
}

func (a *Assistant) finish(span trace.Span, answer models.Answer) models.Answer {
	span.SetAttributes(attribute.String("answer.source", string(answer.Source)))
	if answer.Source == models.SourceUnavailable {
		span.SetStatus(codes.Error, "llm unavailable")
	}
	a.metrics.ObserveAnswer(string(answer.Source))
	return answer
}
