// Package classifier derives summaries, tags, categories and highlight notes
// from page content through a language-model provider.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pbaille/autojournal/internal/breaker"
	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

// Input limits per task, in characters.
const (
	summaryInputLimit  = 10000
	tagInputLimit      = 5000
	categoryInputLimit = 3000
)

// Options tunes a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

var (
	summaryOptions  = Options{Temperature: 0.2, MaxTokens: 256}
	tagOptions      = Options{Temperature: 0.3, MaxTokens: 100}
	categoryOptions = Options{Temperature: 0.1, MaxTokens: 20}
	noteOptions     = Options{Temperature: 0.4, MaxTokens: 150}
)

// Provider completes a prompt with a language model.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// ErrUnavailable is returned when no provider is configured.
var ErrUnavailable = errors.New("language model not configured")

// Classifier handles content classification via a Provider
type Classifier struct {
	provider Provider
	guard    *breaker.Guard
	logger   *zap.Logger
}

// New creates a new Classifier. guard may be nil.
func New(provider Provider, guard *breaker.Guard, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{provider: provider, guard: guard, logger: logger}
}

// Provider returns the provider name.
func (c *Classifier) Provider() string {
	return c.provider.Name()
}

// Summarize returns a short factual summary of the page.
func (c *Classifier) Summarize(ctx context.Context, text, title, url string) (string, error) {
	out, err := c.complete(ctx, "summarize", summaryPrompt(text, title, url), summaryOptions)
	if err != nil {
		return "", err
	}
	summary := cleanResponse(out)
	if summary == "" {
		return "", appErrors.NewExternal(c.provider.Name(), errors.New("empty summary"))
	}
	return summary, nil
}

// Tag returns a handful of normalized tags for the page.
func (c *Classifier) Tag(ctx context.Context, text, title string) ([]string, error) {
	out, err := c.complete(ctx, "tag", tagPrompt(text, title), tagOptions)
	if err != nil {
		return nil, err
	}
	return parseTags(out), nil
}

// Categorize returns one category from the closed vocabulary.
func (c *Classifier) Categorize(ctx context.Context, text, title string) (string, error) {
	out, err := c.complete(ctx, "categorize", categoryPrompt(text, title), categoryOptions)
	if err != nil {
		return "", err
	}
	return domain.NormalizeCategory(cleanResponse(out)), nil
}

// AnnotateHighlight returns a one-line insight about a highlighted passage.
func (c *Classifier) AnnotateHighlight(ctx context.Context, text, title string) (string, error) {
	out, err := c.complete(ctx, "annotate", notePrompt(text, title), noteOptions)
	if err != nil {
		return "", err
	}
	return strings.Trim(cleanResponse(out), "\""), nil
}

func (c *Classifier) complete(ctx context.Context, task, prompt string, opts Options) (string, error) {
	call := func(ctx context.Context) (string, error) {
		return c.provider.Complete(ctx, prompt, opts)
	}

	var out string
	var err error
	if c.guard != nil {
		out, err = breaker.Call(ctx, c.guard, call)
	} else {
		out, err = call(ctx)
	}
	if err != nil {
		c.logger.Warn("language model call failed",
			zap.String("task", task),
			zap.String("provider", c.provider.Name()),
			zap.Error(err))
		return "", appErrors.NewExternal(c.provider.Name(), fmt.Errorf("%s: %w", task, err))
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func summaryPrompt(text, title, url string) string {
	var sb strings.Builder
	sb.WriteString("Summarize this web page in three or four short sentences. ")
	sb.WriteString("Stick to its main points and key facts. Return only the summary.\n\n")
	sb.WriteString("Title: " + title + "\n")
	sb.WriteString("URL: " + url + "\n\n")
	sb.WriteString("Content:\n")
	sb.WriteString(truncate(text, summaryInputLimit))
	return sb.String()
}

func tagPrompt(text, title string) string {
	var sb strings.Builder
	sb.WriteString("Suggest 3 to 5 tags for this content. ")
	sb.WriteString("Return ONLY the tags, separated by commas, no other text.\n\n")
	sb.WriteString("Title: " + title + "\n\n")
	sb.WriteString("Content:\n")
	sb.WriteString(truncate(text, tagInputLimit))
	return sb.String()
}

func categoryPrompt(text, title string) string {
	var sb strings.Builder
	sb.WriteString("Pick the single best category for this content from this list:\n")
	for _, c := range domain.Categories {
		sb.WriteString("- " + c + "\n")
	}
	sb.WriteString("\nReturn ONLY the category name.\n\n")
	sb.WriteString("Title: " + title + "\n\n")
	sb.WriteString("Content:\n")
	sb.WriteString(truncate(text, categoryInputLimit))
	return sb.String()
}

func notePrompt(text, title string) string {
	var sb strings.Builder
	sb.WriteString("Write a brief note on the key insight of this highlighted passage ")
	sb.WriteString("or why it matters. Aim for under 100 characters.\n\n")
	sb.WriteString("Page title: " + title + "\n\n")
	sb.WriteString("Highlighted text:\n\"" + text + "\"")
	return sb.String()
}

// cleanResponse trims whitespace and markdown code fences.
func cleanResponse(resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```text")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}

// parseTags splits comma or newline separated output into normalized tags.
func parseTags(resp string) []string {
	resp = cleanResponse(resp)
	fields := strings.FieldsFunc(resp, func(r rune) bool { return r == ',' || r == '\n' })
	for i, f := range fields {
		fields[i] = strings.Trim(strings.TrimSpace(f), "-*#\"'.` ")
	}
	return domain.NormalizeTags(fields)
}
