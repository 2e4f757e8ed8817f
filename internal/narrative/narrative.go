package narrative

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/halvard/harpqc/internal/analysis"
	"github.com/halvard/harpqc/internal/models"
)

const systemPrompt = "You are a data quality analyst. Summarise the supplied " +
	"solar active-region dataset statistics in two short paragraphs of plain " +
	"prose. Mention completeness, imputation, extreme longitudes and time " +
	"coverage. Do not invent numbers."

// Summarizer writes the report's opening prose with a language model.
type Summarizer struct {
	client openai.Client
	model  string
}

// NewSummarizer reads the OPENAI_API_KEY environment variable for
// authentication.
func NewSummarizer() (*Summarizer, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Summarizer{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Describe asks the model for a prose summary of one analysis result.
func (s *Summarizer) Describe(ctx context.Context, res *analysis.Result) (string, error) {
	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Digest(res)),
		},
		Model: s.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	text := strings.TrimSpace(chat.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion returned")
	}
	return text, nil
}

// Digest renders the headline numbers as the model prompt. It doubles as
// a plain-text appendix in the report, so it stays readable on its own.
func Digest(res *analysis.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Records loaded: %d across %d tracked regions.\n", res.Loaded, len(res.Entities))
	total := res.Totals.Total()
	if total > 0 {
		fmt.Fprintf(&b, "Completeness: %d complete (%.1f%%), %d incomplete (%.1f%%), %d missing (%.1f%%).\n",
			res.Totals.Complete, res.Totals.Fraction(models.ClassComplete)*100,
			res.Totals.Incomplete, res.Totals.Fraction(models.ClassIncomplete)*100,
			res.Totals.Missing, res.Totals.Fraction(models.ClassMissing)*100)
	}
	fmt.Fprintf(&b, "Longitude imputation filled %d LON_MIN and %d LON_MAX values.\n", res.ImputedMin, res.ImputedMax)
	fmt.Fprintf(&b, "Records beyond %.0f degrees absolute longitude: %d low, %d high.\n",
		res.ExtremeLon, res.ExtremeLow, res.ExtremeHigh)
	if len(res.Coverage.Grid) > 0 {
		fmt.Fprintf(&b, "Cadence grid: %d of %d slots observed (%.1f%%), %d off-grid timestamps.\n",
			res.Coverage.Observed, len(res.Coverage.Grid), res.Coverage.Fraction()*100, res.Coverage.OffGrid)
	}
	if len(res.Issues) > 0 {
		fmt.Fprintf(&b, "Entities with issues: %d.\n", len(res.Issues))
	}
	return b.String()
}

// Fallback is the deterministic summary used when no model is configured.
func Fallback(res *analysis.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The input table holds %d records across %d tracked regions. ", res.Loaded, len(res.Entities))
	total := res.Totals.Total()
	if total > 0 {
		fmt.Fprintf(&b, "%d records (%.1f%%) carry every SHARP keyword, %d (%.1f%%) carry some, and %d (%.1f%%) carry none. ",
			res.Totals.Complete, res.Totals.Fraction(models.ClassComplete)*100,
			res.Totals.Incomplete, res.Totals.Fraction(models.ClassIncomplete)*100,
			res.Totals.Missing, res.Totals.Fraction(models.ClassMissing)*100)
	}
	if res.ImputedMin+res.ImputedMax > 0 {
		fmt.Fprintf(&b, "Imputation resolved %d LON_MIN and %d LON_MAX gaps. ", res.ImputedMin, res.ImputedMax)
	}
	if res.ExtremeLow+res.ExtremeHigh > 0 {
		fmt.Fprintf(&b, "%d records sit beyond %.0f degrees of longitude, where keyword quality degrades. ",
			res.ExtremeLow+res.ExtremeHigh, res.ExtremeLon)
	}
	if len(res.Coverage.Grid) > 0 {
		fmt.Fprintf(&b, "The nominal cadence grid is %.1f%% observed end to end.", res.Coverage.Fraction()*100)
	}
	return strings.TrimSpace(b.String())
}
