package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/username/contazen/backend/src/logger"
	"google.golang.org/genai"
)

// GeminiClassifier implements Classifier on top of the Google GenAI API.
type GeminiClassifier struct {
	apiKey string
	model  string
}

func NewGeminiClassifier(apiKey, model string) *GeminiClassifier {
	return &GeminiClassifier{apiKey: apiKey, model: model}
}

// Classify sends the message (and optional attachment) to Gemini and parses
// the strict-JSON reply. The caller owns the timeout via ctx.
func (g *GeminiClassifier) Classify(ctx context.Context, req ClassifyRequest) (ClassifyResult, error) {
	if g.apiKey == "" {
		return ClassifyResult{}, fmt.Errorf("gemini classify: no API key configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return ClassifyResult{}, fmt.Errorf("gemini classify: create client: %w", err)
	}

	parts := []*genai.Part{{Text: buildClassifyPrompt(req)}}
	if len(req.Media) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.MediaMIMEType,
				Data:     req.Media,
			},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return ClassifyResult{}, fmt.Errorf("gemini classify: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return ClassifyResult{}, fmt.Errorf("gemini classify: empty response from model")
	}

	result, err := parseClassifyResponse(rawText)
	if err != nil {
		logger.L.Warn("Gemini returned unparseable classification output", "error", err)
		return ClassifyResult{}, fmt.Errorf("gemini classify: %w", err)
	}
	return result, nil
}

// buildClassifyPrompt assembles the instruction block: task, output schema,
// the user's category taxonomy, and the binding keyword rules.
func buildClassifyPrompt(req ClassifyRequest) string {
	var b strings.Builder

	b.WriteString("You are the expense-entry assistant of a personal finance tracker.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Decide whether the user message (and attachment, if any) describes a single money movement.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a single JSON object with these fields:\n")
	b.WriteString("  - \"isTransaction\": boolean\n")
	b.WriteString("  - \"transactionDetails\": object or null, with:\n")
	b.WriteString("    - \"description\": string (short, user-facing)\n")
	b.WriteString("    - \"amount\": number (always >= 0; direction is carried by \"type\")\n")
	b.WriteString("    - \"type\": \"income\" or \"expense\"\n")
	b.WriteString("    - \"category\": string (one of the category names below)\n")
	b.WriteString("    - \"dueDate\": string \"YYYY-MM-DD\" or null\n")
	b.WriteString("    - \"recurrence\": \"daily\", \"weekly\", \"monthly\", \"yearly\" or null\n")
	b.WriteString("  - \"responseMessage\": string (always present; a short human reply in the user's language)\n\n")

	writeCategoryList(&b, "Income categories", req.IncomeCategories)
	writeCategoryList(&b, "Expense categories", req.ExpenseCategories)

	if len(req.UserRules) > 0 {
		b.WriteString("BINDING USER RULES (these outrank your own inference; apply the first that matches):\n")
		for _, rule := range req.UserRules {
			fmt.Fprintf(&b, "- If the message mentions %q, the category is %q.\n", rule.Keyword, rule.Category)
		}
		b.WriteString("\n")
	}

	b.WriteString("Rules:\n")
	b.WriteString("- If the message is not about a money movement, set \"isTransaction\" to false and \"transactionDetails\" to null.\n")
	b.WriteString("- If the category is unclear, pick the closest listed name; never invent a new one.\n")
	b.WriteString("- Return ONLY valid raw JSON.\n")
	b.WriteString("- Do NOT wrap the response in code fences.\n")
	b.WriteString("- Output must begin with \"{\" and end with \"}\".\n\n")

	if strings.TrimSpace(req.Text) != "" {
		b.WriteString("User message:\n")
		b.WriteString(req.Text)
		b.WriteString("\n")
	} else {
		b.WriteString("User message: (attachment only)\n")
	}

	return b.String()
}

func writeCategoryList(b *strings.Builder, title string, names []string) {
	b.WriteString(title + ":\n")
	if len(names) == 0 {
		b.WriteString("  (none configured)\n\n")
		return
	}
	for _, name := range names {
		b.WriteString("  - " + name + "\n")
	}
	b.WriteString("\n")
}
