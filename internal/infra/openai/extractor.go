// internal/infra/openai/extractor.go
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"eslatma_bot/internal/domain/reminder"
	"eslatma_bot/internal/domain/speech"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const extractTimeout = 20 * time.Second

// timeLayout is the wire format the model is instructed to emit.
const timeLayout = "2006-01-02 15:04"

const extractSystemPrompt = `You are a reminder assistant for Uzbekistan users. You receive a message in Uzbek or Russian and extract every reminder it contains.

For each reminder determine:
- "task": what to do, in the user's own language
- "time_utc": the scheduled time as "YYYY-MM-DD HH:MM" in UTC, or "" when no time can be determined
- "notes": extra details like list items, or ""
- "location": where the task happens, or ""
- "recurrence_type": one of "daily", "weekly", "weekdays", "monthly", or "" for one-time reminders ("har kuni"/"каждый день" = daily, "ish kunlari"/"по будням" = weekdays, "har hafta"/"каждую неделю" = weekly, "har oy"/"каждый месяц" = monthly)
- "recurrence_time": for recurring reminders, the local wall-clock time as "HH:MM", otherwise ""

Relative times ("5 minutdan keyin", "через полчаса", "ertaga ertalab", "сегодня вечером") are resolved against the current time in the user's timezone. "ertaga"/"завтра" without a time means 09:00 local.

Reply with ONLY a JSON array, no prose and no code fences.`

// Extractor implements speech.Extractor with an OpenAI chat completion that
// emits a JSON array of reminder candidates.
type Extractor struct {
	client *openai.Client
	model  openai.ChatModel
}

func NewExtractor(apiKey string) *Extractor {
	if apiKey == "" {
		return &Extractor{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Extractor{
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

type candidatePayload struct {
	Task           string `json:"task"`
	TimeUTC        string `json:"time_utc"`
	Notes          string `json:"notes"`
	Location       string `json:"location"`
	RecurrenceType string `json:"recurrence_type"`
	RecurrenceTime string `json:"recurrence_time"`
}

func (e *Extractor) Extract(ctx context.Context, text string, nowUTC time.Time, userTimezone string) ([]speech.Candidate, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: extraction client not configured", speech.ErrExtractionFailed)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	userMessage := fmt.Sprintf(
		"Current date and time (UTC): %s\nUser timezone: %s\n\nMessage: %q",
		nowUTC.Format(timeLayout), userTimezone, text,
	)

	req := openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(extractSystemPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(userMessage),
					},
				},
			},
		},
		Temperature:         openai.Float(0.0),
		MaxCompletionTokens: openai.Int(500),
	}

	resp, err := e.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", speech.ErrExtractionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no completion received", speech.ErrExtractionFailed)
	}

	return parseCandidates(resp.Choices[0].Message.Content)
}

// parseCandidates decodes the model's JSON array, tolerating code fences the
// model sometimes adds despite instructions. Candidates without a parseable
// time come back with a zero ScheduledTimeUTC so the caller can prompt for an
// explicit time.
func parseCandidates(raw string) ([]speech.Candidate, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var payloads []candidatePayload
	if err := json.Unmarshal([]byte(cleaned), &payloads); err != nil {
		return nil, fmt.Errorf("%w: malformed model output: %v", speech.ErrExtractionFailed, err)
	}

	var candidates []speech.Candidate
	for _, p := range payloads {
		task := strings.TrimSpace(p.Task)
		if task == "" {
			continue
		}
		cand := speech.Candidate{
			Task:           task,
			Notes:          strings.TrimSpace(p.Notes),
			Location:       strings.TrimSpace(p.Location),
			RecurrenceType: normalizeRecurrence(p.RecurrenceType),
			RecurrenceTime: strings.TrimSpace(p.RecurrenceTime),
		}
		if t, err := time.Parse(timeLayout, strings.TrimSpace(p.TimeUTC)); err == nil {
			cand.ScheduledTimeUTC = t.UTC()
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func normalizeRecurrence(raw string) reminder.RecurrenceType {
	switch reminder.RecurrenceType(strings.ToLower(strings.TrimSpace(raw))) {
	case reminder.RecurrenceDaily:
		return reminder.RecurrenceDaily
	case reminder.RecurrenceWeekly:
		return reminder.RecurrenceWeekly
	case reminder.RecurrenceWeekdays:
		return reminder.RecurrenceWeekdays
	case reminder.RecurrenceMonthly:
		return reminder.RecurrenceMonthly
	default:
		return reminder.RecurrenceNone
	}
}
