// Package safety implements the criticality gate that screens every user
// message before the conversation advances. A Gemini-backed assessor scores
// the message 0-100; malformed assessments fail the turn (the gate is
// fail-closed), and scores above the threshold raise an idempotent flag
// record for human follow-up.
package safety

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultThreshold is the flagging cutoff: strictly greater scores raise a
// flag. 50 keeps "moderate concern" conversations unflagged.
const DefaultThreshold = 50

// ErrMalformedAssessment is returned when no usable verdict could be
// obtained: the assessor call failed or timed out, or its output cannot be
// parsed into a valid verdict. Callers must treat it as a hard failure of the
// turn, not as a clean score.
var ErrMalformedAssessment = errors.New("safety: malformed assessment")

var flagsRaised = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "hearu_flags_raised_total",
	Help: "Total number of criticality flags raised.",
})

func init() {
	prometheus.MustRegister(flagsRaised)
}

// Assessor produces the raw model output for an assessment prompt.
// Implemented by llm.GeminiAssessor.
type Assessor interface {
	Assess(ctx context.Context, prompt string) (string, error)
}

// FlagStore persists flag records. Implemented by repo.FlagStore.
type FlagStore interface {
	InsertFlag(ctx context.Context, userID, sessionID, reason string, percentage int) (bool, error)
}

// Verdict is the structured result of one criticality assessment.
type Verdict struct {
	Percentage int    `json:"percentage"`
	Reason     string `json:"reason"`
}

// Flagged reports whether the verdict exceeds the given threshold.
func (v Verdict) Flagged(threshold int) bool { return v.Percentage > threshold }

// criticalityPrompt instructs the assessor model. {message} is substituted
// with the raw user input.
const criticalityPrompt = `You are an AI safety assistant tasked with analyzing a user's message in a mental health chat context. Your goal is to determine if the message indicates potential drastic steps (e.g., self-harm, suicide), harmful behavior, or critical emotional distress. Follow these steps:

1. **Analyze the Message**: Examine the user's input for explicit or implicit signs of danger, such as mentions of self-harm, hopelessness, or intent to act destructively.
2. **Assign a Criticality Percentage**: Based on the severity and likelihood of drastic action or critical behavior, assign a percentage (0-100%):
   - 0-20%: No significant concern (e.g., casual conversation).
   - 21-40%: Mild concern (e.g., general sadness or frustration).
   - 41-60%: Moderate concern (e.g., hints of despair or risky thoughts).
   - 61-80%: High concern (e.g., strong emotional distress or vague threats).
   - 81-100%: Severe concern (e.g., explicit intent to harm self or others).
3. **Provide Reasoning**: Briefly explain why you assigned this percentage.

**Input**: A single user message from a chat session.
**Output**: Return a JSON object with:
- "percentage": number (0-100)
- "reason": string (explanation of the assessment)

**Example Inputs and Outputs**:
- Input: "I'm just tired today."
  Output: { "percentage": 20, "reason": "Mild expression of fatigue, no immediate danger." }
- Input: "I can't go on like this anymore."
  Output: { "percentage": 60, "reason": "Moderate concern due to hopelessness, requires context." }
- Input: "I'm going to end it all tonight."
  Output: { "percentage": 90, "reason": "Severe concern due to explicit intent to self-harm." }

**User Message**: {message}`

// BuildPrompt substitutes the user message into the assessment prompt.
func BuildPrompt(message string) string {
	return strings.Replace(criticalityPrompt, "{message}", message, 1)
}

// ParseVerdict turns raw assessor output into a Verdict. Models frequently
// wrap JSON in a markdown fence; those fences and embedded newlines are
// stripped before decoding. Any parse failure, out-of-range percentage, or
// blank reason yields ErrMalformedAssessment.
func ParseVerdict(raw string) (Verdict, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.ReplaceAll(cleaned, "\n", "")
	cleaned = strings.TrimSpace(cleaned)

	var parsed struct {
		Percentage *float64 `json:"percentage"`
		Reason     string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedAssessment, err)
	}
	if parsed.Percentage == nil {
		return Verdict{}, fmt.Errorf("%w: missing percentage", ErrMalformedAssessment)
	}
	pct := int(math.Round(*parsed.Percentage))
	if pct < 0 || pct > 100 {
		return Verdict{}, fmt.Errorf("%w: percentage %d out of range", ErrMalformedAssessment, pct)
	}
	if strings.TrimSpace(parsed.Reason) == "" {
		return Verdict{}, fmt.Errorf("%w: blank reason", ErrMalformedAssessment)
	}
	return Verdict{Percentage: pct, Reason: parsed.Reason}, nil
}

// Gate screens user messages and raises flags.
type Gate struct {
	Assessor  Assessor
	Flags     FlagStore
	Threshold int
	Timeout   time.Duration
}

func (g *Gate) threshold() int {
	if g.Threshold > 0 {
		return g.Threshold
	}
	return DefaultThreshold
}

// Check assesses one user message. It returns the verdict on success; on any
// assessor, parse, or flag-persistence failure it returns an error and the
// caller must abort the turn before anything reaches the transcript.
func (g *Gate) Check(ctx context.Context, userID, sessionID, message string) (Verdict, error) {
	tr := otel.Tracer("safety/Gate")
	ctx, span := tr.Start(ctx, "Check",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	assessCtx := ctx
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		assessCtx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	raw, err := g.Assessor.Assess(assessCtx, BuildPrompt(message))
	if err != nil {
		// A transport failure or timeout leaves us without a verdict, which
		// is indistinguishable from an unusable one.
		return Verdict{}, fmt.Errorf("%w: assess: %v", ErrMalformedAssessment, err)
	}

	v, err := ParseVerdict(raw)
	if err != nil {
		return Verdict{}, err
	}
	span.SetAttributes(attribute.Int("criticality.percentage", v.Percentage))

	if v.Flagged(g.threshold()) {
		created, err := g.Flags.InsertFlag(ctx, userID, sessionID, v.Reason, v.Percentage)
		if err != nil {
			return Verdict{}, fmt.Errorf("safety: persist flag: %w", err)
		}
		if created {
			flagsRaised.Inc()
			log.Warn().
				Str("user_id", userID).
				Str("session_id", sessionID).
				Int("percentage", v.Percentage).
				Msg("user flagged by criticality gate")
		}
	}

	return v, nil
}
