package dialogue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Phase names the part of the dialogue a turn belongs to.
type Phase string

const (
	PhaseOpening Phase = "opening"
	PhaseRound   Phase = "round"
	PhaseClosing Phase = "closing"
)

// comedianQualifier is prepended to a comedian's label inside prompt text.
const comedianQualifier = "and comedian "

// PromptFields are the named inputs of one generated prompt.
type PromptFields struct {
	Phase     Phase
	Lead      bool // speaker talks first in this phase
	Speaker   string
	Partner   string
	Topic     string
	Prior     string // partner's latest utterance; empty only for the lead opening
	WordLimit int
}

const leadOpeningTemplate = `You are philosopher {speaker} and are about to have a conversation with another philosopher, {partner}.
The topic of conversation is {topic}.
You are first to speak.
Please give your opening as {speaker}.
Do not continue as {partner}.
{length}`

const replyOpeningTemplate = `You are philosopher {speaker} and are about to have a conversation with another philosopher, {partner}.
The topic of conversation is {topic}.
The other person has opened the conversation with the following:
"{prior}"
Respond back accordingly.
Do not continue as {partner}.
{length}`

const roundTemplate = `You are philosopher {speaker} and are in a conversation with another philosopher, {partner}.
The topic of conversation is {topic}.
{partner} has just said the following:
"{prior}"
Respond back accordingly as {speaker}.
Do not continue as {partner}.
{length}`

const closingTemplate = `You are philosopher {speaker} and are wrapping up a conversation with another philosopher, {partner}.
The topic of conversation is {topic}.
{partner} has just said the following:
"{prior}"
Please give your closing remarks as {speaker}.
Do not continue as {partner}.
{length}`

// PromptBuilder renders PromptFields through eino FString templates.
type PromptBuilder struct {
	leadOpening  prompt.ChatTemplate
	replyOpening prompt.ChatTemplate
	round        prompt.ChatTemplate
	closing      prompt.ChatTemplate
}

// NewPromptBuilder prepares the phase templates.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		leadOpening:  prompt.FromMessages(schema.FString, schema.UserMessage(leadOpeningTemplate)),
		replyOpening: prompt.FromMessages(schema.FString, schema.UserMessage(replyOpeningTemplate)),
		round:        prompt.FromMessages(schema.FString, schema.UserMessage(roundTemplate)),
		closing:      prompt.FromMessages(schema.FString, schema.UserMessage(closingTemplate)),
	}
}

// Build renders the prompt text for one speaker turn.
func (b *PromptBuilder) Build(ctx context.Context, f PromptFields) (string, error) {
	var tpl prompt.ChatTemplate
	switch {
	case f.Phase == PhaseOpening && f.Lead:
		tpl = b.leadOpening
	case f.Phase == PhaseOpening:
		tpl = b.replyOpening
	case f.Phase == PhaseRound:
		tpl = b.round
	case f.Phase == PhaseClosing:
		tpl = b.closing
	default:
		return "", fmt.Errorf("unknown dialogue phase %q", f.Phase)
	}

	msgs, err := tpl.Format(ctx, map[string]any{
		"speaker": f.Speaker,
		"partner": f.Partner,
		"topic":   f.Topic,
		"prior":   f.Prior,
		"length":  lengthInstruction(f.Phase, f.Lead, f.WordLimit),
	})
	if err != nil {
		return "", fmt.Errorf("format %s prompt: %w", f.Phase, err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("format %s prompt: template produced no message", f.Phase)
	}
	return msgs[0].Content, nil
}

// lengthInstruction is the word cap embedded in the prompt. It is an
// instruction only; replies are never truncated.
func lengthInstruction(phase Phase, lead bool, wordLimit int) string {
	noun := "response"
	switch {
	case phase == PhaseOpening && lead:
		noun = "opening"
	case phase == PhaseClosing:
		noun = "closing remarks"
	}
	if wordLimit <= 0 {
		return "Please keep your " + noun + " concise."
	}
	return "Please keep your " + noun + " under " + strconv.Itoa(wordLimit) + " words."
}

// Label returns the name used for a participant inside prompt text.
func Label(p Participant) string {
	if p.Comedian {
		return comedianQualifier + p.Name
	}
	return p.Name
}
