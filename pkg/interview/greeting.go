package interview

import (
	"context"
	"fmt"

	"interviewer/pkg/config"
	"interviewer/pkg/contextmgr"
	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const personaPrompt = `Derive an interviewer persona from a job description.
Respond with JSON only: {"name": "first name", "company": "company or 'the hiring team'", "role": "interviewer's role"}.`

const greetingPrompt = `You are %s, a %s at %s, opening a spoken mock interview.
Greet the candidate warmly in two or three sentences, reference something specific from their resume, and invite them to introduce themselves.
Speak naturally; the text will be read aloud. Do not use markdown or lists.`

// handleGreeting opens the interview. Reconnect-safe: if this node already
// ran and the greeting is in the transcript, the existing text is re-emitted
// verbatim instead of generating a new one.
func (d *Driver) handleGreeting(ctx context.Context, s *state.InterviewState) state.Patch {
	if s.LastNode == state.NodeGreeting {
		if existing := s.LastAssistantMessage(); existing != "" {
			d.logger.Debug("re-emitting existing greeting for interview %d", s.InterviewID)
			return state.Patch{
				LastNode:    state.NodePtr(state.NodeGreeting),
				NextMessage: state.StrPtr(existing),
			}
		}
	}

	persona := d.derivePersona(ctx, s)
	greeting, err := d.generateGreeting(ctx, s, persona)
	if err != nil {
		d.logger.Warn("greeting generation failed, using canned greeting: %v", err)
		greeting = fmt.Sprintf(
			"Hello, and welcome! I'm %s, and I'll be your interviewer today. I've had a look at your background and I'm looking forward to our conversation. To start, could you tell me a bit about yourself?",
			persona.Name)
	}

	return state.Patch{
		LastNode:    state.NodePtr(state.NodeGreeting),
		Phase:       state.PhasePtr(state.PhaseIntro),
		NextMessage: state.StrPtr(greeting),
	}
}

// derivePersona builds the interviewer identity from the job description,
// falling back to the configured default on failure or when no description
// exists.
func (d *Driver) derivePersona(ctx context.Context, s *state.InterviewState) config.Persona {
	if s.JobDescription == "" {
		return d.defaultPersona()
	}

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(personaPrompt),
			llm.NewUserMessage(contextmgr.Truncate(s.JobDescription, 1000)),
		},
		MaxTokens:   128,
		Temperature: llm.TemperatureDeterministic,
	}

	var persona config.Persona
	if err := llm.CompleteJSON(ctx, d.analysisClient, req, &persona); err != nil {
		d.logger.Debug("persona derivation failed, using default: %v", err)
		return d.defaultPersona()
	}

	fallback := d.defaultPersona()
	if persona.Name == "" {
		persona.Name = fallback.Name
	}
	if persona.Company == "" {
		persona.Company = fallback.Company
	}
	if persona.Role == "" {
		persona.Role = fallback.Role
	}
	return persona
}

func (d *Driver) defaultPersona() config.Persona {
	if len(d.personas) > 0 {
		return d.personas[0]
	}
	return config.DefaultPersona()
}

func (d *Driver) generateGreeting(ctx context.Context, s *state.InterviewState, persona config.Persona) (string, error) {
	system := fmt.Sprintf(greetingPrompt, persona.Name, persona.Role, persona.Company)

	var user string
	if resume := contextmgr.ResumeContext(s); resume != "" {
		user = "Candidate resume:\n" + resume
	} else {
		user = "No resume is available; keep the greeting generic."
	}
	if job := contextmgr.JobContext(s); job != "" {
		user += "\n\n" + job
	}

	resp, err := d.conversationClient.Complete(ctx, llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(user),
	}))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
