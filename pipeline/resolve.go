package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// RepeatToken in the input stands for the previous prompt.
const RepeatToken = "."

var (
	// ErrNoPrompts is returned when there is nothing to generate.
	ErrNoPrompts = errors.New("no prompts given")

	// ErrNoPreviousPrompt is returned when the first token is RepeatToken.
	ErrNoPreviousPrompt = errors.New(`"." must follow a prompt to repeat`)

	// ErrEmptyPrompt is returned for an empty or whitespace-only token.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// Resolve replaces every RepeatToken with the prompt before it.
//
//	Resolve([]string{"cat", ".", "dog"}) // ["cat", "cat", "dog"]
//
// Resolution happens once, before anything is scheduled, so a failing
// input never starts any work.
func Resolve(tokens []string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, ErrNoPrompts
	}

	resolved := make([]string, 0, len(tokens))
	previous := ""
	for i, token := range tokens {
		switch {
		case token == RepeatToken:
			if previous == "" {
				return nil, fmt.Errorf("argument %d: %w", i+1, ErrNoPreviousPrompt)
			}
			resolved = append(resolved, previous)
		case strings.TrimSpace(token) == "":
			return nil, fmt.Errorf("argument %d: %w", i+1, ErrEmptyPrompt)
		default:
			previous = token
			resolved = append(resolved, token)
		}
	}
	return resolved, nil
}
