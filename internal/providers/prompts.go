package providers

import (
	"fmt"
	"strings"
)

// EnhancePrompt builds the instruction used to rewrite a user's cover idea
// into a detailed image prompt
func EnhancePrompt(idea, style string) string {
	var b strings.Builder
	b.WriteString("You write prompts for an image model that paints book cover artwork.\n")
	b.WriteString("Rewrite the idea below as a single detailed prompt: subject, composition, lighting, palette and mood.\n")
	b.WriteString("Leave clear space in the upper third for a title. Do not include any text, letters or typography in the image.\n")
	if style != "" {
		fmt.Fprintf(&b, "Art style: %s.\n", style)
	}
	b.WriteString("Reply with the prompt only.\n\nIdea: ")
	b.WriteString(strings.TrimSpace(idea))
	return b.String()
}

// DescribePrompt asks a vision model to describe an existing cover
func DescribePrompt() string {
	return "Describe this book cover image in two or three sentences for use as an image generation prompt. " +
		"Mention subject, composition, color palette and art style. Ignore any text in the image."
}

// StylePrompt folds an art style into a generation prompt
func StylePrompt(prompt, style string) string {
	prompt = strings.TrimSpace(prompt)
	if style == "" {
		return prompt
	}
	return fmt.Sprintf("%s. Style: %s. Book cover artwork, no text.", strings.TrimSuffix(prompt, "."), style)
}

// CleanCompletion trims whitespace and surrounding quotes models like to add
func CleanCompletion(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`")
	return strings.TrimSpace(s)
}
