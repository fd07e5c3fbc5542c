package ideas

import "fmt"

// Prompts are pinned to formats the parsers in parser.go understand; change
// them together.

const enhanceSystemPrompt = "You are a startup advisor. Rewrite the user's raw startup idea " +
	"into a sharp, concrete pitch of 2-4 sentences. Keep the founder's intent, " +
	"name the target customer and the core value proposition. Respond with the " +
	"pitch only, no preamble."

const sectionSystemPrompt = "You are a startup advisor producing one section of an idea " +
	"validation report. Follow the requested output format exactly and do not " +
	"add commentary around it."

func enhancePrompt(idea string) string {
	return fmt.Sprintf("Startup idea: %s", idea)
}

func marketPrompt(enhanced string) string {
	return fmt.Sprintf("Idea: %s\n\nList 4-6 market validation signals for this idea "+
		"(market size, demand indicators, competitors, timing). One bullet per line, "+
		"each starting with \"- \".", enhanced)
}

func mvpPrompt(enhanced string) string {
	return fmt.Sprintf("Idea: %s\n\nList the 4-6 features a minimum viable product must "+
		"ship with. One bullet per line, each starting with \"- \".", enhanced)
}

func techStackPrompt(enhanced string) string {
	return fmt.Sprintf("Idea: %s\n\nRecommend a technology stack. Answer with exactly "+
		"these four lines:\nFrontend: <choice>\nBackend: <choice>\nDatabase: <choice>\n"+
		"Hosting: <choice>", enhanced)
}

func monetizationPrompt(enhanced string) string {
	return fmt.Sprintf("Idea: %s\n\nList 3-5 realistic monetization strategies. One "+
		"bullet per line, each starting with \"- \".", enhanced)
}

func landingPagePrompt(idea, enhanced string) string {
	return fmt.Sprintf("Original idea: %s\nRefined pitch: %s\n\nWrite landing page copy "+
		"in exactly this format:\nHeadline: <one line>\nSubheading: <one line>\n"+
		"CTA: <button label>\nBenefits:\n- <benefit>\n- <benefit>\n- <benefit>", idea, enhanced)
}

func personasPrompt(enhanced string) string {
	return fmt.Sprintf("Idea: %s\n\nDescribe 3 target user personas. Number them and for "+
		"each use exactly this format:\n1. Name: <name and role>\nPain Points: <comma "+
		"separated>\nGoals: <comma separated>\nSolution: <how the product helps>", enhanced)
}
