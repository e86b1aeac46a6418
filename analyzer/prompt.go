package analyzer

import (
	"fmt"
	"strings"
)

// PlaceholderImage is what the model is told to use when no real image is found
const PlaceholderImage = "https://picsum.photos/1200/630"

const promptTemplate = `
You are an expert Technical SEO Specialist and Web Developer.

Task: Analyze the following URL: %s

Since you cannot browse the live web in real-time like a browser, use the 'googleSearch' tool to find the most current title, description, and context of this page.
%s
Based on what you find:
1. Construct the optimal Open Graph (OG) data.
2. Perform an SEO audit (critique the likely current title/description vs an optimized one).
3. Suggest content improvements (sections to add, FAQ for rich snippets).
4. Generate valid JSON-LD structured data appropriate for the content type (e.g., Organization, Product, Article, WebPage).
5. Generate the full HTML <head> meta tags block.

If the URL is invalid or the content is inaccessible, simulate a best-effort realistic example based on the domain name or return a polite error in the audit checks.

Important: Use "%s" as the 'og.image' if you cannot find a specific real image URL for the page.

*** CRITICAL: OUTPUT FORMAT ***
Return ONLY a single valid JSON object.
Do not include any explanation, markdown formatting, variable declarations (like 'const x ='), or code blocks.
Do not add trailing semicolons or comments.
Ensure all strings are properly escaped.

JSON Structure:
{
  "og": {
    "title": "Optimized Open Graph title",
    "description": "Optimized Open Graph description",
    "image": "URL of a relevant image",
    "site_name": "Site name",
    "url": "URL"
  },
  "seo": {
    "title_analysis": {
      "current": "Current detected title",
      "suggested": "Improved title",
      "length_check": "Feedback"
    },
    "description_analysis": {
      "current": "Current detected description",
      "suggested": "Improved description",
      "length_check": "Feedback"
    },
    "keywords": ["keyword1", "keyword2"],
    "missing_tags": ["tag1", "tag2"],
    "headings_structure": ["H1: Title", "H2: Subtitle"],
    "suggested_sections": ["Section 1", "Section 2"],
    "faq_suggestions": [
      { "question": "Q1", "answer": "A1" }
    ],
    "audit_checks": [
      { "status": "good", "label": "Label", "message": "Message" }
    ]
  },
  "json_ld": {},
  "html_meta_tags": "<meta ...>"
}
`

// maxPromptHeadings caps how many observed headings are passed to the model
const maxPromptHeadings = 15

// BuildPrompt renders the instruction for url. Observed page metadata is
// appended when a snapshot is available.
func BuildPrompt(url string, snapshot *PageSnapshot) string {
	return fmt.Sprintf(promptTemplate, url, snapshotContext(snapshot), PlaceholderImage)
}

func snapshotContext(s *PageSnapshot) string {
	if s.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nThe page was fetched directly and currently exposes the following metadata. Treat it as the current state of the page:\n")
	writeLine := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, value)
		}
	}
	writeLine("Title", s.Title)
	writeLine("Meta description", s.Description)
	writeLine("Canonical URL", s.Canonical)
	writeLine("Site name", s.SiteName)
	writeLine("Image", s.Image)

	headings := s.Headings
	if len(headings) > maxPromptHeadings {
		headings = headings[:maxPromptHeadings]
	}
	if len(headings) > 0 {
		b.WriteString("- Headings:\n")
		for _, h := range headings {
			fmt.Fprintf(&b, "  - %s\n", h)
		}
	}
	return b.String()
}
