package metadata

import (
	"regexp"
	"strings"
)

// Character limits applied to generated fields before they are written back.
const (
	AltTextLimit     = 125
	TitleLimit       = 60
	CaptionLimit     = 160
	DescriptionLimit = 300
)

// PageContentLimit caps how much stripped page text is carried into prompts.
const PageContentLimit = 300

// Record holds the four SEO fields generated for an image.
type Record struct {
	AltText     string `json:"alt_text"`
	Title       string `json:"title"`
	Caption     string `json:"caption"`
	Description string `json:"description"`
}

// Clamp returns a copy of the record with every field truncated to its limit.
func (r Record) Clamp() Record {
	return Record{
		AltText:     Truncate(r.AltText, AltTextLimit),
		Title:       Truncate(r.Title, TitleLimit),
		Caption:     Truncate(r.Caption, CaptionLimit),
		Description: Truncate(r.Description, DescriptionLimit),
	}
}

// Empty reports whether no field carries any text.
func (r Record) Empty() bool {
	return strings.TrimSpace(r.AltText) == "" &&
		strings.TrimSpace(r.Title) == "" &&
		strings.TrimSpace(r.Caption) == "" &&
		strings.TrimSpace(r.Description) == ""
}

// Context carries the page and attachment details used to build a prompt.
type Context struct {
	ImageURL    string
	ImageTitle  string
	PageTitle   string
	PageContent string
}

// ExtractContext assembles a prompt context from raw WordPress fields. The
// page HTML is tag-stripped and truncated so prompts stay small.
func ExtractContext(imageURL, imageTitle, pageTitle, pageHTML string) Context {
	return Context{
		ImageURL:    strings.TrimSpace(imageURL),
		ImageTitle:  strings.TrimSpace(imageTitle),
		PageTitle:   strings.TrimSpace(pageTitle),
		PageContent: Truncate(StripTags(pageHTML), PageContentLimit),
	}
}

// Keywords returns the first n whitespace-separated words of the best
// available context text, preferring the page title over the image title.
func (c Context) Keywords(n int) string {
	source := c.PageTitle
	if source == "" {
		source = c.ImageTitle
	}
	words := strings.Fields(source)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

var tagPattern = regexp.MustCompile(`(?s)<.*?>`)

// StripTags removes HTML tags without parsing the document. Entity decoding
// and script bodies are deliberately left alone; prompts tolerate the noise.
func StripTags(html string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(html, ""))
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Prompt renders the generation prompt for the given context. The agent
// serves French-language sites, so the instructions and the requested output
// are French.
func Prompt(c Context) string {
	var b strings.Builder
	b.WriteString("Génère des métadonnées SEO pour cette image WordPress.\n\n")
	b.WriteString("Contexte:\n")
	b.WriteString("- Titre de la page: ")
	b.WriteString(c.PageTitle)
	b.WriteString("\n- Contenu: ")
	b.WriteString(c.PageContent)
	b.WriteString("\n- URL de l'image: ")
	b.WriteString(c.ImageURL)
	b.WriteString("\n\nGénère en français un JSON avec:\n")
	b.WriteString("- alt_text: description précise (max 125 car)\n")
	b.WriteString("- title: titre SEO (max 60 car)\n")
	b.WriteString("- caption: légende engageante (max 160 car)\n")
	b.WriteString("- description: description détaillée (max 300 car)\n\n")
	b.WriteString("Format JSON uniquement:\n")
	b.WriteString("{\n")
	b.WriteString("    \"alt_text\": \"...\",\n")
	b.WriteString("    \"title\": \"...\",\n")
	b.WriteString("    \"caption\": \"...\",\n")
	b.WriteString("    \"description\": \"...\"\n")
	b.WriteString("}")
	return b.String()
}
