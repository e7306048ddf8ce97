package usecase

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eslsoft/storyquest/internal/entity"
)

//go:embed prompts/story_style.yaml
var defaultStoryStyleYAML []byte

// StoryStyle is the recurring theme and cast shared by every story.
type StoryStyle struct {
	Theme       string   `yaml:"theme"`
	Description string   `yaml:"description"`
	Characters  []string `yaml:"characters"`
}

// DefaultStoryStyle returns the built-in story style.
func DefaultStoryStyle() StoryStyle {
	style, err := parseStoryStyle(defaultStoryStyleYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded story style is invalid: %v", err))
	}
	return style
}

// LoadStoryStyle reads a story style document, falling back to the built-in one when path is empty.
func LoadStoryStyle(path string) (StoryStyle, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultStoryStyle(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return StoryStyle{}, fmt.Errorf("read story style: %w", err)
	}
	return parseStoryStyle(data)
}

func parseStoryStyle(data []byte) (StoryStyle, error) {
	var style StoryStyle
	if err := yaml.Unmarshal(data, &style); err != nil {
		return StoryStyle{}, fmt.Errorf("decode story style: %w", err)
	}
	if style.Theme == "" || len(style.Characters) == 0 {
		return StoryStyle{}, fmt.Errorf("story style needs a theme and at least one character")
	}
	return style, nil
}

func percent(ratio float64) int {
	return int(math.Round(ratio * 100))
}

func buildStoryPrompt(style StoryStyle, words []entity.ConfirmedWord, grade entity.Grade, groupIndex int) string {
	d := grade.Difficulty()
	list := make([]string, len(words))
	for i, w := range words {
		list[i] = fmt.Sprintf("%s (%s)", w.Word, w.Meaning)
	}

	var b strings.Builder
	b.WriteString("You are a children's story writer. Generate a short English story for children learning vocabulary.\n\n")
	fmt.Fprintf(&b, "## Theme\n%s: %s\nCharacters: %s\n\n", style.Theme, style.Description, strings.Join(style.Characters, ", "))
	fmt.Fprintf(&b, "## Words to include\n%s\n\n", strings.Join(list, ", "))
	b.WriteString("## Requirements\n")
	fmt.Fprintf(&b, "1. Story length: %d-%d words\n", d.StoryLength.Min, d.StoryLength.Max)
	fmt.Fprintf(&b, "2. Sentence length: %d-%d words per sentence\n", d.SentenceLength.Min, d.SentenceLength.Max)
	b.WriteString("3. ALL words must appear in the story naturally\n")
	b.WriteString("4. Each target word should appear at least once, highlighted in context\n")
	fmt.Fprintf(&b, "5. The story should be engaging and age-appropriate for grade %s\n", grade)
	b.WriteString("6. Do NOT use any existing IP characters (Disney, Marvel, etc.)\n")
	fmt.Fprintf(&b, "7. Chinese hint ratio: %d%% of sentences may have Chinese annotations\n", percent(d.ChineseHintRatio))
	fmt.Fprintf(&b, "8. This is story #%d in a series\n\n", groupIndex+1)
	b.WriteString("Return the result in JSON format:\n")
	b.WriteString("{\n  \"story\": \"...\",\n  \"storyZh\": \"...\",\n  \"highlightedWords\": { \"word\": [0, 2] }\n}")
	return b.String()
}

func buildCardPrompt(story string, words []entity.ConfirmedWord, assignments []entity.CardAssignment, grade entity.Grade) string {
	d := grade.Difficulty()

	var b strings.Builder
	b.WriteString("Generate challenge cards for children's English learning.\n\n")
	fmt.Fprintf(&b, "## Story context\n%s\n\n", story)
	b.WriteString("## Cards to generate\n")
	for i, a := range assignments {
		fmt.Fprintf(&b, "Card %d: Word %q (%s), Type: %s, SubType: %s\n", i+1, words[i].Word, words[i].Meaning, a.Type, a.SubType)
	}
	b.WriteString("\n## Difficulty settings\n")
	fmt.Fprintf(&b, "- Grade: %s\n", grade)
	fmt.Fprintf(&b, "- Reading target: %s (word/phrase/sentence)\n", d.ReadingTarget)
	fmt.Fprintf(&b, "- Chinese hint ratio: %d%%\n\n", percent(d.ChineseHintRatio))
	b.WriteString(`## Card type instructions
- image_choice: Create a question about identifying the word's meaning, with 4 options (1 correct, 3 distractors)
- action_reading: Create a sentence from the story for the child to read aloud, focusing on the action verb
- expression_replace: Create a question asking the child to find a synonym or replacement expression, with 4 options
- follow_reading: Create a sentence/phrase for the child to read aloud, with phonetic hints

## Requirements
1. Each card must reference the story context
2. Instructions should be clear and encouraging
`)
	fmt.Fprintf(&b, "3. For reading cards: provide keywords that must be spoken (for %s level)\n", d.ReadingTarget)
	b.WriteString("4. For choice cards: provide exactly 4 options with exactly 1 correct answer\n")
	b.WriteString("5. Provide Chinese translations for instructions\n")
	fmt.Fprintf(&b, "6. Reading difficulty should match grade %s\n\n", grade)
	b.WriteString(`Return the result in JSON format:
{
  "cards": [
    {
      "targetWord": "...",
      "instruction": "...",
      "instructionZh": "...",
      "readingText": "...",
      "readingHint": "...",
      "keywords": ["..."],
      "question": "...",
      "questionZh": "...",
      "options": [
        { "text": "...", "textZh": "...", "isCorrect": true }
      ],
      "storyContext": "..."
    }
  ]
}`)
	return b.String()
}

const recognitionRules = `For each word:
1. Extract the English word
2. If there's a Chinese translation/meaning nearby, include it as meaning
3. Classify the part of speech into one of: noun, verb, adjective, abstract
   - noun: concrete objects, animals, places, people
   - verb: action words
   - adjective: descriptive words (color, size, feeling)
   - abstract: concepts, emotions, time, quantity, function words
4. Rate your confidence (0-1)

Return the result in JSON format: { "words": [ { "word": "...", "meaning": "...", "partOfSpeech": "...", "confidence": 0.9 } ] }`

func buildTextRecognitionPrompt(text string) string {
	return "Extract English vocabulary words from this text. The text may contain both English words and Chinese translations.\n\n" +
		recognitionRules + "\n\nText: " + text
}

func buildImageRecognitionPrompt() string {
	return "You are an English vocabulary recognition expert. Analyze this image and extract all English words visible in it.\n\n" +
		recognitionRules
}
