package server

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/net/html"
)

// Word is one dictionary entry.
type Word struct {
	ID           uint64 `toml:"id" json:"id"`
	English      string `toml:"english" json:"english"`
	Xhosa        string `toml:"xhosa" json:"xhosa"`
	PartOfSpeech string `toml:"part_of_speech" json:"part_of_speech,omitempty"`
	IsPlural     bool   `toml:"is_plural" json:"is_plural"`
	IsInchoative bool   `toml:"is_inchoative" json:"is_inchoative"`
	IsInformal   bool   `toml:"is_informal" json:"is_informal"`
	IsSuggestion bool   `toml:"is_suggestion" json:"is_suggestion"`
}

// HTML returns the formatted entry as shown in result lists.
func (w Word) HTML() string {
	var b strings.Builder
	b.WriteString(html.EscapeString(w.English))
	b.WriteString(" - <strong>")
	b.WriteString(html.EscapeString(w.Xhosa))
	b.WriteString("</strong>")
	var tags []string
	if w.PartOfSpeech != "" {
		tags = append(tags, w.PartOfSpeech)
	}
	if w.IsPlural {
		tags = append(tags, "plural")
	}
	if w.IsInformal {
		tags = append(tags, "informal")
	}
	if len(tags) > 0 {
		b.WriteString(" <em>(")
		b.WriteString(html.EscapeString(strings.Join(tags, ", ")))
		b.WriteString(")</em>")
	}
	return b.String()
}

// MarshalJSON adds the rendered html to the entry fields.
func (w Word) MarshalJSON() ([]byte, error) {
	type plain Word
	return json.Marshal(struct {
		plain
		HTML string `json:"html"`
	}{plain: plain(w), HTML: w.HTML()})
}

type dictionary struct {
	Words []Word `toml:"words"`
}

// LoadDictionary reads a TOML word list of [[words]] tables.
func LoadDictionary(path string) ([]Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	var d dictionary
	if err := toml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	for i, w := range d.Words {
		if w.ID == 0 {
			return nil, fmt.Errorf("failed to parse dictionary: entry %d has no id", i)
		}
	}
	return d.Words, nil
}

// DefaultWords is the word list served when no dictionary file is given.
func DefaultWords() []Word {
	return []Word{
		{ID: 1, English: "woman", Xhosa: "umfazi", PartOfSpeech: "noun"},
		{ID: 2, English: "women", Xhosa: "abafazi", PartOfSpeech: "noun", IsPlural: true},
		{ID: 3, English: "man", Xhosa: "indoda", PartOfSpeech: "noun"},
		{ID: 4, English: "men", Xhosa: "amadoda", PartOfSpeech: "noun", IsPlural: true},
		{ID: 5, English: "child", Xhosa: "umntwana", PartOfSpeech: "noun"},
		{ID: 6, English: "water", Xhosa: "amanzi", PartOfSpeech: "noun"},
		{ID: 7, English: "to eat", Xhosa: "ukutya", PartOfSpeech: "verb"},
		{ID: 8, English: "food", Xhosa: "ukutya", PartOfSpeech: "noun"},
		{ID: 9, English: "to walk", Xhosa: "ukuhamba", PartOfSpeech: "verb"},
		{ID: 10, English: "to go", Xhosa: "ukuya", PartOfSpeech: "verb"},
		{ID: 11, English: "hello", Xhosa: "molo", PartOfSpeech: "interjection"},
		{ID: 12, English: "hello (to many)", Xhosa: "molweni", PartOfSpeech: "interjection", IsPlural: true},
		{ID: 13, English: "thank you", Xhosa: "enkosi", PartOfSpeech: "interjection"},
		{ID: 14, English: "house", Xhosa: "indlu", PartOfSpeech: "noun"},
		{ID: 15, English: "dog", Xhosa: "inja", PartOfSpeech: "noun"},
		{ID: 16, English: "cow", Xhosa: "inkomo", PartOfSpeech: "noun"},
		{ID: 17, English: "sun", Xhosa: "ilanga", PartOfSpeech: "noun"},
		{ID: 18, English: "friend", Xhosa: "umhlobo", PartOfSpeech: "noun"},
		{ID: 19, English: "to speak", Xhosa: "ukuthetha", PartOfSpeech: "verb"},
		{ID: 20, English: "big", Xhosa: "-khulu", PartOfSpeech: "adjective"},
		{ID: 21, English: "girl", Xhosa: "intombazana", PartOfSpeech: "noun", IsSuggestion: true},
		{ID: 22, English: "boy", Xhosa: "inkwenkwe", PartOfSpeech: "noun", IsSuggestion: true},
		{ID: 23, English: "mate", Xhosa: "tshomi", PartOfSpeech: "noun", IsInformal: true},
	}
}
