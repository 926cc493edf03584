package text

import (
	"strconv"
	"strings"

	"github.com/divan/num2words"
)

// depersonalise replacement table. Whole words only, case-sensitive.
var replacements = map[string]string{
	"my": "your",
	"I":  "you",
}

// Depersonalise converts free text from the first person to the second
// person, so "remind me to walk my dog" reads back as "walk your dog".
// Tokenization is space-delimited to match how the replacements were tuned.
func Depersonalise(s string) string {
	words := strings.Split(s, " ")
	for i, word := range words {
		if repl, ok := replacements[word]; ok {
			words[i] = repl
		}
	}
	return strings.Join(words, " ")
}

// NumberToWord renders a count in words ("zero", "three", ...). Falls back
// to digits for values the converter cannot express.
func NumberToWord(n int) string {
	if n < 0 {
		return strconv.Itoa(n)
	}
	word := num2words.Convert(n)
	if word == "" {
		return strconv.Itoa(n)
	}
	return word
}
