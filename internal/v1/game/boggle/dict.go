package boggle

import (
	_ "embed"
	"strings"
)

// The bundled word list keeps dictionary lookup an O(1) map hit. Swapping in
// a larger list only requires replacing words.txt.
//
//go:embed words.txt
var wordData string

var dictionary = buildDictionary(wordData)

func buildDictionary(data string) map[string]struct{} {
	dict := make(map[string]struct{})
	for _, line := range strings.Split(data, "\n") {
		word := strings.ToUpper(strings.TrimSpace(line))
		if len(word) >= minWordLength {
			dict[word] = struct{}{}
		}
	}
	return dict
}

// InDictionary reports whether the upper-cased word is in the bundled list.
func InDictionary(word string) bool {
	_, ok := dictionary[strings.ToUpper(word)]
	return ok
}
