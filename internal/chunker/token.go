package chunker

import "unicode"

// Tokenizer counts tokens in text. The chunker treats it as an opaque
// capability; any failure aborts the current document with no partial output.
// Implementations must be safe for concurrent use if documents are chunked
// in parallel.
type Tokenizer func(text string) (int, error)

// CountTokens is the default Tokenizer: whitespace-delimited word count.
// Exact subword tokenization is not required for chunking decisions; hosts
// with a real tokenizer inject their own.
func CountTokens(text string) (int, error) {
	count := 0
	inWord := false

	for _, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				count++
				inWord = false
			}
		} else {
			inWord = true
		}
	}
	if inWord {
		count++
	}

	return count, nil
}
