// internal/engine/text/stopwords.go
package text

var stopWords = func() map[string]struct{} {
	words := []string{
		"the", "and", "for", "with", "you", "your", "are", "this", "that", "from",
		"can", "all", "any", "has", "have", "had", "was", "were", "will", "not",
		"but", "our", "its", "into", "out", "use", "using", "more", "most", "also",
		"than", "then", "them", "they", "their", "there", "these", "those", "what",
		"when", "where", "which", "who", "why", "how", "each", "other", "some",
		"such", "only", "own", "same", "very", "just", "over", "under", "about",
		"after", "before", "while", "been", "being", "both", "does", "did", "doing",
		"here", "his", "her", "him", "she", "one", "get", "make", "made", "may",
		"per", "off", "too", "now", "like", "need",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
