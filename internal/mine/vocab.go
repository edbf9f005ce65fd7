package mine

import "regexp"

// Fixed vocabularies. Each entry is matched as a whole word, case
// insensitively, and hits are independent — one text span can match several.

var qualificationTokens = []string{
	"MD", "MBBS", "PhD", "FRCS", "FACS", "Board Certified",
	"FACP", "FRCP", "DDS", "DMD", "MBChB", "MRCS", "MRCP",
	"FICC", "FICS", "FAMM", "FCPS", "MCh", "MS", "DM", "DNB",
}

var languageNames = []string{
	"English", "Spanish", "French", "German", "Arabic",
	"Chinese", "Japanese", "Korean", "Hindi", "Thai",
	"Turkish", "Portuguese", "Russian", "Italian", "Dutch",
	"Mandarin", "Cantonese", "Bengali", "Urdu", "Malay",
}

var inclusionKeywords = []string{
	"hotel", "accommodation", "airport transfer", "transfers",
	"consultation", "surgery", "post-operative care", "follow-up",
	"meals", "medications", "medical tests", "laboratory",
	"doctor fees", "nursing care", "physiotherapy", "rehabilitation",
}

type vocabMatcher struct {
	token string
	re    *regexp.Regexp
}

func compileVocab(tokens []string) []vocabMatcher {
	out := make([]vocabMatcher, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, vocabMatcher{
			token: tok,
			re:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tok) + `\b`),
		})
	}
	return out
}

var (
	qualificationMatchers = compileVocab(qualificationTokens)
	languageMatchers      = compileVocab(languageNames)
	inclusionMatchers     = compileVocab(inclusionKeywords)
)

func matchVocab(matchers []vocabMatcher, text string) []string {
	if text == "" {
		return nil
	}
	var hits []string
	for _, m := range matchers {
		if m.re.MatchString(text) {
			hits = append(hits, m.token)
		}
	}
	return hits
}

// ExtractQualifications mines credential abbreviations (MD, FRCS, ...)
// from a biography or title line.
func ExtractQualifications(text string) []string {
	return matchVocab(qualificationMatchers, text)
}

// ExtractLanguages mines spoken-language names from a text span.
func ExtractLanguages(text string) []string {
	return matchVocab(languageMatchers, text)
}

// ExtractIncludes mines bundle-inclusion keywords from a package
// description.
func ExtractIncludes(text string) []string {
	return matchVocab(inclusionMatchers, text)
}
