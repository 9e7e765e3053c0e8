package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"lexcite-backend/models"
)

// ExtractService finds citation-like spans in legal text
type ExtractService struct{}

// NewExtractService creates a new extract service
func NewExtractService() *ExtractService {
	return &ExtractService{}
}

// citationPattern pairs a compiled expression with the confidence its
// matches carry. Patterns are tried in order; a span already claimed by
// an earlier pattern is not reported twice.
type citationPattern struct {
	re         *regexp.Regexp
	confidence float64
	kind       string
}

const (
	partyName = `[A-Z][A-Za-z0-9.'&\-]*(?:[ ][A-Za-z0-9.'&\-]+)*`

	// Introductory signals preceding a full citation; consumed but not
	// captured so the case name stays clean
	introSignal = `(?:(?:See|But see|Cf\.|Accord),?[ ](?:e\.g\.,[ ])?)?`

	// Reporter abbreviations recognized for bare volume-reporter-page
	// cites, longest variants first
	knownReporters = `U\.S\.|S\. Ct\.|L\. Ed\. 2d|L\. Ed\.|F\.4th|F\.3d|F\.2d` +
		`|F\. Supp\. 3d|F\. Supp\. 2d|F\. Supp\.|P\.3d|P\.2d` +
		`|N\.E\.2d|N\.W\.2d|A\.3d|A\.2d|So\. 3d|So\. 2d`
)

var citationPatterns = []citationPattern{
	// Full reported citation: Terry v. Ohio, 392 U.S. 1 (1968)
	{
		re: regexp.MustCompile(
			introSignal + `(` + partyName + `[ ]v\.[ ]` + partyName + `),[ ](\d{1,4})[ ]([A-Z][A-Za-z0-9.]*(?:[ ][A-Za-z0-9.]+)*?)[ ](\d{1,5})(?:[ ]\((\d{4})\))?`),
		confidence: 1.0,
		kind:       "full",
	},
	// Short-form signal citation: See Terry, 392 U.S. at 21
	{
		re: regexp.MustCompile(
			`\bSee,?[ ](?:e\.g\.,[ ])?(` + partyName + `),[ ](\d{1,4})[ ]([A-Z][A-Za-z0-9.]*(?:[ ][A-Za-z0-9.]+)*?)[ ](?:at[ ])?(\d{1,5})`),
		confidence: 0.8,
		kind:       "see",
	},
	// Bare reported cite without a case name: 392 U.S. 1 (1968)
	{
		re: regexp.MustCompile(
			`\b(\d{1,4})[ ](` + knownReporters + `)[ ](\d{1,5})(?:[ ]\((\d{4})\))?`),
		confidence: 1.0,
		kind:       "bare",
	},
	// Id. reference to the immediately preceding authority
	{
		re:         regexp.MustCompile(`\bId\.(?:[ ]at[ ](\d{1,5}))?`),
		confidence: 0.6,
		kind:       "id",
	},
}

// Extract returns every citation mention found in text, ordered by
// offset. A span claimed by an earlier pattern is never reported again,
// so richer forms win over the bare forms they contain.
func (s *ExtractService) Extract(text string) []models.CitationMention {
	var mentions []models.CitationMention
	var claimed [][2]int

	overlaps := func(start, end int) bool {
		for _, span := range claimed {
			if start < span[1] && end > span[0] {
				return true
			}
		}
		return false
	}

	for _, pat := range citationPatterns {
		for _, loc := range pat.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if overlaps(start, end) {
				continue
			}
			claimed = append(claimed, [2]int{start, end})

			m := models.CitationMention{
				Text:       text[start:end],
				Offset:     start,
				Confidence: pat.confidence,
			}

			switch pat.kind {
			case "full":
				m.CaseName = group(text, loc, 1)
				m.Volume = intGroup(text, loc, 2)
				m.Reporter = strings.TrimSpace(group(text, loc, 3))
				m.Page = intGroup(text, loc, 4)
				m.Year = intGroup(text, loc, 5)
			case "see":
				m.CaseName = group(text, loc, 1)
				m.Volume = intGroup(text, loc, 2)
				m.Reporter = strings.TrimSpace(group(text, loc, 3))
				m.Page = intGroup(text, loc, 4)
			case "bare":
				m.Volume = intGroup(text, loc, 1)
				m.Reporter = group(text, loc, 2)
				m.Page = intGroup(text, loc, 3)
				m.Year = intGroup(text, loc, 4)
			case "id":
				m.Page = intGroup(text, loc, 1)
			}

			mentions = append(mentions, m)
		}
	}

	sort.Slice(mentions, func(i, j int) bool {
		return mentions[i].Offset < mentions[j].Offset
	})
	return mentions
}

// group returns the submatch at index n, or "" when it did not participate
func group(text string, loc []int, n int) string {
	if 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return text[loc[2*n]:loc[2*n+1]]
}

func intGroup(text string, loc []int, n int) *int {
	s := group(text, loc, n)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
