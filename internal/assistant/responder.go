package assistant

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"reeldesk/internal/auth"
)

// maxSuggestions bounds the follow-up prompts returned with a reply.
const maxSuggestions = 3

// Reply is the responder's answer to one message.
type Reply struct {
	Topic       Topic
	Branch      string
	Text        string
	Suggestions []string
	// Escalate asks the caller to hand the conversation to staff.
	Escalate bool
}

// Responder classifies messages against the static tables. It holds no
// mutable state and is safe for concurrent use.
type Responder struct{}

// New returns a responder using the built-in tables.
func New() *Responder {
	return &Responder{}
}

// Respond classifies text. caller is nil for anonymous visitors; it only
// decides whether an account question can be escalated. Only customers
// escalate: staff already have the records an agent would open.
func (r *Responder) Respond(text string, caller *auth.Identity) Reply {
	folded := r.normalize(text)
	words := wordText(folded)

	if phrase := matchEscalation(folded); phrase != "" {
		reply := Reply{Topic: TopicEscalation, Suggestions: r.suggest(words)}
		if caller == nil || caller.UserID == "" {
			reply.Branch = "sign_in"
			reply.Text = signInText
			return reply
		}
		if caller.IsStaff() {
			reply.Branch = "staff"
			reply.Text = staffAccountText
			return reply
		}
		reply.Branch = "transfer"
		reply.Text = transferText
		reply.Escalate = true
		return reply
	}

	reply := Reply{Topic: TopicGeneral, Branch: "default", Text: generalText}
	for _, entry := range topicTable {
		if !containsAny(words, entry.keywords) {
			continue
		}
		chosen := entry.branches[len(entry.branches)-1]
		for _, b := range entry.branches {
			if len(b.keywords) > 0 && containsAny(words, b.keywords) {
				chosen = b
				break
			}
		}
		reply = Reply{Topic: entry.topic, Branch: chosen.name, Text: chosen.text}
		break
	}
	reply.Suggestions = r.suggest(words)
	return reply
}

// NeedsEscalation reports whether text matches an account phrase.
func (r *Responder) NeedsEscalation(text string) bool {
	return matchEscalation(r.normalize(text)) != ""
}

func (r *Responder) normalize(text string) string {
	// Casers are stateful, so each call gets its own.
	folded := cases.Fold().String(text)
	folded = strings.Map(func(c rune) rune {
		// Curly apostrophes from mobile keyboards.
		if c == '’' {
			return '\''
		}
		return c
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

func matchEscalation(folded string) string {
	for _, phrase := range escalationPhrases {
		if strings.Contains(folded, phrase) {
			return phrase
		}
	}
	return ""
}

// wordText reduces folded text to space separated words, padded so keyword
// matches can be anchored at word starts.
func wordText(folded string) string {
	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	lastSpace := true
	for _, c := range folded {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
			lastSpace = false
			continue
		}
		if c == '\'' {
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// containsAny reports whether any keyword starts a word in words.
func containsAny(words string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(words, " "+kw) {
			return true
		}
	}
	return false
}

func (r *Responder) suggest(words string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(prompt string) {
		if len(out) >= maxSuggestions {
			return
		}
		if _, ok := seen[prompt]; ok {
			return
		}
		seen[prompt] = struct{}{}
		out = append(out, prompt)
	}
	for _, rule := range suggestionRules {
		if !containsAny(words, rule.keywords) {
			continue
		}
		for _, prompt := range rule.prompts {
			add(prompt)
		}
	}
	if len(out) == 0 {
		for _, prompt := range defaultSuggestions {
			add(prompt)
		}
	}
	return out
}
