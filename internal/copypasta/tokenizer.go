package copypasta

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	StreamerTag    = "<streamer>"
	URLPlaceholder = "<SHADY_URL>"
)

var (
	urlRe         = regexp.MustCompile(`(?:[A-Za-z]{3,9}://(?:[-;:&=+$,\w]+@)?[A-Za-z0-9.-]+|(?:www\.|[-;:&=+$,\w]+@)[A-Za-z0-9.-]+)(?:(?:/[+~%/.\w-]*)?\??(?:[-+=&;%@.\w]*)#?(?:[.!/\\\w]*))?`)
	punctRunRe    = regexp.MustCompile(`[.,?!:;]+`)
	punctuationRe = regexp.MustCompile(`^[.,?!:;]+$`)
	mentionRe     = regexp.MustCompile(`^@([A-Za-z0-9_]{4,25})$`)
	userTagRe     = regexp.MustCompile(`^<username(\d+)>$`)
)

func userTag(n int) string { return "<username" + strconv.Itoa(n) + ">" }

func isPunctuation(token string) bool { return punctuationRe.MatchString(token) }

func isUserTag(token string) bool { return userTagRe.MatchString(token) }

// Tokenizer splits chat text into tokens and replaces mentions with tags
// that are only meaningful within one message.
type Tokenizer struct {
	AllowURLs bool
	// Owner is the channel owner's account name, mapped to StreamerTag.
	Owner string
	// Self is the bot's own account name.
	Self string
}

// Tokenize depends only on message and the tokenizer's fields, so the same
// text always yields the same tokens.
func (t Tokenizer) Tokenize(message string) (tokens []string, mentionsSelf bool) {
	if !t.AllowURLs {
		message = urlRe.ReplaceAllString(message, URLPlaceholder)
	}
	message = punctRunRe.ReplaceAllStringFunc(message, func(m string) string { return " " + m + " " })
	tokens = strings.Fields(message)

	tags := make(map[string]string)
	next := 0
	for i, tok := range tokens {
		m := mentionRe.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		name := strings.ToLower(m[1])
		if t.Self != "" && strings.EqualFold(name, t.Self) {
			mentionsSelf = true
		}
		tag, ok := tags[name]
		if !ok {
			if t.Owner != "" && strings.EqualFold(name, t.Owner) {
				tag = StreamerTag
			} else {
				tag = userTag(next)
				next++
			}
			tags[name] = tag
		}
		tokens[i] = tag
	}
	return tokens, mentionsSelf
}
