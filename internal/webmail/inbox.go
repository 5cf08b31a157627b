package webmail

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/rtic/internal/mailstore"
)

// Messages returns the whole inbox, newest first.
func (c *Controller) Messages() []mailstore.Message {
	out := make([]mailstore.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// PageCount is never less than one so an empty inbox still reads "1 of 1".
func (c *Controller) PageCount() int {
	n := (len(c.messages) + c.opts.PageSize - 1) / c.opts.PageSize
	if n < 1 {
		return 1
	}
	return n
}

// PageNumber is 1-based.
func (c *Controller) PageNumber() int { return c.page }

// Page returns the messages on the current page.
func (c *Controller) Page() []mailstore.Message {
	start := (c.page - 1) * c.opts.PageSize
	if start >= len(c.messages) {
		return nil
	}
	end := min(start+c.opts.PageSize, len(c.messages))
	return c.messages[start:end]
}

// NextPage advances one page and reports whether it moved.
func (c *Controller) NextPage() bool {
	if c.page >= c.PageCount() {
		return false
	}
	c.page++
	return true
}

func (c *Controller) PrevPage() bool {
	if c.page <= 1 {
		return false
	}
	c.page--
	return true
}

// CountLine is the inbox summary, e.g. "You have 3 emails".
func (c *Controller) CountLine() string {
	n := len(c.messages)
	if n == 1 {
		return "You have 1 email"
	}
	return fmt.Sprintf("You have %d emails", n)
}

// Preview shortens text to PreviewLength runes for the inbox list.
func Preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= PreviewLength {
		return text
	}
	return string(r[:PreviewLength]) + "..."
}

// Correspondents lists the addresses seen in the inbox other than the user's own.
func (c *Controller) Correspondents() []string {
	var self string
	if c.session != nil {
		self = c.session.creds.Email
	}
	seen := map[string]bool{}
	var out []string
	for _, m := range c.messages {
		for _, addr := range []string{m.Sender, m.Receiver} {
			if addr == "" || addr == self || seen[addr] {
				continue
			}
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

// SuggestRecipient returns a known correspondent within edit distance 2 of to.
// Exact matches and distant addresses yield no suggestion.
func (c *Controller) SuggestRecipient(to string) (string, bool) {
	to = strings.ToLower(strings.TrimSpace(to))
	if to == "" {
		return "", false
	}
	best, bestDist := "", 3
	for _, addr := range c.Correspondents() {
		d := levenshtein.ComputeDistance(to, strings.ToLower(addr))
		if d == 0 {
			return "", false
		}
		if d < bestDist {
			best, bestDist = addr, d
		}
	}
	return best, best != ""
}
