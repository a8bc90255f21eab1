package packet

import (
	"io"
	"strings"
)

// UserId contains text that is intended to represent the name and
// email address of the key holder. See RFC 4880, section 5.11. By
// convention, this takes the form "Full Name (comment) <email@example.com>".
type UserId struct {
	Id string // By convention, this takes the form "Full Name (comment) <email@example.com>"

	Name, Comment, Email string
}

func (uid *UserId) Tag() Tag { return TagUserId }

func (uid *UserId) parse(body []byte) error {
	uid.Id = string(body)
	uid.Name, uid.Comment, uid.Email = parseUserId(uid.Id)
	return nil
}

// Serialize writes the user ID packet, framed, to w.
func (uid *UserId) Serialize(w io.Writer) error {
	if err := serializeHeader(w, TagUserId, len(uid.Id)); err != nil {
		return err
	}
	_, err := w.Write([]byte(uid.Id))
	return err
}

// parseUserId extracts the name, comment and email from a user id
// string. If the id doesn't follow the convention the whole string is
// treated as the name.
func parseUserId(id string) (name, comment, email string) {
	var n, c, e struct {
		start, end int
	}

	// RFC 2822 §3.4 says that an address may have a name, an email and
	// a comment. Our implementation puts the comment between the name
	// and the address, as GnuPG does.
	n.start = 0
	n.end = strings.IndexByte(id, '(')
	c.start = n.end + 1
	c.end = strings.IndexByte(id, ')')
	e.start = strings.IndexByte(id, '<') + 1
	e.end = strings.IndexByte(id, '>')

	if e.start > 0 && e.end > e.start {
		email = id[e.start:e.end]
		if n.end < 0 || n.end > e.start {
			n.end = e.start - 1
		}
	} else if n.end < 0 {
		n.end = len(id)
	}
	if c.start > 0 && c.end > c.start && (e.start == 0 || c.end < e.start) {
		comment = strings.TrimSpace(id[c.start:c.end])
		if n.end > c.start {
			n.end = c.start - 1
		}
	}
	if n.end > n.start {
		name = strings.TrimSpace(id[n.start:n.end])
	}
	return
}
