package protocol

import (
	"fmt"
	"regexp"
	"strconv"
)

var positionReply = regexp.MustCompile(`^OK (-?[0-9]+) (-?[0-9]+)\x07\x08$`)

// ParsePosition parses an "OK <x> <y>" reply, terminator included.
func ParsePosition(msg []byte) (int, int, error) {
	m := positionReply.FindSubmatch(msg)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: malformed position reply %q", ErrSyntax, msg)
	}
	x, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: x coordinate: %v", ErrSyntax, err)
	}
	y, err := strconv.Atoi(string(m[2]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: y coordinate: %v", ErrSyntax, err)
	}
	return x, y, nil
}
